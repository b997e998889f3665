package udtf

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNoSuchFunction is returned when no registered function matches a
// name and argument signature.
var ErrNoSuchFunction = errors.New("no such table function")

// ArgType is the declared type of one table-function argument.
type ArgType int

const (
	ArgInvalid ArgType = iota
	ArgColumnInt32
	ArgColumnInt64
	ArgColumnFloat32
	ArgColumnFloat64
	ArgInt64
	ArgFloat64
	ArgBool
)

func (a ArgType) String() string {
	switch a {
	case ArgColumnInt32:
		return "column<int32>"
	case ArgColumnInt64:
		return "column<int64>"
	case ArgColumnFloat32:
		return "column<float32>"
	case ArgColumnFloat64:
		return "column<float64>"
	case ArgInt64:
		return "int64"
	case ArgFloat64:
		return "float64"
	case ArgBool:
		return "bool"
	default:
		return "invalid"
	}
}

// ColumnArgType returns the argument type for a column of element type T.
func ColumnArgType[T Number]() ArgType {
	return columnArgType(TypeOf[T]())
}

func columnArgType(t Type) ArgType {
	switch t {
	case TypeInt32:
		return ArgColumnInt32
	case TypeInt64:
		return ArgColumnInt64
	case TypeFloat32:
		return ArgColumnFloat32
	case TypeFloat64:
		return ArgColumnFloat64
	default:
		return ArgInvalid
	}
}

// Arg is one bound argument: either a column or a scalar literal.
type Arg struct {
	Column AnyColumn
	Scalar any
}

// ColumnArg binds a column argument.
func ColumnArg(c AnyColumn) Arg { return Arg{Column: c} }

// ScalarArg binds a scalar argument. Supported values are int64, float64
// and bool.
func ScalarArg(v any) Arg { return Arg{Scalar: v} }

// Type returns the argument's runtime type.
func (a Arg) Type() ArgType {
	if a.Column != nil {
		return columnArgType(a.Column.Type())
	}
	switch a.Scalar.(type) {
	case int64:
		return ArgInt64
	case float64:
		return ArgFloat64
	case bool:
		return ArgBool
	default:
		return ArgInvalid
	}
}

// ColumnAs returns the column bound to a typed as *Column[T].
func ColumnAs[T Number](a Arg) (*Column[T], error) {
	c, ok := a.Column.(*Column[T])
	if !ok {
		return nil, fmt.Errorf("argument is %s, want %s", a.Type(), ColumnArgType[T]())
	}
	return c, nil
}

// ScalarAs returns the scalar bound to a typed as T.
func ScalarAs[T int64 | float64 | bool](a Arg) (T, error) {
	v, ok := a.Scalar.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("argument is %s, want %T", a.Type(), zero)
	}
	return v, nil
}

// SizerKind selects how a function's output row count is determined.
type SizerKind int

const (
	// SizerRuntime leaves sizing to the function, which must call
	// Manager.SetOutputRowSize before writing.
	SizerRuntime SizerKind = iota
	// SizerConstant pre-sizes the output to a fixed number of rows.
	SizerConstant
	// SizerRowMultiplier pre-sizes the output to the input row count times
	// the int64 argument at the given index.
	SizerRowMultiplier
	// SizerUserConstant pre-sizes the output to the int64 argument at the
	// given index.
	SizerUserConstant
)

// Sizer describes output sizing. Value is the row count for SizerConstant
// and an argument index for SizerRowMultiplier and SizerUserConstant.
type Sizer struct {
	Kind  SizerKind
	Value int64
}

// RuntimeSizer returns a sizer where the function declares its own size.
func RuntimeSizer() Sizer { return Sizer{Kind: SizerRuntime} }

// ConstantSizer pre-sizes output to n rows.
func ConstantSizer(n int64) Sizer { return Sizer{Kind: SizerConstant, Value: n} }

// RowMultiplierSizer pre-sizes output to input rows times argument argIndex.
func RowMultiplierSizer(argIndex int) Sizer {
	return Sizer{Kind: SizerRowMultiplier, Value: int64(argIndex)}
}

// UserConstantSizer pre-sizes output to the value of argument argIndex.
func UserConstantSizer(argIndex int) Sizer {
	return Sizer{Kind: SizerUserConstant, Value: int64(argIndex)}
}

// Output names and types one output column.
type Output struct {
	Name string
	Type Type
}

// RunFunc executes a table function. It returns the number of rows written.
type RunFunc func(ctx context.Context, mgr *Manager, args []Arg) (int64, error)

// Function is a registered table function implementation. Several
// implementations may share a name as long as their argument types differ.
type Function struct {
	Name    string
	Args    []ArgType
	Outputs []Output
	Sizer   Sizer
	Run     RunFunc
}

// Signature renders the function as name(arg, ...).
func (f *Function) Signature() string {
	return signature(f.Name, f.Args)
}

func signature(name string, args []ArgType) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// Table is the result of a table-function call.
type Table struct {
	Names   []string
	Columns []AnyColumn
}

// NumRows returns the number of output rows.
func (t *Table) NumRows() int64 {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Size()
}

// Column returns the output column with the given name, or nil.
func (t *Table) Column(name string) AnyColumn {
	for i, n := range t.Names {
		if n == name {
			return t.Columns[i]
		}
	}
	return nil
}

// Registry holds table functions keyed by signature.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Register adds fn. Registering the same signature twice is an error.
func (r *Registry) Register(fn *Function) error {
	if fn.Name == "" {
		return errors.New("table function name is empty")
	}
	if fn.Run == nil {
		return fmt.Errorf("table function %s has no implementation", fn.Name)
	}
	if len(fn.Outputs) == 0 {
		return fmt.Errorf("table function %s declares no outputs", fn.Name)
	}
	for i, a := range fn.Args {
		if a == ArgInvalid {
			return fmt.Errorf("table function %s: argument %d has invalid type", fn.Name, i)
		}
	}
	if err := validateSizer(fn); err != nil {
		return err
	}

	sig := fn.Signature()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[sig]; exists {
		return fmt.Errorf("table function %s already registered", sig)
	}
	r.funcs[sig] = fn
	diagf("registered %s", sig)
	return nil
}

func validateSizer(fn *Function) error {
	switch fn.Sizer.Kind {
	case SizerRuntime:
		return nil
	case SizerConstant:
		if fn.Sizer.Value < 0 {
			return fmt.Errorf("table function %s: negative constant size %d", fn.Name, fn.Sizer.Value)
		}
		return nil
	case SizerRowMultiplier, SizerUserConstant:
		idx := fn.Sizer.Value
		if idx < 0 || idx >= int64(len(fn.Args)) || fn.Args[idx] != ArgInt64 {
			return fmt.Errorf("table function %s: sizer argument %d must be an int64 argument", fn.Name, idx)
		}
		return nil
	default:
		return fmt.Errorf("table function %s: unknown sizer kind %d", fn.Name, fn.Sizer.Kind)
	}
}

// Lookup returns the function registered under name whose argument types
// match types exactly.
func (r *Registry) Lookup(name string, types []ArgType) (*Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.funcs[signature(name, types)]; ok {
		return fn, nil
	}
	var candidates []string
	for sig, fn := range r.funcs {
		if fn.Name == name {
			candidates = append(candidates, sig)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchFunction, name)
	}
	sort.Strings(candidates)
	return nil, fmt.Errorf("%w: %s; candidates: %s", ErrNoSuchFunction, signature(name, types), strings.Join(candidates, ", "))
}

// Functions returns the signatures of every registered function, sorted.
func (r *Registry) Functions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sigs := make([]string, 0, len(r.funcs))
	for sig := range r.funcs {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	return sigs
}

// Invoke resolves name against the argument types, runs the function and
// returns its output table. A mismatch between the declared and written row
// counts is reported as ErrSizingMismatch.
func (r *Registry) Invoke(ctx context.Context, name string, args []Arg) (*Table, error) {
	types := make([]ArgType, len(args))
	for i, a := range args {
		types[i] = a.Type()
	}
	fn, err := r.Lookup(name, types)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mgr, err := newManager(fn.Outputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name, err)
	}
	if err := presize(fn, mgr, args); err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name, err)
	}

	written, err := fn.Run(ctx, mgr, args)
	if err != nil {
		opsf("%s failed: %v", fn.Signature(), err)
		return nil, fmt.Errorf("%s: %w", fn.Name, err)
	}
	if err := mgr.Finish(written); err != nil {
		opsf("%s: %v", fn.Signature(), err)
		return nil, fmt.Errorf("%s: %w", fn.Name, err)
	}

	tbl := &Table{Columns: mgr.outputs}
	for _, o := range fn.Outputs {
		tbl.Names = append(tbl.Names, o.Name)
	}
	diagf("%s produced %d rows", fn.Name, written)
	return tbl, nil
}

func presize(fn *Function, mgr *Manager, args []Arg) error {
	switch fn.Sizer.Kind {
	case SizerConstant:
		return mgr.SetOutputRowSize(fn.Sizer.Value)
	case SizerUserConstant:
		n, err := ScalarAs[int64](args[fn.Sizer.Value])
		if err != nil {
			return err
		}
		return mgr.SetOutputRowSize(n)
	case SizerRowMultiplier:
		k, err := ScalarAs[int64](args[fn.Sizer.Value])
		if err != nil {
			return err
		}
		return mgr.SetOutputRowSize(inputRows(args) * k)
	default:
		return nil
	}
}

// inputRows returns the row count of the first column argument.
func inputRows(args []Arg) int64 {
	for _, a := range args {
		if a.Column != nil {
			return a.Column.Size()
		}
	}
	return 0
}
