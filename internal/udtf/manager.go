package udtf

import (
	"errors"
	"fmt"
)

var (
	// ErrSizingMismatch reports that a function wrote a different number of
	// rows than it declared. It indicates a bug in the function, not bad input.
	ErrSizingMismatch = errors.New("output sizing mismatch")

	// ErrFunctionFailed wraps an error raised by a table function through
	// Manager.ErrorMessage.
	ErrFunctionFailed = errors.New("table function failed")
)

// Manager is handed to a running table function. It owns the output
// columns and records the number of rows the function declared.
type Manager struct {
	outputs  []AnyColumn
	rowSize  int64
	declared bool
	errMsg   string
}

func newManager(outputs []Output) (*Manager, error) {
	m := &Manager{rowSize: -1}
	for _, o := range outputs {
		col, err := newOutputColumn(o.Type)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", o.Name, err)
		}
		m.outputs = append(m.outputs, col)
	}
	return m, nil
}

// NewManager returns a manager with no registered outputs. Columns are
// attached with NewOutputColumn; this is how functions are exercised
// without going through a Registry.
func NewManager() *Manager {
	return &Manager{rowSize: -1}
}

// NewOutputColumn attaches a new, unsized output column of type T to m. It
// is allocated when the row size is declared.
func NewOutputColumn[T Number](m *Manager) *Column[T] {
	c := NewColumn[T](nil)
	if m.declared {
		c.resize(m.rowSize)
	}
	m.outputs = append(m.outputs, c)
	return c
}

// OutputAs returns output column i typed as T.
func OutputAs[T Number](m *Manager, i int) (*Column[T], error) {
	if i < 0 || i >= len(m.outputs) {
		return nil, fmt.Errorf("output index %d out of range [0, %d)", i, len(m.outputs))
	}
	c, ok := m.outputs[i].(*Column[T])
	if !ok {
		return nil, fmt.Errorf("output %d is %s, not %s", i, m.outputs[i].Type(), TypeOf[T]())
	}
	return c, nil
}

// SetOutputRowSize declares the number of rows the function will write and
// allocates every output column to that size. It may be called once; a
// second call with the same size is a no-op.
func (m *Manager) SetOutputRowSize(n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: negative output row size %d", ErrSizingMismatch, n)
	}
	if m.declared {
		if n == m.rowSize {
			return nil
		}
		return fmt.Errorf("%w: output row size already declared as %d, got %d", ErrSizingMismatch, m.rowSize, n)
	}
	m.rowSize = n
	m.declared = true
	for _, c := range m.outputs {
		c.resize(n)
	}
	tracef("output row size declared: %d rows x %d columns", n, len(m.outputs))
	return nil
}

// OutputRowSize returns the declared output row count, or -1 before
// SetOutputRowSize has been called.
func (m *Manager) OutputRowSize() int64 { return m.rowSize }

// ErrorMessage records msg as the reason the function failed and returns
// an error the function should return unchanged.
func (m *Manager) ErrorMessage(msg string) error {
	m.errMsg = msg
	return fmt.Errorf("%w: %s", ErrFunctionFailed, msg)
}

// Error records err as the reason the function failed. The returned error
// matches both ErrFunctionFailed and err.
func (m *Manager) Error(err error) error {
	m.errMsg = err.Error()
	return fmt.Errorf("%w: %w", ErrFunctionFailed, err)
}

// LastError returns the message recorded by ErrorMessage, if any.
func (m *Manager) LastError() string { return m.errMsg }

// Finish checks the number of rows a function reports writing against the
// declared size.
func (m *Manager) Finish(written int64) error {
	if !m.declared {
		return fmt.Errorf("%w: function returned %d rows without declaring an output size", ErrSizingMismatch, written)
	}
	if written != m.rowSize {
		return fmt.Errorf("%w: declared %d rows, wrote %d", ErrSizingMismatch, m.rowSize, written)
	}
	return nil
}

func newOutputColumn(t Type) (AnyColumn, error) {
	switch t {
	case TypeInt32:
		return NewColumn[int32](nil), nil
	case TypeInt64:
		return NewColumn[int64](nil), nil
	case TypeFloat32:
		return NewColumn[float32](nil), nil
	case TypeFloat64:
		return NewColumn[float64](nil), nil
	default:
		return nil, fmt.Errorf("unsupported output type %s", t)
	}
}
