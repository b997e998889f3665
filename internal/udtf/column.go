package udtf

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/exp/constraints"
)

// Number is the set of element types a column can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// Type identifies the element type of a column.
type Type int

const (
	TypeInvalid Type = iota
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
)

func (t Type) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	default:
		return "invalid"
	}
}

// TypeOf returns the column Type for the element type T. Element types the
// runtime has no SQL mapping for report TypeInvalid.
func TypeOf[T Number]() Type {
	var zero T
	switch any(zero).(type) {
	case int32:
		return TypeInt32
	case int64:
		return TypeInt64
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	default:
		return TypeInvalid
	}
}

// AnyColumn is the type-erased view of a Column used by the registry,
// result tables and storage.
type AnyColumn interface {
	Size() int64
	IsNull(i int64) bool
	Type() Type
	// Float64 returns the value at row i widened to float64, and false
	// when the row is null.
	Float64(i int64) (float64, bool)

	resize(n int64)
}

// Column is a fixed-length sequence of values of type T where each row may
// be marked null independently of its stored value.
type Column[T Number] struct {
	data  []T
	nulls *bitset.BitSet
}

// NewColumn wraps values in a column with no nulls. The slice is not copied.
func NewColumn[T Number](values []T) *Column[T] {
	return &Column[T]{data: values, nulls: bitset.New(uint(len(values)))}
}

// NewNullableColumn builds a column from values and a parallel null mask.
func NewNullableColumn[T Number](values []T, nulls []bool) (*Column[T], error) {
	if len(values) != len(nulls) {
		return nil, fmt.Errorf("null mask length %d does not match %d values", len(nulls), len(values))
	}
	c := NewColumn(values)
	for i, isNull := range nulls {
		if isNull {
			c.nulls.Set(uint(i))
		}
	}
	return c, nil
}

// Size returns the number of rows.
func (c *Column[T]) Size() int64 { return int64(len(c.data)) }

// At returns the stored value at row i regardless of its null flag.
func (c *Column[T]) At(i int64) T { return c.data[i] }

// Set stores v at row i and clears its null flag.
func (c *Column[T]) Set(i int64, v T) {
	c.data[i] = v
	c.nulls.Clear(uint(i))
}

// IsNull reports whether row i is null.
func (c *Column[T]) IsNull(i int64) bool { return c.nulls.Test(uint(i)) }

// SetNull marks row i null. The stored value is reset to zero.
func (c *Column[T]) SetNull(i int64) {
	var zero T
	c.data[i] = zero
	c.nulls.Set(uint(i))
}

// NullCount returns the number of null rows.
func (c *Column[T]) NullCount() int64 { return int64(c.nulls.Count()) }

// Values exposes the backing slice. Null rows hold zero.
func (c *Column[T]) Values() []T { return c.data }

// Type returns the column element type.
func (c *Column[T]) Type() Type { return TypeOf[T]() }

// Float64 implements AnyColumn.
func (c *Column[T]) Float64(i int64) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	return float64(c.data[i]), true
}

// resize reallocates the column to n rows, all zero and not null.
func (c *Column[T]) resize(n int64) {
	c.data = make([]T, n)
	c.nulls = bitset.New(uint(n))
}

// ColumnList is an ordered group of same-length columns of one element type,
// the runtime form of a variadic cursor argument.
type ColumnList[T Number] struct {
	cols []*Column[T]
}

// NewColumnList groups cols. All columns must have the same number of rows.
func NewColumnList[T Number](cols ...*Column[T]) (*ColumnList[T], error) {
	for i := 1; i < len(cols); i++ {
		if cols[i].Size() != cols[0].Size() {
			return nil, fmt.Errorf("column %d has %d rows, column 0 has %d", i, cols[i].Size(), cols[0].Size())
		}
	}
	return &ColumnList[T]{cols: cols}, nil
}

// NumCols returns the number of columns in the list.
func (l *ColumnList[T]) NumCols() int { return len(l.cols) }

// Col returns the i-th column.
func (l *ColumnList[T]) Col(i int) *Column[T] { return l.cols[i] }

// Size returns the row count shared by every column, or 0 for an empty list.
func (l *ColumnList[T]) Size() int64 {
	if len(l.cols) == 0 {
		return 0
	}
	return l.cols[0].Size()
}
