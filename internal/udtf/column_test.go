package udtf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumn_NullsAreIndependentOfValues(t *testing.T) {
	t.Parallel()

	c, err := NewNullableColumn([]float64{1, 2, 3}, []bool{false, true, false})
	require.NoError(t, err)

	assert.Equal(t, int64(3), c.Size())
	assert.False(t, c.IsNull(0))
	assert.True(t, c.IsNull(1))
	assert.Equal(t, int64(1), c.NullCount())

	c.Set(1, 5)
	assert.False(t, c.IsNull(1))
	assert.Equal(t, 5.0, c.At(1))

	c.SetNull(2)
	assert.True(t, c.IsNull(2))
	v, ok := c.Float64(2)
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestNewNullableColumn_LengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := NewNullableColumn([]int32{1, 2}, []bool{true})
	require.Error(t, err)
}

func TestTypeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TypeInt32, TypeOf[int32]())
	assert.Equal(t, TypeInt64, TypeOf[int64]())
	assert.Equal(t, TypeFloat32, TypeOf[float32]())
	assert.Equal(t, TypeFloat64, TypeOf[float64]())
	assert.Equal(t, TypeInvalid, TypeOf[uint8]())
	assert.Equal(t, "float32", NewColumn([]float32{1}).Type().String())
}

func TestColumnList(t *testing.T) {
	t.Parallel()

	t.Run("equal lengths", func(t *testing.T) {
		t.Parallel()
		l, err := NewColumnList(NewColumn([]int64{1, 2}), NewColumn([]int64{3, 4}))
		require.NoError(t, err)
		assert.Equal(t, 2, l.NumCols())
		assert.Equal(t, int64(2), l.Size())
		assert.Equal(t, int64(4), l.Col(1).At(1))
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		t.Parallel()
		_, err := NewColumnList(NewColumn([]int64{1, 2}), NewColumn([]int64{3}))
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		l, err := NewColumnList[float32]()
		require.NoError(t, err)
		assert.Zero(t, l.Size())
	})
}
