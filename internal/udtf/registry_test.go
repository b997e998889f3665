package udtf

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowCopier copies its input column, sized by a row multiplier argument.
func rowCopier() *Function {
	return &Function{
		Name:    "row_copier",
		Args:    []ArgType{ArgColumnFloat64, ArgInt64},
		Outputs: []Output{{Name: "out0", Type: TypeFloat64}},
		Sizer:   RowMultiplierSizer(1),
		Run: func(_ context.Context, mgr *Manager, args []Arg) (int64, error) {
			in, err := ColumnAs[float64](args[0])
			if err != nil {
				return 0, err
			}
			k, err := ScalarAs[int64](args[1])
			if err != nil {
				return 0, err
			}
			out, err := OutputAs[float64](mgr, 0)
			if err != nil {
				return 0, err
			}
			n := in.Size()
			for c := int64(0); c < k; c++ {
				for i := int64(0); i < n; i++ {
					if in.IsNull(i) {
						out.SetNull(c*n + i)
						continue
					}
					out.Set(c*n+i, in.At(i))
				}
			}
			return n * k, nil
		},
	}
}

// throwIfGT100 raises a function error when any value exceeds 100.
func throwIfGT100() *Function {
	return &Function{
		Name:    "throw_if_gt_100",
		Args:    []ArgType{ArgColumnFloat32},
		Outputs: []Output{{Name: "val", Type: TypeFloat32}},
		Run: func(_ context.Context, mgr *Manager, args []Arg) (int64, error) {
			in, err := ColumnAs[float32](args[0])
			if err != nil {
				return 0, err
			}
			if err := mgr.SetOutputRowSize(in.Size()); err != nil {
				return 0, err
			}
			out, _ := OutputAs[float32](mgr, 0)
			for i := int64(0); i < in.Size(); i++ {
				if in.At(i) > 100 {
					return 0, mgr.ErrorMessage("value greater than 100")
				}
				out.Set(i, in.At(i))
			}
			return in.Size(), nil
		},
	}
}

func TestRegistry_InvokeRowMultiplier(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(rowCopier()))

	in, err := NewNullableColumn([]float64{1.5, 0, 3.5}, []bool{false, true, false})
	require.NoError(t, err)

	tbl, err := reg.Invoke(context.Background(), "row_copier", []Arg{ColumnArg(in), ScalarArg(int64(2))})
	require.NoError(t, err)
	require.Equal(t, int64(6), tbl.NumRows())

	out := tbl.Column("out0").(*Column[float64])
	if diff := cmp.Diff([]float64{1.5, 0, 3.5, 1.5, 0, 3.5}, out.Values()); diff != "" {
		t.Errorf("row_copier output mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, out.IsNull(1))
	assert.True(t, out.IsNull(4))
	assert.Nil(t, tbl.Column("missing"))
}

func TestRegistry_RuntimeSizingAndFunctionError(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(throwIfGT100()))

	ok := NewColumn([]float32{0, 1, 2, 3})
	tbl, err := reg.Invoke(context.Background(), "throw_if_gt_100", []Arg{ColumnArg(ok)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), tbl.NumRows())

	bad := NewColumn([]float32{0, 1, 2, 110})
	_, err = reg.Invoke(context.Background(), "throw_if_gt_100", []Arg{ColumnArg(bad)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFunctionFailed))
	assert.Contains(t, err.Error(), "value greater than 100")
}

func TestRegistry_SizingMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		sizer Sizer
		run   RunFunc
	}{
		{
			name:  "runtime declared too many",
			sizer: RuntimeSizer(),
			run: func(_ context.Context, mgr *Manager, _ []Arg) (int64, error) {
				if err := mgr.SetOutputRowSize(3); err != nil {
					return 0, err
				}
				return 2, nil
			},
		},
		{
			name:  "runtime never declared",
			sizer: RuntimeSizer(),
			run: func(_ context.Context, _ *Manager, _ []Arg) (int64, error) {
				return 0, nil
			},
		},
		{
			name:  "constant size ignored",
			sizer: ConstantSizer(4),
			run: func(_ context.Context, _ *Manager, _ []Arg) (int64, error) {
				return 1, nil
			},
		},
		{
			name:  "redeclared with a different size",
			sizer: ConstantSizer(4),
			run: func(_ context.Context, mgr *Manager, _ []Arg) (int64, error) {
				if err := mgr.SetOutputRowSize(5); err != nil {
					return 0, err
				}
				return 5, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := NewRegistry()
			require.NoError(t, reg.Register(&Function{
				Name:    "faulty",
				Outputs: []Output{{Name: "out0", Type: TypeInt64}},
				Sizer:   tt.sizer,
				Run:     tt.run,
			}))
			_, err := reg.Invoke(context.Background(), "faulty", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSizingMismatch), "got %v", err)
		})
	}
}

func TestRegistry_UserConstantSizer(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(&Function{
		Name:    "series",
		Args:    []ArgType{ArgInt64},
		Outputs: []Output{{Name: "n", Type: TypeInt64}},
		Sizer:   UserConstantSizer(0),
		Run: func(_ context.Context, mgr *Manager, args []Arg) (int64, error) {
			out, err := OutputAs[int64](mgr, 0)
			if err != nil {
				return 0, err
			}
			for i := int64(0); i < out.Size(); i++ {
				out.Set(i, i*i)
			}
			return out.Size(), nil
		},
	}))

	tbl, err := reg.Invoke(context.Background(), "series", []Arg{ScalarArg(int64(4))})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 4, 9}, tbl.Columns[0].(*Column[int64]).Values())
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(rowCopier()))

	_, err := reg.Lookup("row_copier", []ArgType{ArgColumnFloat32, ArgInt64})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchFunction))
	assert.Contains(t, err.Error(), "row_copier(column<float64>, int64)")

	_, err = reg.Lookup("nope", nil)
	assert.True(t, errors.Is(err, ErrNoSuchFunction))

	assert.Equal(t, []string{"row_copier(column<float64>, int64)"}, reg.Functions())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	t.Parallel()

	run := func(context.Context, *Manager, []Arg) (int64, error) { return 0, nil }
	out := []Output{{Name: "o", Type: TypeFloat64}}

	tests := []struct {
		name string
		fn   *Function
	}{
		{"empty name", &Function{Outputs: out, Run: run}},
		{"no run", &Function{Name: "f", Outputs: out}},
		{"no outputs", &Function{Name: "f", Run: run}},
		{"invalid arg", &Function{Name: "f", Args: []ArgType{ArgInvalid}, Outputs: out, Run: run}},
		{"sizer arg not int64", &Function{Name: "f", Args: []ArgType{ArgBool}, Outputs: out, Run: run, Sizer: UserConstantSizer(0)}},
		{"sizer arg out of range", &Function{Name: "f", Outputs: out, Run: run, Sizer: RowMultiplierSizer(2)}},
		{"negative constant", &Function{Name: "f", Outputs: out, Run: run, Sizer: ConstantSizer(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, NewRegistry().Register(tt.fn))
		})
	}

	reg := NewRegistry()
	require.NoError(t, reg.Register(rowCopier()))
	assert.Error(t, reg.Register(rowCopier()), "duplicate signature")
}

func TestRegistry_InvokeCancelled(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(rowCopier()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Invoke(ctx, "row_copier", []Arg{ColumnArg(NewColumn([]float64{1})), ScalarArg(int64(1))})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_StandaloneOutputs(t *testing.T) {
	t.Parallel()

	mgr := NewManager()
	x := NewOutputColumn[float32](mgr)
	assert.Equal(t, int64(-1), mgr.OutputRowSize())

	require.NoError(t, mgr.SetOutputRowSize(3))
	require.NoError(t, mgr.SetOutputRowSize(3))
	assert.Equal(t, int64(3), x.Size())

	late := NewOutputColumn[int32](mgr)
	assert.Equal(t, int64(3), late.Size())

	_, err := OutputAs[float64](mgr, 0)
	assert.Error(t, err)
	_, err = OutputAs[float32](mgr, 5)
	assert.Error(t, err)

	assert.NoError(t, mgr.Finish(3))
	assert.ErrorIs(t, mgr.Finish(2), ErrSizingMismatch)
	assert.ErrorIs(t, mgr.SetOutputRowSize(-1), ErrSizingMismatch)
}

func TestManager_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("bounds inverted")
	mgr := NewManager()
	err := mgr.Error(cause)
	assert.ErrorIs(t, err, ErrFunctionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bounds inverted", mgr.LastError())
}
