package georaster

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/georaster/internal/testutil"
	"github.com/banshee-data/georaster/internal/udtf"
)

// threeByThree has data in three corners of a 3x3 grid:
//
//	5 . .
//	. . .
//	1 . 3
func threeByThree(t *testing.T) *Raster[float64, float64] {
	t.Helper()
	var pts testutil.Points
	pts.Add(5, 5, 1)
	pts.Add(25, 5, 3)
	pts.Add(5, 25, 5)
	r := build64Bounds(t, pts, Bounds[float64]{XMin: 0, XMax: 30, YMin: 0, YMax: 30}, DefaultParams(10))
	require.Equal(t, int64(9), r.NumBins())
	return r
}

func TestFillFromNeighbors(t *testing.T) {
	t.Parallel()

	r := threeByThree(t)
	tests := []struct {
		name   string
		x, y   int64
		radius int64
		want   float64
		ok     bool
	}{
		{"centre sees all corners", 1, 1, 1, 3, true},
		{"edge clipped", 1, 0, 1, 2, true},
		{"isolated stays null", 2, 2, 1, 0, false},
		{"wider radius reaches", 2, 2, 2, 3, true},
		{"zero radius on data", 0, 0, 0, 1, true},
		{"zero radius on empty", 1, 1, 0, 0, false},
		{"negative radius", 1, 1, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.FillFromNeighbors(tt.x, tt.y, tt.radius)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			} else {
				assert.Equal(t, NullSentinel[float64](), got)
			}
		})
	}
}

func TestOffsetFromRaster(t *testing.T) {
	t.Parallel()

	r := threeByThree(t)
	v, ok := r.OffsetFromRaster(2, 0, 1.5)
	assert.True(t, ok)
	assert.Equal(t, 4.5, v)

	_, ok = r.OffsetFromRaster(1, 1, 1.5)
	assert.False(t, ok, "empty bin")
	_, ok = r.OffsetFromRaster(3, 0, 1.5)
	assert.False(t, ok, "outside raster")
}

func emitColumns(t *testing.T, r *Raster[float64, float64], radius int64) (*udtf.Manager, [3]*udtf.Column[float64], int64) {
	t.Helper()
	mgr := udtf.NewManager()
	cols := [3]*udtf.Column[float64]{
		udtf.NewOutputColumn[float64](mgr),
		udtf.NewOutputColumn[float64](mgr),
		udtf.NewOutputColumn[float64](mgr),
	}
	n, err := r.OutputDenseColumns(mgr, cols[0], cols[1], cols[2], radius)
	require.NoError(t, err)
	require.NoError(t, mgr.Finish(n))
	return mgr, cols, n
}

func TestOutputDenseColumns(t *testing.T) {
	t.Parallel()

	r := threeByThree(t)
	mgr, cols, n := emitColumns(t, r, 1)

	require.Equal(t, int64(9), n)
	assert.Equal(t, int64(9), mgr.OutputRowSize())

	wantX := []float64{5, 15, 25, 5, 15, 25, 5, 15, 25}
	wantY := []float64{5, 5, 5, 15, 15, 15, 25, 25, 25}
	if diff := cmp.Diff(wantX, cols[0].Values()); diff != "" {
		t.Errorf("x mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantY, cols[1].Values()); diff != "" {
		t.Errorf("y mismatch (-want +got):\n%s", diff)
	}

	wantZ := []float64{1, 2, 3, 3, 3, 3, 5, 5, 0}
	for i, want := range wantZ {
		if i == 8 {
			assert.True(t, cols[2].IsNull(int64(i)), "isolated bin stays null")
			continue
		}
		require.False(t, cols[2].IsNull(int64(i)), "row %d", i)
		assert.InDelta(t, want, cols[2].At(int64(i)), 1e-12, "row %d", i)
	}
	assert.Equal(t, int64(1), cols[2].NullCount())
}

func TestOutputDenseColumnsNoFill(t *testing.T) {
	t.Parallel()

	r := threeByThree(t)
	_, cols, _ := emitColumns(t, r, 0)
	assert.Equal(t, int64(6), cols[2].NullCount())
	assert.False(t, cols[2].IsNull(0))
	assert.Equal(t, 1.0, cols[2].At(0))
}

func TestOutputDenseColumnsEmpty(t *testing.T) {
	t.Parallel()

	r := build64(t, testutil.Points{}, DefaultParams(1))
	mgr, cols, n := emitColumns(t, r, 2)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, int64(0), mgr.OutputRowSize())
	assert.Equal(t, int64(0), cols[0].Size())
}

type acceptAll struct{ n int64 }

func (a *acceptAll) SetOutputRowSize(n int64) error {
	a.n = n
	return nil
}

func TestOutputDenseColumnsErrors(t *testing.T) {
	t.Parallel()

	r := threeByThree(t)

	t.Run("negative radius", func(t *testing.T) {
		mgr := udtf.NewManager()
		c := udtf.NewOutputColumn[float64](mgr)
		_, err := r.OutputDenseColumns(mgr, c, c, c, -1)
		assert.ErrorIs(t, err, ErrInvalidRadius)
		assert.Equal(t, int64(-1), mgr.OutputRowSize(), "nothing declared")

		_, err = r.DenseCells(-1)
		assert.ErrorIs(t, err, ErrInvalidRadius)
	})

	t.Run("size already declared differently", func(t *testing.T) {
		mgr := udtf.NewManager()
		c := udtf.NewOutputColumn[float64](mgr)
		require.NoError(t, mgr.SetOutputRowSize(3))
		_, err := r.OutputDenseColumns(mgr, c, c, c, 0)
		assert.ErrorIs(t, err, udtf.ErrSizingMismatch)
	})

	t.Run("columns too short", func(t *testing.T) {
		sizer := &acceptAll{}
		c := udtf.NewColumn(make([]float64, 4))
		_, err := r.OutputDenseColumns(sizer, c, c, c, 0)
		assert.ErrorIs(t, err, udtf.ErrSizingMismatch)
		assert.Equal(t, int64(9), sizer.n)
	})
}

func TestParallelEmissionMatchesSerial(t *testing.T) {
	t.Parallel()

	pts := testutil.RandomPoints(17, 20_000, 0, 400, 0, 400, 100)
	b := Bounds[float64]{XMin: 0, XMax: 400, YMin: 0, YMax: 400}
	serial := build64Bounds(t, pts, b, DefaultParams(1))

	p := DefaultParams(1)
	p.Workers = 4
	parallel := build64Bounds(t, pts, b, p)
	require.Greater(t, len(partitions(parallel.NumYBins(), 4, minRowsPerWorker/parallel.NumXBins())), 1)

	want, err := serial.DenseCells(2)
	require.NoError(t, err)
	got, err := parallel.DenseCells(2)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parallel emission differs (-serial +parallel):\n%s", diff)
	}
}
