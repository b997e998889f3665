package georaster

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/georaster/internal/udtf"
)

// Cell is one emitted bin.
type Cell[T, Z any] struct {
	XBin, YBin int64
	X, Y       T
	Z          Z
	Valid      bool
}

// resolve computes the emitted value of every bin: the aggregated value, or
// with radius > 0 the neighbourhood mean for empty bins. Neighbourhood
// reads only touch the aggregated buffer, so y-row partitions run
// independently.
func (r *Raster[T, Z]) resolve(radius int64) ([]Z, []bool) {
	n := r.geom.NumBins
	vals := make([]Z, n)
	ok := make([]bool, n)
	numX := r.geom.NumXBins

	minRows := int64(1)
	if numX > 0 {
		minRows = max(minRowsPerWorker/numX, 1)
	}
	parts := partitions(r.geom.NumYBins, r.workers, minRows)

	var g errgroup.Group
	for _, p := range parts {
		g.Go(func() error {
			var scratch []float64
			for yBin := p.lo; yBin < p.hi; yBin++ {
				for xBin := int64(0); xBin < numX; xBin++ {
					idx := xBin + yBin*numX
					if r.valid.Test(uint(idx)) {
						vals[idx], ok[idx] = r.z[idx], true
						continue
					}
					if radius > 0 {
						vals[idx], ok[idx], scratch = r.fillFromNeighbors(xBin, yBin, radius, scratch)
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return vals, ok
}

// OutputDenseColumns writes one row per bin in row-major order (x fastest):
// the bin centroid and its value. Empty bins are filled with the mean of
// their neighbours within radius when radius > 0 and stay null otherwise.
//
// The row count is declared through sizer before anything is written, and
// the output columns must hold at least that many rows afterwards. The
// number of rows written is returned.
func (r *Raster[T, Z]) OutputDenseColumns(sizer RowSizer, outX, outY OutputColumn[T], outZ OutputColumn[Z], radius int64) (int64, error) {
	if radius < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	n := r.geom.NumBins
	if err := sizer.SetOutputRowSize(n); err != nil {
		return 0, err
	}
	if outX.Size() < n || outY.Size() < n || outZ.Size() < n {
		return 0, fmt.Errorf("%w: output columns hold %d/%d/%d rows, need %d",
			udtf.ErrSizingMismatch, outX.Size(), outY.Size(), outZ.Size(), n)
	}
	if n == 0 {
		return 0, nil
	}

	vals, ok := r.resolve(radius)
	var written, filled int64
	for yBin := int64(0); yBin < r.geom.NumYBins; yBin++ {
		for xBin := int64(0); xBin < r.geom.NumXBins; xBin++ {
			idx := r.Index(xBin, yBin)
			cx, cy := r.Centroid(xBin, yBin)
			outX.Set(idx, cx)
			outY.Set(idx, cy)
			if ok[idx] {
				outZ.Set(idx, vals[idx])
				if !r.valid.Test(uint(idx)) {
					filled++
				}
			} else {
				outZ.SetNull(idx)
			}
			written++
		}
	}
	diagf("emitted %d rows (radius=%d, neighbour-filled=%d)", written, radius, filled)
	return written, nil
}

// DenseCells returns every bin as a Cell, with the same values
// OutputDenseColumns would write.
func (r *Raster[T, Z]) DenseCells(radius int64) ([]Cell[T, Z], error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	vals, ok := r.resolve(radius)
	cells := make([]Cell[T, Z], 0, r.geom.NumBins)
	for yBin := int64(0); yBin < r.geom.NumYBins; yBin++ {
		for xBin := int64(0); xBin < r.geom.NumXBins; xBin++ {
			idx := r.Index(xBin, yBin)
			cx, cy := r.Centroid(xBin, yBin)
			c := Cell[T, Z]{XBin: xBin, YBin: yBin, X: cx, Y: cy, Valid: ok[idx]}
			if ok[idx] {
				c.Z = vals[idx]
			} else {
				c.Z = NullSentinel[Z]()
			}
			cells = append(cells, c)
		}
	}
	return cells, nil
}
