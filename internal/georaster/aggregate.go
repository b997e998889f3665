package georaster

import (
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/georaster/internal/udtf"
)

// binBuffer holds one max-reduced value per bin plus a validity bit.
type binBuffer[Z constraints.Float] struct {
	z     []Z
	valid *bitset.BitSet
}

func newBinBuffer[Z constraints.Float](n int64) binBuffer[Z] {
	z := make([]Z, n)
	sentinel := NullSentinel[Z]()
	for i := range z {
		z[i] = sentinel
	}
	return binBuffer[Z]{z: z, valid: bitset.New(uint(n))}
}

// offer keeps v if the bin is empty or v is strictly greater.
func (b *binBuffer[Z]) offer(idx int64, v Z) {
	if !b.valid.Test(uint(idx)) || v > b.z[idx] {
		b.z[idx] = v
		b.valid.Set(uint(idx))
	}
}

// merge folds o into b with an elementwise max.
func (b *binBuffer[Z]) merge(o binBuffer[Z]) {
	for i, ok := o.valid.NextSet(0); ok; i, ok = o.valid.NextSet(i + 1) {
		b.offer(int64(i), o.z[i])
	}
}

// scatter bins rows [lo, hi) into buf.
func scatter[T, Z constraints.Float, IT, IZ udtf.Number](g *Geometry[T], buf *binBuffer[Z], x, y Column[IT], z Column[IZ], lo, hi int64) AggregateStats {
	var st AggregateStats
	xMin, yMin := float64(g.XMin), float64(g.YMin)
	for row := lo; row < hi; row++ {
		st.Rows++
		if x.IsNull(row) || y.IsNull(row) {
			st.Null++
			continue
		}
		xBin, okX := axisBin(float64(T(x.At(row))), xMin, g.XScaleInputToBin, g.NumXBins)
		yBin, okY := axisBin(float64(T(y.At(row))), yMin, g.YScaleInputToBin, g.NumYBins)
		if !okX || !okY {
			st.OutOfRange++
			continue
		}
		if z.IsNull(row) {
			st.Null++
			continue
		}
		v := Z(z.At(row))
		if v != v { // NaN
			st.Null++
			continue
		}
		buf.offer(xBin+yBin*g.NumXBins, v)
		st.Binned++
	}
	return st
}

// aggregate runs the single scatter pass over the inputs. With more than
// one worker, each partition reduces into its own buffer and the buffers
// are merged by max; this is only done when a partition has at least as
// many rows as there are bins, otherwise the extra buffers cost more than
// they save.
func aggregate[T, Z constraints.Float, IT, IZ udtf.Number](r *Raster[T, Z], x, y Column[IT], z Column[IZ]) {
	n := z.Size()
	main := newBinBuffer[Z](r.geom.NumBins)
	parts := partitions(n, r.workers, minRowsPerWorker)
	if len(parts) > 1 && r.geom.NumBins > n/int64(len(parts)) {
		parts = []span{{0, n}}
	}

	if len(parts) == 1 {
		r.stats = scatter(&r.geom, &main, x, y, z, 0, n)
	} else {
		bufs := make([]binBuffer[Z], len(parts))
		stats := make([]AggregateStats, len(parts))
		var g errgroup.Group
		for i, p := range parts {
			g.Go(func() error {
				bufs[i] = newBinBuffer[Z](r.geom.NumBins)
				stats[i] = scatter(&r.geom, &bufs[i], x, y, z, p.lo, p.hi)
				tracef("partition %d rows [%d, %d): %+v", i, p.lo, p.hi, stats[i])
				return nil
			})
		}
		_ = g.Wait()
		for i := range bufs {
			main.merge(bufs[i])
			r.stats.add(stats[i])
		}
	}

	r.z = main.z
	r.valid = main.valid
	diagf("aggregated %d rows with %d workers: binned=%d out_of_range=%d null=%d filled_bins=%d/%d",
		r.stats.Rows, len(parts), r.stats.Binned, r.stats.OutOfRange, r.stats.Null, r.valid.Count(), r.geom.NumBins)
}
