package georaster

import (
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/exp/constraints"

	"github.com/banshee-data/georaster/internal/udtf"
)

// Raster is a dense grid of max-aggregated values over a rectangular domain.
// T is the coordinate type and Z the value type. Geometry is fixed at
// construction; the value buffer is written only by the aggregation pass
// inside New/NewWithBounds and is read-only afterwards, so a Raster may be
// read from several goroutines.
type Raster[T, Z constraints.Float] struct {
	geom    Geometry[T]
	z       []Z
	valid   *bitset.BitSet
	stats   AggregateStats
	workers int
}

// New builds a raster whose bounds are the min/max of the x and y inputs.
// Inputs of any numeric type are converted to T and Z. With
// AlignToZeroBasedGrid the bounds are snapped max-inclusive, so samples on
// the data maximum keep a bin.
//
// Zero input rows (or rows whose coordinates are all null) produce an empty
// raster with NumBins == 0 and no error.
func New[T, Z constraints.Float, IT, IZ udtf.Number](x, y Column[IT], z Column[IZ], p Params) (*Raster[T, Z], error) {
	if err := checkInputs(x, y, z); err != nil {
		return nil, err
	}
	if err := validateBinDim(p.BinDimMeters); err != nil {
		return nil, err
	}
	if z.Size() == 0 {
		return emptyRaster[T, Z](p), nil
	}

	xMin, xMax, okX := ColumnMinMax[T](x, p.workers())
	yMin, yMax, okY := ColumnMinMax[T](y, p.workers())
	if !okX || !okY {
		diagf("no non-null coordinates in %d rows; raster is empty", z.Size())
		return emptyRaster[T, Z](p), nil
	}

	geom, err := newGeometry(Bounds[T]{XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax}, p, false)
	if err != nil {
		return nil, err
	}
	return build[T, Z](geom, p, x, y, z), nil
}

// NewWithBounds builds a raster over caller-supplied bounds. With
// AlignToZeroBasedGrid the bounds are snapped max-exclusive, so a range that
// is already a multiple of the bin size keeps exactly that many bins.
// Samples outside the bounds are ignored.
func NewWithBounds[T, Z constraints.Float, IT, IZ udtf.Number](x, y Column[IT], z Column[IZ], b Bounds[T], p Params) (*Raster[T, Z], error) {
	if err := checkInputs(x, y, z); err != nil {
		return nil, err
	}
	if err := validateBinDim(p.BinDimMeters); err != nil {
		return nil, err
	}
	if err := validateBounds(b, p.GeographicCoords); err != nil {
		return nil, err
	}
	if z.Size() == 0 {
		return emptyRaster[T, Z](p), nil
	}

	geom, err := newGeometry(b, p, true)
	if err != nil {
		return nil, err
	}
	return build[T, Z](geom, p, x, y, z), nil
}

func checkInputs[IT, IZ udtf.Number](x, y Column[IT], z Column[IZ]) error {
	if x.Size() != z.Size() || y.Size() != z.Size() {
		return fmt.Errorf("input columns differ in length: x=%d y=%d z=%d", x.Size(), y.Size(), z.Size())
	}
	return nil
}

func emptyRaster[T, Z constraints.Float](p Params) *Raster[T, Z] {
	return &Raster[T, Z]{
		geom: Geometry[T]{
			BinDimMeters:     p.BinDimMeters,
			GeographicCoords: p.GeographicCoords,
			Alignment:        AlignNone,
		},
		valid:   bitset.New(0),
		workers: p.workers(),
	}
}

func build[T, Z constraints.Float, IT, IZ udtf.Number](geom Geometry[T], p Params, x, y Column[IT], z Column[IZ]) *Raster[T, Z] {
	r := &Raster[T, Z]{geom: geom, workers: p.workers()}
	diagf("raster %dx%d bins (%d total), bin=%gm geographic=%t align=%s x=[%v, %v] y=[%v, %v]",
		geom.NumXBins, geom.NumYBins, geom.NumBins, geom.BinDimMeters, geom.GeographicCoords,
		geom.Alignment, geom.XMin, geom.XMax, geom.YMin, geom.YMax)
	aggregate(r, x, y, z)
	return r
}

// NullSentinel returns the lowest representable Z. Empty bins hold this
// value in DenseValues; validity is tracked separately, so a sample equal to
// the sentinel is still a real value.
func NullSentinel[Z constraints.Float]() Z {
	var zero Z
	if _, ok := any(zero).(float32); ok {
		v := float32(-math.MaxFloat32)
		return Z(v)
	}
	v := -math.MaxFloat64
	return Z(v)
}

// Geometry returns the raster's bounds, bin counts and scales.
func (r *Raster[T, Z]) Geometry() Geometry[T] { return r.geom }

// NumXBins returns the number of bins along x.
func (r *Raster[T, Z]) NumXBins() int64 { return r.geom.NumXBins }

// NumYBins returns the number of bins along y.
func (r *Raster[T, Z]) NumYBins() int64 { return r.geom.NumYBins }

// NumBins returns NumXBins * NumYBins.
func (r *Raster[T, Z]) NumBins() int64 { return r.geom.NumBins }

// Stats returns the per-row outcome counts of the aggregation pass.
func (r *Raster[T, Z]) Stats() AggregateStats { return r.stats }

// Index returns the dense index of a bin. It does not check bounds.
func (r *Raster[T, Z]) Index(xBin, yBin int64) int64 {
	return xBin + yBin*r.geom.NumXBins
}

// InBounds reports whether (xBin, yBin) addresses a bin of the raster.
func (r *Raster[T, Z]) InBounds(xBin, yBin int64) bool {
	return xBin >= 0 && xBin < r.geom.NumXBins && yBin >= 0 && yBin < r.geom.NumYBins
}

// Value returns the aggregated value of a bin and whether it holds data.
func (r *Raster[T, Z]) Value(xBin, yBin int64) (Z, bool) {
	if !r.InBounds(xBin, yBin) {
		return NullSentinel[Z](), false
	}
	idx := r.Index(xBin, yBin)
	if !r.valid.Test(uint(idx)) {
		return NullSentinel[Z](), false
	}
	return r.z[idx], true
}

// DenseValues returns a copy of the value buffer in row-major order. Empty
// bins hold NullSentinel.
func (r *Raster[T, Z]) DenseValues() []Z {
	out := make([]Z, len(r.z))
	copy(out, r.z)
	return out
}

// FilledBins returns the number of bins holding data.
func (r *Raster[T, Z]) FilledBins() int64 { return int64(r.valid.Count()) }

// BinOf maps a coordinate to its bin. ok is false when the coordinate lies
// outside the raster.
func (r *Raster[T, Z]) BinOf(x, y T) (xBin, yBin int64, ok bool) {
	xBin, okX := axisBin(float64(x), float64(r.geom.XMin), r.geom.XScaleInputToBin, r.geom.NumXBins)
	yBin, okY := axisBin(float64(y), float64(r.geom.YMin), r.geom.YScaleInputToBin, r.geom.NumYBins)
	return xBin, yBin, okX && okY
}

// Centroid returns the centre of a bin in input coordinates.
func (r *Raster[T, Z]) Centroid(xBin, yBin int64) (x, y T) {
	x = T(float64(r.geom.XMin) + (float64(xBin)+0.5)*r.geom.XScaleBinToInput)
	y = T(float64(r.geom.YMin) + (float64(yBin)+0.5)*r.geom.YScaleBinToInput)
	return x, y
}

// axisBin floors (v-lo)*scale and rejects results outside [0, n). NaN
// coordinates are rejected.
func axisBin(v, lo, scale float64, n int64) (int64, bool) {
	f := math.Floor((v - lo) * scale)
	if !(f >= 0 && f < float64(n)) {
		return 0, false
	}
	return int64(f), true
}
