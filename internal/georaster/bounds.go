package georaster

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/georaster/internal/udtf"
)

// minRowsPerWorker keeps small inputs on a single goroutine.
const minRowsPerWorker = 1 << 14

// binCountSlack absorbs rounding in range/d when the range is a whole
// number of bins, as it is after alignment.
const binCountSlack = 1e-9

// maxLongitudeExtent is the widest longitude span whose metres per degree
// can be measured; wider spans would measure the short arc instead.
const maxLongitudeExtent = 180.0

type span struct{ lo, hi int64 }

// partitions splits [0, n) into at most workers contiguous spans of at
// least minPer items each.
func partitions(n int64, workers int, minPer int64) []span {
	if minPer < 1 {
		minPer = 1
	}
	if workers <= 1 || n < 2*minPer {
		return []span{{0, n}}
	}
	if limit := n / minPer; int64(workers) > limit {
		workers = int(limit)
	}
	parts := make([]span, 0, workers)
	step := (n + int64(workers) - 1) / int64(workers)
	for lo := int64(0); lo < n; lo += step {
		hi := lo + step
		if hi > n {
			hi = n
		}
		parts = append(parts, span{lo, hi})
	}
	return parts
}

type minMax[T constraints.Float] struct {
	min, max T
	ok       bool
}

func (m *minMax[T]) observe(v T) {
	if !m.ok {
		m.min, m.max, m.ok = v, v, true
		return
	}
	if v < m.min {
		m.min = v
	}
	if v > m.max {
		m.max = v
	}
}

func (m *minMax[T]) merge(o minMax[T]) {
	if o.ok {
		m.observe(o.min)
		m.observe(o.max)
	}
}

// ColumnMinMax scans col for its minimum and maximum non-null values,
// converted to T. Non-finite rows are skipped. ok is false when no row qualifies.
// With workers > 1 the scan is split into partitions whose results are
// combined; the result does not depend on the split.
func ColumnMinMax[T constraints.Float, I udtf.Number](col Column[I], workers int) (lo, hi T, ok bool) {
	parts := partitions(col.Size(), workers, minRowsPerWorker)
	results := make([]minMax[T], len(parts))

	var g errgroup.Group
	for i, p := range parts {
		g.Go(func() error {
			var m minMax[T]
			for row := p.lo; row < p.hi; row++ {
				if col.IsNull(row) {
					continue
				}
				// Values that are NaN, infinite, or overflow T are excluded
				// from the scan and later binned as out of range.
				v := T(col.At(row))
				if !finite(float64(v)) {
					continue
				}
				m.observe(v)
			}
			results[i] = m
			return nil
		})
	}
	_ = g.Wait()

	var out minMax[T]
	for _, r := range results {
		out.merge(r)
	}
	return out.min, out.max, out.ok
}

// AlignBounds snaps b to multiples of d according to mode. AlignAuto and
// AlignNone return b unchanged.
func AlignBounds[T constraints.Float](b Bounds[T], d float64, mode Alignment) Bounds[T] {
	floorTo := func(v T) T { return T(math.Floor(float64(v)/d) * d) }
	switch mode {
	case AlignMaxInclusive:
		return Bounds[T]{
			XMin: floorTo(b.XMin),
			XMax: T(math.Floor(float64(b.XMax)/d)*d + d),
			YMin: floorTo(b.YMin),
			YMax: T(math.Floor(float64(b.YMax)/d)*d + d),
		}
	case AlignMaxExclusive:
		return Bounds[T]{
			XMin: floorTo(b.XMin),
			XMax: T(math.Ceil(float64(b.XMax)/d) * d),
			YMin: floorTo(b.YMin),
			YMax: T(math.Ceil(float64(b.YMax)/d) * d),
		}
	default:
		return b
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// validateBinDim rejects bin sizes that would divide by zero or flip the grid.
func validateBinDim(d float64) error {
	if !(d > 0) || math.IsInf(d, 0) {
		return fmt.Errorf("%w: bin_dim_meters must be positive and finite, got %v", ErrInvalidDomain, d)
	}
	return nil
}

func validateBounds[T constraints.Float](b Bounds[T], geographic bool) error {
	if !finite(float64(b.XMin), float64(b.XMax), float64(b.YMin), float64(b.YMax)) {
		return fmt.Errorf("%w: non-finite bounds x=[%v, %v] y=[%v, %v]", ErrInvalidDomain, b.XMin, b.XMax, b.YMin, b.YMax)
	}
	if b.XMax <= b.XMin || b.YMax <= b.YMin {
		return fmt.Errorf("%w: degenerate or inverted bounds x=[%v, %v] y=[%v, %v]", ErrInvalidDomain, b.XMin, b.XMax, b.YMin, b.YMax)
	}
	if geographic && (b.YMin < -90 || b.YMax > 90) {
		return fmt.Errorf("%w: latitude range [%v, %v] outside [-90, 90]", ErrInvalidDomain, b.YMin, b.YMax)
	}
	if geographic && float64(b.XMax)-float64(b.XMin) > maxLongitudeExtent {
		return fmt.Errorf("%w: longitude extent %v exceeds %v degrees", ErrInvalidDomain, float64(b.XMax)-float64(b.XMin), maxLongitudeExtent)
	}
	return nil
}

// newGeometry aligns b and derives bin counts and scales. explicitBounds
// selects the AlignAuto policy.
func newGeometry[T constraints.Float](b Bounds[T], p Params, explicitBounds bool) (Geometry[T], error) {
	d := p.BinDimMeters
	if err := validateBinDim(d); err != nil {
		return Geometry[T]{}, err
	}

	mode := p.resolveAlignment(explicitBounds)
	b = AlignBounds(b, d, mode)
	if err := validateBounds(b, p.GeographicCoords); err != nil {
		return Geometry[T]{}, err
	}

	g := Geometry[T]{
		BinDimMeters:     d,
		GeographicCoords: p.GeographicCoords,
		Alignment:        mode,
		XMin:             b.XMin,
		XMax:             b.XMax,
		YMin:             b.YMin,
		YMax:             b.YMax,
		XRange:           b.XMax - b.XMin,
		YRange:           b.YMax - b.YMin,
	}
	xRange, yRange := float64(g.XRange), float64(g.YRange)

	var fx, fy float64
	if p.GeographicCoords {
		xCentroid := (float64(b.XMin) + float64(b.XMax)) * 0.5
		yCentroid := (float64(b.YMin) + float64(b.YMax)) * 0.5
		g.XMetersPerDegree = distanceInMeters(float64(b.XMin), yCentroid, float64(b.XMax), yCentroid) / xRange
		g.YMetersPerDegree = distanceInMeters(xCentroid, float64(b.YMin), xCentroid, float64(b.YMax)) / yRange
		if !(g.XMetersPerDegree > 0) || !(g.YMetersPerDegree > 0) || !finite(g.XMetersPerDegree, g.YMetersPerDegree) {
			return Geometry[T]{}, fmt.Errorf("%w: cannot derive meters per degree (x=%v, y=%v)", ErrInvalidDomain, g.XMetersPerDegree, g.YMetersPerDegree)
		}

		fx = math.Trunc(xRange*g.XMetersPerDegree/d + binCountSlack)
		fy = math.Trunc(yRange*g.YMetersPerDegree/d + binCountSlack)

		g.XScaleInputToBin = g.XMetersPerDegree / d
		g.YScaleInputToBin = g.YMetersPerDegree / d
		g.XScaleBinToInput = d / g.XMetersPerDegree
		g.YScaleBinToInput = d / g.YMetersPerDegree
	} else {
		fx = math.Floor(xRange/d + binCountSlack)
		fy = math.Floor(yRange/d + binCountSlack)

		g.XScaleInputToBin = 1 / d
		g.YScaleInputToBin = 1 / d
		g.XScaleBinToInput = d
		g.YScaleBinToInput = d
	}

	if fx < 1 || fy < 1 {
		return Geometry[T]{}, fmt.Errorf("%w: domain %v x %v is narrower than one %v m bin", ErrInvalidDomain, g.XRange, g.YRange, d)
	}
	if maxBins := p.maxBins(); fx*fy > float64(maxBins) {
		return Geometry[T]{}, fmt.Errorf("%w: %.0f x %.0f bins exceeds limit %d", ErrGridTooLarge, fx, fy, maxBins)
	}

	g.NumXBins = int64(fx)
	g.NumYBins = int64(fy)
	g.NumBins = g.NumXBins * g.NumYBins
	return g, nil
}
