package georaster

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/banshee-data/georaster/internal/udtf"
)

var (
	// ErrInvalidDomain reports degenerate or inverted bounds, a non-positive
	// bin size, or a domain narrower than a single bin.
	ErrInvalidDomain = errors.New("invalid raster domain")

	// ErrGridTooLarge reports a bin count above Params.MaxBins.
	ErrGridTooLarge = errors.New("raster grid too large")

	// ErrInvalidRadius reports a negative neighbourhood fill radius.
	ErrInvalidRadius = errors.New("invalid neighborhood fill radius")
)

// DefaultMaxBins bounds the dense buffer when Params.MaxBins is zero.
const DefaultMaxBins int64 = 1 << 26

// Column is the read side of an input column. *udtf.Column satisfies it.
type Column[T udtf.Number] interface {
	Size() int64
	At(i int64) T
	IsNull(i int64) bool
}

// OutputColumn is the write side of an output column.
type OutputColumn[T udtf.Number] interface {
	Size() int64
	Set(i int64, v T)
	SetNull(i int64)
}

// RowSizer receives the output row count before any row is written.
// *udtf.Manager satisfies it.
type RowSizer interface {
	SetOutputRowSize(n int64) error
}

// Alignment selects how bounds are snapped to multiples of the bin size.
type Alignment int

const (
	// AlignAuto picks the policy from how the raster is constructed:
	// max-inclusive for data-derived bounds, max-exclusive for explicit
	// bounds, and none when Params.AlignToZeroBasedGrid is false.
	AlignAuto Alignment = iota
	// AlignNone uses the bounds verbatim.
	AlignNone
	// AlignMaxInclusive floors the minimum and places the maximum at the
	// end of the bin containing it, so a sample on the max edge keeps a bin.
	AlignMaxInclusive
	// AlignMaxExclusive floors the minimum and ceils the maximum, so a range
	// that is already a multiple of the bin size keeps its bin count.
	AlignMaxExclusive
)

func (a Alignment) String() string {
	switch a {
	case AlignAuto:
		return "auto"
	case AlignNone:
		return "none"
	case AlignMaxInclusive:
		return "max_inclusive"
	case AlignMaxExclusive:
		return "max_exclusive"
	default:
		return fmt.Sprintf("Alignment(%d)", int(a))
	}
}

// Bounds is a rectangular domain in input coordinate units.
type Bounds[T constraints.Float] struct {
	XMin, XMax T
	YMin, YMax T
}

// Params are the construction parameters of a Raster.
type Params struct {
	BinDimMeters         float64
	GeographicCoords     bool
	AlignToZeroBasedGrid bool
	// Alignment overrides the call-site policy when not AlignAuto.
	// Ignored for geographic coordinates.
	Alignment Alignment
	// Workers > 1 splits the bounds scan, aggregation and neighbourhood
	// fill across that many goroutines.
	Workers int
	// MaxBins caps NumBins; zero means DefaultMaxBins.
	MaxBins int64
}

// DefaultParams returns planar parameters with alignment enabled.
func DefaultParams(binDimMeters float64) Params {
	return Params{
		BinDimMeters:         binDimMeters,
		AlignToZeroBasedGrid: true,
		Workers:              1,
	}
}

func (p Params) maxBins() int64 {
	if p.MaxBins <= 0 {
		return DefaultMaxBins
	}
	return p.MaxBins
}

func (p Params) workers() int {
	if p.Workers < 1 {
		return 1
	}
	return p.Workers
}

// resolveAlignment maps AlignAuto onto a concrete policy for the given
// construction mode.
func (p Params) resolveAlignment(explicitBounds bool) Alignment {
	if p.GeographicCoords {
		return AlignNone
	}
	if p.Alignment != AlignAuto {
		return p.Alignment
	}
	if !p.AlignToZeroBasedGrid {
		return AlignNone
	}
	if explicitBounds {
		return AlignMaxExclusive
	}
	return AlignMaxInclusive
}

// Geometry is the immutable shape of a raster: final bounds, bin counts and
// scales. Bounds are in the coordinate type; scales are float64.
type Geometry[T constraints.Float] struct {
	BinDimMeters     float64
	GeographicCoords bool
	Alignment        Alignment

	XMin, XMax T
	YMin, YMax T
	XRange     T
	YRange     T

	// Only meaningful when GeographicCoords is true.
	XMetersPerDegree float64
	YMetersPerDegree float64

	NumXBins int64
	NumYBins int64
	NumBins  int64

	XScaleInputToBin float64
	YScaleInputToBin float64
	XScaleBinToInput float64
	YScaleBinToInput float64
}

// AggregateStats counts what happened to each input row.
type AggregateStats struct {
	Rows       int64
	Binned     int64
	OutOfRange int64
	Null       int64
}

func (s *AggregateStats) add(o AggregateStats) {
	s.Rows += o.Rows
	s.Binned += o.Binned
	s.OutOfRange += o.OutOfRange
	s.Null += o.Null
}
