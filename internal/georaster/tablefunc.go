package georaster

import (
	"context"
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/banshee-data/georaster/internal/udtf"
)

// FunctionName is the name tf_geo_rasterize is registered under.
const FunctionName = "tf_geo_rasterize"

// Output column names.
const (
	OutputX = "x"
	OutputY = "y"
	OutputZ = "z"
)

// Argument positions shared by both forms. The explicit-bounds form appends
// x_min, x_max, y_min, y_max.
const (
	argX = iota
	argY
	argZ
	argBinDim
	argGeographic
	argFillRadius
	argXMin
	argXMax
	argYMin
	argYMax
)

// RegisterTableFunctions registers tf_geo_rasterize for every combination of
// float32 and float64 coordinates and values, in both the data-derived and
// explicit-bounds forms. Fields of base not carried by the call arguments
// (alignment, workers, bin limit) apply to every invocation.
func RegisterTableFunctions(reg *udtf.Registry, base Params) error {
	fns := []*udtf.Function{
		rasterizeFunction[float32, float32](base, false),
		rasterizeFunction[float32, float64](base, false),
		rasterizeFunction[float64, float32](base, false),
		rasterizeFunction[float64, float64](base, false),
		rasterizeFunction[float32, float32](base, true),
		rasterizeFunction[float32, float64](base, true),
		rasterizeFunction[float64, float32](base, true),
		rasterizeFunction[float64, float64](base, true),
	}
	for _, fn := range fns {
		if err := reg.Register(fn); err != nil {
			return err
		}
	}
	return nil
}

func rasterizeFunction[T, Z constraints.Float](base Params, explicitBounds bool) *udtf.Function {
	args := []udtf.ArgType{
		udtf.ColumnArgType[T](),
		udtf.ColumnArgType[T](),
		udtf.ColumnArgType[Z](),
		udtf.ArgFloat64,
		udtf.ArgBool,
		udtf.ArgInt64,
	}
	if explicitBounds {
		args = append(args, udtf.ArgFloat64, udtf.ArgFloat64, udtf.ArgFloat64, udtf.ArgFloat64)
	}
	return &udtf.Function{
		Name: FunctionName,
		Args: args,
		Outputs: []udtf.Output{
			{Name: OutputX, Type: udtf.TypeOf[T]()},
			{Name: OutputY, Type: udtf.TypeOf[T]()},
			{Name: OutputZ, Type: udtf.TypeOf[Z]()},
		},
		Sizer: udtf.RuntimeSizer(),
		Run: func(ctx context.Context, mgr *udtf.Manager, in []udtf.Arg) (int64, error) {
			return runRasterize[T, Z](ctx, mgr, in, base, explicitBounds)
		},
	}
}

type rasterizeArgs[T, Z constraints.Float] struct {
	x, y   *udtf.Column[T]
	z      *udtf.Column[Z]
	params Params
	radius int64
	bounds Bounds[T]
}

func bindRasterizeArgs[T, Z constraints.Float](in []udtf.Arg, base Params, explicitBounds bool) (rasterizeArgs[T, Z], error) {
	var a rasterizeArgs[T, Z]
	var err error
	if a.x, err = udtf.ColumnAs[T](in[argX]); err != nil {
		return a, fmt.Errorf("x: %w", err)
	}
	if a.y, err = udtf.ColumnAs[T](in[argY]); err != nil {
		return a, fmt.Errorf("y: %w", err)
	}
	if a.z, err = udtf.ColumnAs[Z](in[argZ]); err != nil {
		return a, fmt.Errorf("z: %w", err)
	}

	a.params = base
	if a.params.BinDimMeters, err = udtf.ScalarAs[float64](in[argBinDim]); err != nil {
		return a, fmt.Errorf("bin_dim_meters: %w", err)
	}
	if a.params.GeographicCoords, err = udtf.ScalarAs[bool](in[argGeographic]); err != nil {
		return a, fmt.Errorf("geographic_coords: %w", err)
	}
	if a.radius, err = udtf.ScalarAs[int64](in[argFillRadius]); err != nil {
		return a, fmt.Errorf("neighborhood_fill_radius: %w", err)
	}
	if !explicitBounds {
		return a, nil
	}

	var b [4]float64
	for i := range b {
		if b[i], err = udtf.ScalarAs[float64](in[argXMin+i]); err != nil {
			return a, fmt.Errorf("bounds argument %d: %w", i, err)
		}
	}
	a.bounds = Bounds[T]{XMin: T(b[0]), XMax: T(b[1]), YMin: T(b[2]), YMax: T(b[3])}
	return a, nil
}

func runRasterize[T, Z constraints.Float](ctx context.Context, mgr *udtf.Manager, in []udtf.Arg, base Params, explicitBounds bool) (int64, error) {
	a, err := bindRasterizeArgs[T, Z](in, base, explicitBounds)
	if err != nil {
		return 0, mgr.Error(err)
	}
	if a.radius < 0 {
		return 0, mgr.Error(fmt.Errorf("%w: %d", ErrInvalidRadius, a.radius))
	}

	var r *Raster[T, Z]
	if explicitBounds {
		r, err = NewWithBounds[T, Z, T, Z](a.x, a.y, a.z, a.bounds, a.params)
	} else {
		r, err = New[T, Z, T, Z](a.x, a.y, a.z, a.params)
	}
	if err != nil {
		opsf("%s: %v", FunctionName, err)
		return 0, mgr.Error(err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	outX, err := udtf.OutputAs[T](mgr, 0)
	if err != nil {
		return 0, err
	}
	outY, err := udtf.OutputAs[T](mgr, 1)
	if err != nil {
		return 0, err
	}
	outZ, err := udtf.OutputAs[Z](mgr, 2)
	if err != nil {
		return 0, err
	}
	return r.OutputDenseColumns(mgr, outX, outY, outZ, a.radius)
}
