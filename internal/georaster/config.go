package georaster

import "github.com/banshee-data/georaster/internal/config"

// ParamsFromConfig builds construction parameters from a loaded raster
// configuration. Unset fields take the configuration defaults.
func ParamsFromConfig(c *config.RasterConfig) Params {
	return Params{
		BinDimMeters:         c.GetBinDimMeters(),
		GeographicCoords:     c.GetGeographicCoords(),
		AlignToZeroBasedGrid: c.GetAlignBinsToZeroBasedGrid(),
		Alignment:            alignmentFromName(c.GetAlignment()),
		Workers:              c.GetWorkers(),
		MaxBins:              c.GetMaxBins(),
	}
}

// BoundsFromConfig returns the configured explicit bounds, if any.
func BoundsFromConfig[T float32 | float64](c *config.RasterConfig) (Bounds[T], bool) {
	b, ok := c.GetBounds()
	if !ok {
		return Bounds[T]{}, false
	}
	return Bounds[T]{XMin: T(b[0]), XMax: T(b[1]), YMin: T(b[2]), YMax: T(b[3])}, true
}

func alignmentFromName(name string) Alignment {
	switch name {
	case "none":
		return AlignNone
	case "max_inclusive":
		return AlignMaxInclusive
	case "max_exclusive":
		return AlignMaxExclusive
	default:
		return AlignAuto
	}
}
