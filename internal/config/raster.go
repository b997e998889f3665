package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical raster defaults file.
const DefaultConfigPath = "config/raster.defaults.json"

// Default values used by the Get* methods when a field is unset.
const (
	DefaultBinDimMeters         = 1.0
	DefaultAlignToZeroBasedGrid = true
	DefaultAlignment            = "auto"
	DefaultWorkers              = 1
	DefaultMaxBins        int64 = 1 << 26
)

// RasterBounds is an explicit raster domain in input coordinate units.
type RasterBounds struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// RasterConfig holds the construction parameters of a raster run. Every
// field is optional; the Get* methods supply defaults.
type RasterConfig struct {
	BinDimMeters             *float64      `json:"bin_dim_meters,omitempty"`
	GeographicCoords         *bool         `json:"geographic_coords,omitempty"`
	AlignBinsToZeroBasedGrid *bool         `json:"align_bins_to_zero_based_grid,omitempty"`
	Alignment                *string       `json:"alignment,omitempty"` // auto, none, max_inclusive, max_exclusive
	NeighborhoodFillRadius   *int64        `json:"neighborhood_fill_radius,omitempty"`
	Bounds                   *RasterBounds `json:"bounds,omitempty"`

	// Execution
	Workers *int   `json:"workers,omitempty"`
	MaxBins *int64 `json:"max_bins,omitempty"`
}

// EmptyRasterConfig returns a RasterConfig with all fields unset.
func EmptyRasterConfig() *RasterConfig {
	return &RasterConfig{}
}

// LoadRasterConfig loads a RasterConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadRasterConfig(path string) (*RasterConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRasterConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *RasterConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRasterConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *RasterConfig) Validate() error {
	if c.BinDimMeters != nil {
		if d := *c.BinDimMeters; !(d > 0) || math.IsInf(d, 0) {
			return fmt.Errorf("bin_dim_meters must be positive and finite, got %v", d)
		}
	}

	if c.Alignment != nil {
		switch *c.Alignment {
		case "auto", "none", "max_inclusive", "max_exclusive":
		default:
			return fmt.Errorf("alignment must be one of auto, none, max_inclusive, max_exclusive, got %q", *c.Alignment)
		}
	}

	if c.NeighborhoodFillRadius != nil && *c.NeighborhoodFillRadius < 0 {
		return fmt.Errorf("neighborhood_fill_radius must be non-negative, got %d", *c.NeighborhoodFillRadius)
	}

	if b := c.Bounds; b != nil {
		for _, v := range []float64{b.XMin, b.XMax, b.YMin, b.YMax} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bounds must be finite, got %+v", *b)
			}
		}
		if b.XMax <= b.XMin || b.YMax <= b.YMin {
			return fmt.Errorf("bounds must satisfy x_min < x_max and y_min < y_max, got %+v", *b)
		}
	}

	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.MaxBins != nil && *c.MaxBins < 1 {
		return fmt.Errorf("max_bins must be positive, got %d", *c.MaxBins)
	}
	return nil
}

// GetBinDimMeters returns the bin edge length in metres.
func (c *RasterConfig) GetBinDimMeters() float64 {
	if c.BinDimMeters == nil {
		return DefaultBinDimMeters
	}
	return *c.BinDimMeters
}

// GetGeographicCoords reports whether inputs are lon/lat degrees.
func (c *RasterConfig) GetGeographicCoords() bool {
	if c.GeographicCoords == nil {
		return false
	}
	return *c.GeographicCoords
}

// GetAlignBinsToZeroBasedGrid reports whether bounds snap to multiples of
// the bin size.
func (c *RasterConfig) GetAlignBinsToZeroBasedGrid() bool {
	if c.AlignBinsToZeroBasedGrid == nil {
		return DefaultAlignToZeroBasedGrid
	}
	return *c.AlignBinsToZeroBasedGrid
}

// GetAlignment returns the alignment policy name.
func (c *RasterConfig) GetAlignment() string {
	if c.Alignment == nil || *c.Alignment == "" {
		return DefaultAlignment
	}
	return *c.Alignment
}

// GetNeighborhoodFillRadius returns the null-fill radius in bins.
func (c *RasterConfig) GetNeighborhoodFillRadius() int64 {
	if c.NeighborhoodFillRadius == nil {
		return 0
	}
	return *c.NeighborhoodFillRadius
}

// GetBounds returns the explicit bounds as x_min, x_max, y_min, y_max and
// whether any were configured.
func (c *RasterConfig) GetBounds() ([4]float64, bool) {
	if c.Bounds == nil {
		return [4]float64{}, false
	}
	b := c.Bounds
	return [4]float64{b.XMin, b.XMax, b.YMin, b.YMax}, true
}

// GetWorkers returns the parallelism for scans, aggregation and emission.
func (c *RasterConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetMaxBins returns the largest grid a run may allocate.
func (c *RasterConfig) GetMaxBins() int64 {
	if c.MaxBins == nil {
		return DefaultMaxBins
	}
	return *c.MaxBins
}
