package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/georaster/internal/testutil"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testutil.AssertNoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyRasterConfigDefaults(t *testing.T) {
	cfg := EmptyRasterConfig()

	if got := cfg.GetBinDimMeters(); got != DefaultBinDimMeters {
		t.Errorf("GetBinDimMeters() = %v, want %v", got, DefaultBinDimMeters)
	}
	if cfg.GetGeographicCoords() {
		t.Error("GetGeographicCoords() = true, want false")
	}
	if !cfg.GetAlignBinsToZeroBasedGrid() {
		t.Error("GetAlignBinsToZeroBasedGrid() = false, want true")
	}
	if got := cfg.GetAlignment(); got != "auto" {
		t.Errorf("GetAlignment() = %q, want auto", got)
	}
	if got := cfg.GetNeighborhoodFillRadius(); got != 0 {
		t.Errorf("GetNeighborhoodFillRadius() = %d, want 0", got)
	}
	if _, ok := cfg.GetBounds(); ok {
		t.Error("GetBounds() reported bounds on an empty config")
	}
	if got := cfg.GetWorkers(); got != 1 {
		t.Errorf("GetWorkers() = %d, want 1", got)
	}
	if got := cfg.GetMaxBins(); got != 1<<26 {
		t.Errorf("GetMaxBins() = %d, want %d", got, int64(1<<26))
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	// The defaults file and the Get* fallbacks must agree.
	empty := EmptyRasterConfig()
	if cfg.GetBinDimMeters() != empty.GetBinDimMeters() {
		t.Errorf("bin_dim_meters: file %v, fallback %v", cfg.GetBinDimMeters(), empty.GetBinDimMeters())
	}
	if cfg.GetAlignBinsToZeroBasedGrid() != empty.GetAlignBinsToZeroBasedGrid() {
		t.Errorf("align_bins_to_zero_based_grid: file %v, fallback %v", cfg.GetAlignBinsToZeroBasedGrid(), empty.GetAlignBinsToZeroBasedGrid())
	}
	if cfg.GetWorkers() != empty.GetWorkers() {
		t.Errorf("workers: file %d, fallback %d", cfg.GetWorkers(), empty.GetWorkers())
	}
	if cfg.GetMaxBins() != empty.GetMaxBins() {
		t.Errorf("max_bins: file %d, fallback %d", cfg.GetMaxBins(), empty.GetMaxBins())
	}
}

func TestLoadRasterConfig(t *testing.T) {
	path := writeConfig(t, "raster.json", `{
  "bin_dim_meters": 2.5,
  "geographic_coords": true,
  "neighborhood_fill_radius": 3,
  "bounds": {"x_min": -10, "x_max": 10, "y_min": 0, "y_max": 40},
  "workers": 4
}`)

	cfg, err := LoadRasterConfig(path)
	testutil.AssertNoError(t, err)
	testutil.AssertFloatNear(t, cfg.GetBinDimMeters(), 2.5, 0)
	if !cfg.GetGeographicCoords() {
		t.Error("GetGeographicCoords() = false, want true")
	}
	if got := cfg.GetNeighborhoodFillRadius(); got != 3 {
		t.Errorf("GetNeighborhoodFillRadius() = %d, want 3", got)
	}
	b, ok := cfg.GetBounds()
	if !ok || b != [4]float64{-10, 10, 0, 40} {
		t.Errorf("GetBounds() = %v, %v; want [-10 10 0 40], true", b, ok)
	}
	if got := cfg.GetWorkers(); got != 4 {
		t.Errorf("GetWorkers() = %d, want 4", got)
	}
	// Omitted fields keep defaults.
	if !cfg.GetAlignBinsToZeroBasedGrid() {
		t.Error("GetAlignBinsToZeroBasedGrid() = false, want default true")
	}
}

func TestLoadRasterConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "raster.yaml", `{}`, ".json extension"},
		{"bad json", "raster.json", `{"bin_dim_meters": "wide"`, "parse config JSON"},
		{"zero bin", "raster.json", `{"bin_dim_meters": 0}`, "bin_dim_meters"},
		{"negative radius", "raster.json", `{"neighborhood_fill_radius": -1}`, "neighborhood_fill_radius"},
		{"unknown alignment", "raster.json", `{"alignment": "centre"}`, "alignment"},
		{"inverted bounds", "raster.json", `{"bounds": {"x_min": 5, "x_max": 1, "y_min": 0, "y_max": 1}}`, "bounds"},
		{"zero workers", "raster.json", `{"workers": 0}`, "workers"},
		{"zero max bins", "raster.json", `{"max_bins": 0}`, "max_bins"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadRasterConfig(path)
			testutil.AssertError(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRasterConfigMissing(t *testing.T) {
	_, err := LoadRasterConfig("/nonexistent/path/to/raster.json")
	testutil.AssertError(t, err)
}

func TestLoadRasterConfigTooLarge(t *testing.T) {
	body := `{"alignment": "auto", "pad": "` + strings.Repeat("x", 1024*1024) + `"}`
	path := writeConfig(t, "big.json", body)
	_, err := LoadRasterConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("LoadRasterConfig() error = %v, want size error", err)
	}
}
