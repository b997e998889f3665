// Command georaster grids point samples stored in SQLite into a max-height
// raster with tf_geo_rasterize, then persists or exports the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/georaster/internal/config"
	"github.com/banshee-data/georaster/internal/georaster"
	"github.com/banshee-data/georaster/internal/monitoring"
	"github.com/banshee-data/georaster/internal/render"
	"github.com/banshee-data/georaster/internal/storage/sqlite"
	"github.com/banshee-data/georaster/internal/udtf"
	"github.com/banshee-data/georaster/internal/version"
)

type options struct {
	dbPath     string
	dataset    string
	query      string
	configPath string
	save       bool
	ascPath    string
	pngPath    string
	htmlPath   string
	listRuns   int
	deleteRun  string
	migrate    string
}

func main() {
	var o options
	var binDim float64
	var geographic bool
	var radius int64
	var boundsStr string
	var workers int
	var diag bool
	var showVersion bool

	flag.StringVar(&o.dbPath, "db", "georaster.db", "path to sqlite db")
	flag.StringVar(&o.dataset, "dataset", "", "dataset to read from the points table")
	flag.StringVar(&o.query, "query", "", "SQL returning x, y, z columns (overrides -dataset)")
	flag.StringVar(&o.configPath, "config", "", "raster config JSON (see "+config.DefaultConfigPath+")")
	flag.Float64Var(&binDim, "bin", config.DefaultBinDimMeters, "bin edge length in metres")
	flag.BoolVar(&geographic, "geo", false, "inputs are lon/lat degrees")
	flag.Int64Var(&radius, "radius", 0, "neighbourhood null-fill radius in bins")
	flag.StringVar(&boundsStr, "bounds", "", "explicit bounds as x_min,x_max,y_min,y_max")
	flag.IntVar(&workers, "workers", config.DefaultWorkers, "parallel workers")
	flag.BoolVar(&o.save, "save", false, "store the raster as a run in the database")
	flag.StringVar(&o.ascPath, "asc", "", "write an ESRI ASCII grid to this path")
	flag.StringVar(&o.pngPath, "png", "", "write a PNG heat map to this path")
	flag.StringVar(&o.htmlPath, "html", "", "write an HTML chart to this path")
	flag.IntVar(&o.listRuns, "list", 0, "list the N most recent stored runs and exit")
	flag.StringVar(&o.deleteRun, "delete", "", "delete the stored run with this id and exit")
	flag.StringVar(&o.migrate, "migrate", "", "schema action and exit: up, down or status")
	flag.BoolVar(&diag, "diag", false, "log diagnostics to stderr")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String("georaster"))
		return
	}

	if diag {
		georaster.SetLogWriters(os.Stderr, os.Stderr, nil)
		udtf.SetLogWriters(os.Stderr, os.Stderr, nil)
		sqlite.SetLogWriters(os.Stderr, os.Stderr, nil)
		monitoring.SetWriter(os.Stderr, "[georaster] ")
	} else {
		georaster.SetLogWriters(os.Stderr, nil, nil)
		udtf.SetLogWriters(os.Stderr, nil, nil)
		sqlite.SetLogWriters(os.Stderr, nil, nil)
		monitoring.SetLogger(nil)
	}

	cfg := config.EmptyRasterConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadRasterConfig(o.configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	// Flags given on the command line override the config file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bin":
			cfg.BinDimMeters = &binDim
		case "geo":
			cfg.GeographicCoords = &geographic
		case "radius":
			cfg.NeighborhoodFillRadius = &radius
		case "workers":
			cfg.Workers = &workers
		case "bounds":
			b, err := parseBounds(boundsStr)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Bounds = b
		}
	})
	if flagErr != nil {
		log.Fatalf("invalid -bounds: %v", flagErr)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := run(context.Background(), o, cfg, os.Stdout); err != nil {
		log.Fatalf("georaster: %v", err)
	}
}

func parseBounds(s string) (*config.RasterBounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("want 4 comma-separated values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		v[i] = f
	}
	return &config.RasterBounds{XMin: v[0], XMax: v[1], YMin: v[2], YMax: v[3]}, nil
}

// rasterizeArgs binds loaded columns and the configuration to a
// tf_geo_rasterize call.
func rasterizeArgs(x, y, z *udtf.Column[float64], cfg *config.RasterConfig) []udtf.Arg {
	args := []udtf.Arg{
		udtf.ColumnArg(x), udtf.ColumnArg(y), udtf.ColumnArg(z),
		udtf.ScalarArg(cfg.GetBinDimMeters()),
		udtf.ScalarArg(cfg.GetGeographicCoords()),
		udtf.ScalarArg(cfg.GetNeighborhoodFillRadius()),
	}
	if b, ok := cfg.GetBounds(); ok {
		for _, v := range b {
			args = append(args, udtf.ScalarArg(v))
		}
	}
	return args
}

func run(ctx context.Context, o options, cfg *config.RasterConfig, out io.Writer) error {
	db, err := sqlite.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := sqlite.NewRasterStore(db.DB)

	if o.migrate != "" {
		return runMigrate(db, o.migrate, out)
	}
	if o.deleteRun != "" {
		if err := store.DeleteRun(ctx, o.deleteRun); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted run %s\n", o.deleteRun)
		return nil
	}
	if o.listRuns > 0 {
		runs, err := store.ListRuns(ctx, o.listRuns)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s\t%s\t%gm\t%dx%d\t%d/%d filled\n",
				r.RunID, r.Dataset, r.BinDimMeters, r.NumXBins, r.NumYBins, r.FilledCells, r.NumRows)
		}
		return nil
	}

	src := sqlite.NewPointSource(db.DB)
	var x, y, z *udtf.Column[float64]
	if o.query != "" {
		x, y, z, err = src.Load(ctx, o.query)
	} else {
		x, y, z, err = src.LoadDataset(ctx, o.dataset)
	}
	if err != nil {
		return err
	}

	reg := udtf.NewRegistry()
	if err := georaster.RegisterTableFunctions(reg, georaster.ParamsFromConfig(cfg)); err != nil {
		return err
	}
	tbl, err := reg.Invoke(ctx, georaster.FunctionName, rasterizeArgs(x, y, z, cfg))
	if err != nil {
		return err
	}
	monitoring.Logf("rasterized %d points into %d cells", z.Size(), tbl.NumRows())

	if tbl.NumRows() == 0 {
		fmt.Fprintln(out, "no points in range; raster is empty")
		return nil
	}
	grid, err := render.GridFromTable(tbl)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "raster %dx%d cells, spacing %g x %g\n", grid.NumX, grid.NumY, grid.DX, grid.DY)

	if o.save {
		params, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		r := &sqlite.RasterRun{
			Dataset:          o.dataset,
			BinDimMeters:     cfg.GetBinDimMeters(),
			GeographicCoords: cfg.GetGeographicCoords(),
			FillRadius:       cfg.GetNeighborhoodFillRadius(),
			NumXBins:         int64(grid.NumX),
			NumYBins:         int64(grid.NumY),
			ParamsJSON:       params,
		}
		if err := store.SaveRun(ctx, r, tbl); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved run %s (%d/%d cells filled)\n", r.RunID, r.FilledCells, r.NumRows)
	}

	if o.ascPath != "" {
		if err := writeFile(o.ascPath, func(w io.Writer) error { return render.WriteASCII(w, grid) }); err != nil {
			return err
		}
	}
	if o.pngPath != "" {
		title := fmt.Sprintf("max z, %g m bins", cfg.GetBinDimMeters())
		if err := writeFile(o.pngPath, func(w io.Writer) error { return render.WritePNG(w, grid, render.PNGOptions{Title: title}) }); err != nil {
			return err
		}
	}
	if o.htmlPath != "" {
		opts := render.HTMLOptions{Title: "Raster", Subtitle: o.dataset}
		if err := writeFile(o.htmlPath, func(w io.Writer) error { return render.WriteHTML(w, grid, opts) }); err != nil {
			return err
		}
	}
	return nil
}

// runMigrate applies a schema action. Open has already migrated up, so "up"
// only reports the version.
func runMigrate(db *sqlite.DB, action string, out io.Writer) error {
	switch action {
	case "up", "status":
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d (dirty=%v)\n", version, dirty)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
