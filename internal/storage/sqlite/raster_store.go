package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/georaster/internal/udtf"
)

// ErrRunNotFound is returned when a run id has no stored run.
var ErrRunNotFound = errors.New("raster run not found")

// RasterRun describes one persisted raster emission.
type RasterRun struct {
	RunID            string          `json:"run_id"`
	Dataset          string          `json:"dataset"`
	BinDimMeters     float64         `json:"bin_dim_meters"`
	GeographicCoords bool            `json:"geographic_coords"`
	FillRadius       int64           `json:"fill_radius"`
	NumXBins         int64           `json:"num_x_bins"`
	NumYBins         int64           `json:"num_y_bins"`
	NumRows          int64           `json:"num_rows"`
	FilledCells      int64           `json:"filled_cells"`
	ParamsJSON       json.RawMessage `json:"params_json,omitempty"`
	CreatedAt        int64           `json:"created_at"`
}

// RasterStore persists the output tables of tf_geo_rasterize.
type RasterStore struct {
	db *sql.DB
}

// NewRasterStore creates a RasterStore over db.
func NewRasterStore(db *sql.DB) *RasterStore {
	return &RasterStore{db: db}
}

// SaveRun stores run and the x, y, z columns of tbl in one transaction.
// RunID and CreatedAt are filled in when empty; NumRows and FilledCells
// are always taken from tbl.
func (s *RasterStore) SaveRun(ctx context.Context, run *RasterRun, tbl *udtf.Table) error {
	x, y, z := tbl.Column("x"), tbl.Column("y"), tbl.Column("z")
	if x == nil || y == nil || z == nil {
		return fmt.Errorf("raster table must have x, y and z columns, got %v", tbl.Names)
	}
	if run.NumXBins*run.NumYBins != tbl.NumRows() {
		return fmt.Errorf("run declares %dx%d bins but table has %d rows", run.NumXBins, run.NumYBins, tbl.NumRows())
	}

	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	run.NumRows = tbl.NumRows()
	run.FilledCells = 0
	for i := int64(0); i < run.NumRows; i++ {
		if !z.IsNull(i) {
			run.FilledCells++
		}
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	err := retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO raster_runs (
				run_id, dataset, bin_dim_meters, geographic_coords, fill_radius,
				num_x_bins, num_y_bins, num_rows, filled_cells, params_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Dataset, run.BinDimMeters, run.GeographicCoords, run.FillRadius,
			run.NumXBins, run.NumYBins, run.NumRows, run.FilledCells, paramsStr, run.CreatedAt,
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO raster_cells (run_id, cell_idx, x, y, z) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := int64(0); i < run.NumRows; i++ {
			xv, _ := x.Float64(i)
			yv, _ := y.Float64(i)
			var zv sql.NullFloat64
			zv.Float64, zv.Valid = z.Float64(i)
			if _, err := stmt.ExecContext(ctx, run.RunID, i, xv, yv, zv); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	diagf("saved run %s: %dx%d bins, %d filled", run.RunID, run.NumXBins, run.NumYBins, run.FilledCells)
	return nil
}

const runColumns = `run_id, dataset, bin_dim_meters, geographic_coords, fill_radius,
	num_x_bins, num_y_bins, num_rows, filled_cells, params_json, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RasterRun, error) {
	var r RasterRun
	var paramsStr sql.NullString
	if err := row.Scan(
		&r.RunID, &r.Dataset, &r.BinDimMeters, &r.GeographicCoords, &r.FillRadius,
		&r.NumXBins, &r.NumYBins, &r.NumRows, &r.FilledCells, &paramsStr, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if paramsStr.Valid {
		r.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	return &r, nil
}

// GetRun returns the run with the given id.
func (s *RasterStore) GetRun(ctx context.Context, runID string) (*RasterRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM raster_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// ListRuns returns stored runs, newest first. limit <= 0 returns all.
func (s *RasterStore) ListRuns(ctx context.Context, limit int) ([]*RasterRun, error) {
	query := `SELECT ` + runColumns + ` FROM raster_runs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RasterRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadCells returns the stored cells of a run as an x, y, z table in
// emission order.
func (s *RasterStore) LoadCells(ctx context.Context, runID string) (*udtf.Table, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT x, y, z FROM raster_cells WHERE run_id = ? ORDER BY cell_idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	xs := make([]float64, 0, run.NumRows)
	ys := make([]float64, 0, run.NumRows)
	zs := make([]float64, 0, run.NumRows)
	nulls := make([]bool, 0, run.NumRows)
	for rows.Next() {
		var x, y float64
		var z sql.NullFloat64
		if err := rows.Scan(&x, &y, &z); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
		zs = append(zs, z.Float64)
		nulls = append(nulls, !z.Valid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	zCol, err := udtf.NewNullableColumn(zs, nulls)
	if err != nil {
		return nil, err
	}
	return &udtf.Table{
		Names:   []string{"x", "y", "z"},
		Columns: []udtf.AnyColumn{udtf.NewColumn(xs), udtf.NewColumn(ys), zCol},
	}, nil
}

// DeleteRun removes a run and its cells.
func (s *RasterStore) DeleteRun(ctx context.Context, runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM raster_runs WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}
