package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/georaster/internal/udtf"
)

// Point is one stored sample.
type Point struct {
	X, Y, Z float64
}

// PointSource reads raster input columns from SQL queries.
type PointSource struct {
	db *sql.DB
}

// NewPointSource creates a PointSource over db.
func NewPointSource(db *sql.DB) *PointSource {
	return &PointSource{db: db}
}

// DatasetQuery selects the samples of one dataset in insertion order.
const DatasetQuery = `SELECT x, y, z FROM points WHERE dataset = ? ORDER BY point_id`

// Load runs query and returns its three result columns as x, y and z input
// columns. The query must return exactly three numeric columns; NULLs
// become null rows.
func (s *PointSource) Load(ctx context.Context, query string, args ...any) (x, y, z *udtf.Column[float64], err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("point columns: %w", err)
	}
	if len(names) != 3 {
		return nil, nil, nil, fmt.Errorf("point query must return 3 columns (x, y, z), got %d: %v", len(names), names)
	}

	var vals [3][]float64
	var nulls [3][]bool
	for rows.Next() {
		var cells [3]sql.NullFloat64
		if err := rows.Scan(&cells[0], &cells[1], &cells[2]); err != nil {
			return nil, nil, nil, fmt.Errorf("scan point: %w", err)
		}
		for i, c := range cells {
			vals[i] = append(vals[i], c.Float64)
			nulls[i] = append(nulls[i], !c.Valid)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate points: %w", err)
	}

	var cols [3]*udtf.Column[float64]
	for i := range cols {
		if cols[i], err = udtf.NewNullableColumn(vals[i], nulls[i]); err != nil {
			return nil, nil, nil, err
		}
	}
	diagf("loaded %d points (%d/%d/%d null)", cols[2].Size(), cols[0].NullCount(), cols[1].NullCount(), cols[2].NullCount())
	return cols[0], cols[1], cols[2], nil
}

// LoadDataset loads the samples stored under dataset.
func (s *PointSource) LoadDataset(ctx context.Context, dataset string) (x, y, z *udtf.Column[float64], err error) {
	return s.Load(ctx, DatasetQuery, dataset)
}

// Insert stores pts under dataset in one transaction.
func (s *PointSource) Insert(ctx context.Context, dataset string, pts []Point) error {
	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO points (dataset, x, y, z) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range pts {
			if _, err := stmt.ExecContext(ctx, dataset, p.X, p.Y, p.Z); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}
