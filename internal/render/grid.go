// Package render draws and exports emitted rasters: PNG heat maps, HTML
// charts and ESRI ASCII grids.
package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/georaster/internal/udtf"
)

// ErrEmptyGrid is returned when there is nothing to render.
var ErrEmptyGrid = errors.New("raster has no cells")

// Grid is a dense raster in row-major order (x fastest) with cell
// centres on a regular lattice. Null cells hold NaN. It implements
// gonum's plotter.GridXYZ.
type Grid struct {
	NumX, NumY int
	// Centre of cell (0, 0) and the spacing between centres.
	X0, Y0 float64
	DX, DY float64
	Values []float64
}

// Dims returns the number of columns and rows.
func (g *Grid) Dims() (c, r int) { return g.NumX, g.NumY }

// Z returns the value of cell (c, r), NaN when null.
func (g *Grid) Z(c, r int) float64 { return g.Values[c+r*g.NumX] }

// X returns the centre of column c.
func (g *Grid) X(c int) float64 { return g.X0 + float64(c)*g.DX }

// Y returns the centre of row r.
func (g *Grid) Y(r int) float64 { return g.Y0 + float64(r)*g.DY }

// Range returns the minimum and maximum non-null values. ok is false when
// every cell is null.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Values {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// GridFromTable rebuilds the lattice from an x, y, z table in emission
// order. The row width is the number of leading rows sharing the first y.
func GridFromTable(tbl *udtf.Table) (*Grid, error) {
	x, y, z := tbl.Column("x"), tbl.Column("y"), tbl.Column("z")
	if x == nil || y == nil || z == nil {
		return nil, fmt.Errorf("raster table must have x, y and z columns, got %v", tbl.Names)
	}
	n := tbl.NumRows()
	if n == 0 {
		return nil, ErrEmptyGrid
	}

	at := func(c udtf.AnyColumn, i int64) float64 {
		v, _ := c.Float64(i)
		return v
	}
	y0 := at(y, 0)
	numX := n
	for i := int64(1); i < n; i++ {
		if at(y, i) != y0 {
			numX = i
			break
		}
	}
	if n%numX != 0 {
		return nil, fmt.Errorf("%d cells do not form rows of %d", n, numX)
	}
	numY := n / numX

	g := &Grid{
		NumX:   int(numX),
		NumY:   int(numY),
		X0:     at(x, 0),
		Y0:     y0,
		Values: make([]float64, n),
	}
	if numX > 1 {
		g.DX = at(x, 1) - g.X0
	}
	if numY > 1 {
		g.DY = at(y, numX) - y0
	}
	// A single row or column borrows the other axis' spacing.
	switch {
	case g.DX == 0 && g.DY == 0:
		g.DX, g.DY = 1, 1
	case g.DX == 0:
		g.DX = g.DY
	case g.DY == 0:
		g.DY = g.DX
	}

	for i := int64(0); i < n; i++ {
		v, ok := z.Float64(i)
		if !ok {
			v = math.NaN()
		}
		g.Values[i] = v
	}
	return g, nil
}
