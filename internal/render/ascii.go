package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ErrNonSquareCells is returned when a grid's cells are not square, which
// the ESRI ASCII format cannot describe.
var ErrNonSquareCells = errors.New("cells are not square")

// NoDataValue marks null cells in ASCII grids.
const NoDataValue = -9999

// WriteASCII writes g as an ESRI ASCII grid, north row first.
func WriteASCII(w io.Writer, g *Grid) error {
	if g.NumX == 0 || g.NumY == 0 {
		return ErrEmptyGrid
	}
	size := g.DX
	if math.Abs(g.DX-g.DY) > 1e-9*math.Max(math.Abs(g.DX), math.Abs(g.DY)) {
		return fmt.Errorf("%w: %g x %g", ErrNonSquareCells, g.DX, g.DY)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\n", g.NumX)
	fmt.Fprintf(bw, "nrows %d\n", g.NumY)
	fmt.Fprintf(bw, "xllcorner %s\n", formatFloat(g.X0-size/2))
	fmt.Fprintf(bw, "yllcorner %s\n", formatFloat(g.Y0-size/2))
	fmt.Fprintf(bw, "cellsize %s\n", formatFloat(size))
	fmt.Fprintf(bw, "NODATA_value %d\n", NoDataValue)

	for r := g.NumY - 1; r >= 0; r-- {
		for c := 0; c < g.NumX; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			v := g.Z(c, r)
			if math.IsNaN(v) {
				bw.WriteString(strconv.Itoa(NoDataValue))
				continue
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
