package georaster

import "gonum.org/v1/gonum/stat"

// FillFromNeighbors averages the non-empty bins in the square window of the
// given radius around (xBin, yBin), clipped to the grid. The centre bin is
// part of the window, so it only contributes when it holds data itself; the
// emitter calls this for empty bins only. ok is false when the window holds
// no data.
func (r *Raster[T, Z]) FillFromNeighbors(xBin, yBin, radius int64) (Z, bool) {
	v, ok, _ := r.fillFromNeighbors(xBin, yBin, radius, nil)
	return v, ok
}

// fillFromNeighbors is FillFromNeighbors with a caller-owned scratch slice,
// returned for reuse.
func (r *Raster[T, Z]) fillFromNeighbors(xBin, yBin, radius int64, scratch []float64) (Z, bool, []float64) {
	scratch = scratch[:0]
	if radius < 0 {
		return NullSentinel[Z](), false, scratch
	}
	yLo, yHi := max(yBin-radius, 0), min(yBin+radius, r.geom.NumYBins-1)
	xLo, xHi := max(xBin-radius, 0), min(xBin+radius, r.geom.NumXBins-1)
	for y := yLo; y <= yHi; y++ {
		row := y * r.geom.NumXBins
		for x := xLo; x <= xHi; x++ {
			if r.valid.Test(uint(row + x)) {
				scratch = append(scratch, float64(r.z[row+x]))
			}
		}
	}
	if len(scratch) == 0 {
		return NullSentinel[Z](), false, scratch
	}
	return Z(stat.Mean(scratch, nil)), true, scratch
}

// OffsetFromRaster returns the stored value of a bin plus offset, for
// layering a secondary quantity (such as height above terrain) onto an
// existing raster. ok is false when the bin is outside the raster or empty.
func (r *Raster[T, Z]) OffsetFromRaster(xBin, yBin int64, offset Z) (Z, bool) {
	v, ok := r.Value(xBin, yBin)
	if !ok {
		return v, false
	}
	return v + offset, true
}
