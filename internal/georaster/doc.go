// Package georaster grids scattered (x, y, z) samples into a dense raster.
//
// A Raster is built once from a point set: bounds come from the data or
// from the caller, are optionally snapped to a zero-based grid of
// BinDimMeters, and determine the bin counts and the coordinate<->bin
// scales. Planar coordinates are treated as meters; geographic coordinates
// (longitude, latitude in degrees) are converted with a meters-per-degree
// factor measured along the domain's centre lines.
//
// Aggregation keeps the maximum z per bin. Emission walks every bin in
// row-major order (x fastest) and writes the bin centroid and its value,
// optionally filling empty bins with the mean of their non-empty
// neighbours.
//
// Key types: Raster, Params, Geometry, Alignment.
package georaster
