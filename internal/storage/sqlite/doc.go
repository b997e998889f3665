// Package sqlite persists raster inputs and results in SQLite: a point
// source feeding the rasterizer and a store of emitted raster runs.
package sqlite
