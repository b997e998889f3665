// Package udtf is the table-function runtime used to invoke row-producing
// functions such as tf_geo_rasterize.
//
// Responsibilities: typed input/output columns with null bitmaps, output
// sizing (runtime, constant, row multiplier, user constant), and a registry
// that resolves a function by name and argument types.
// Key types: Column, ColumnList, Manager, Registry, Table.
//
// Argument binding from SQL and GPU dispatch are not handled here; callers
// build Arg values directly.
package udtf
