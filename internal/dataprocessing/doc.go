// Package dataprocessing turns daily generation reports into denormalized
// hierarchy rows.
//
// # Pipeline
//
// Each report passes through the same stages:
//
//	file → Extractor → Cleaner → AlignPDF (pdf only) → ValidateGrid → LayoutTable.Resolve → Reconstruct
//
// The Extractor reads .xlsx workbooks directly and pre-extracted CSV grids
// for everything else. The Cleaner normalizes whitespace, drops boilerplate
// rows and trims the grid to the first row holding the data-start sentinel.
// ValidateGrid checks the column count against the expected width for the
// source format, allowing one column less. The validated width selects a
// Layout, which names the label, unit number, type, sector and measure
// columns.
//
// # Reconstruction
//
// Reports list a region's stations before the "REGION TOTAL" row, so region
// and state names are read from the row above their total row. Classify is
// a pure step over (context, previous row, row); Reconstruct folds it over
// the grid and emits a row only once a region is known.
//
// # Errors
//
// A report without the sentinel fails with a NOT_FOUND error, a width outside
// tolerance with SHAPE, an ambiguous row with UNPARSABLE and a unit without an
// integral number with MALFORMED_UNIT. Every failure aborts only its own
// report; ProcessAll keeps going.
package dataprocessing
