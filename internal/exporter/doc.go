// Package exporter writes the pipeline outputs.
//
// CSVWriter appends records to CSV files and writes the header only when it
// creates a file, so repeated runs grow the same files.
//
// DatasetWriter splits denormalized report rows into one file per hierarchy
// level (region.csv through unit.csv) plus all.csv with every column.
//
// FeedWriter projects feed rows onto a fixed column set, optionally grouped
// per state.
//
// SQLiteMirror keeps a queryable copy of all.csv.
//
// Example usage:
//
//	w := exporter.NewDatasetWriter("data/output", logger)
//	summary, err := w.Write(rows)
package exporter
