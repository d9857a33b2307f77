package exporter

import (
	"log/slog"
	"sort"

	"gridcli/pkg/contracts/domain"
)

// FeedWriter appends feed rows to CSV files with a fixed column set. Keys a
// row carries outside the columns are ignored; missing keys are empty.
type FeedWriter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewFeedWriter creates a feed writer
func NewFeedWriter(logger *slog.Logger) *FeedWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedWriter{
		csv:    NewCSVWriter(logger),
		logger: logger.With(slog.String("component", "feed_writer")),
	}
}

// Append writes rows to path in the given column order
func (f *FeedWriter) Append(path string, columns []string, rows []domain.FeedRow) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = FeedRecord(row, columns)
	}
	return f.csv.AppendToCSV(path, columns, records)
}

// AppendByKey groups rows by the value of keyColumn and appends each group
// to the file pathFor returns. Groups are written in key order. It returns
// the row count per key.
func (f *FeedWriter) AppendByKey(keyColumn string, pathFor func(string) string, columns []string, rows []domain.FeedRow) (map[string]int, error) {
	groups := make(map[string][]domain.FeedRow)
	for _, row := range rows {
		groups[row[keyColumn]] = append(groups[row[keyColumn]], row)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	written := make(map[string]int, len(groups))
	for _, key := range keys {
		if err := f.Append(pathFor(key), columns, groups[key]); err != nil {
			return written, err
		}
		written[key] = len(groups[key])
		f.logger.Debug("Feed rows written", slog.String("key", key), slog.Int("rows", len(groups[key])))
	}
	return written, nil
}

// FeedRecord renders row in column order
func FeedRecord(row domain.FeedRow, columns []string) []string {
	rec := make([]string, len(columns))
	for i, c := range columns {
		rec[i] = row[c]
	}
	return rec
}
