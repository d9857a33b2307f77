package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gridcli/pkg/contracts/domain"
)

// CombinedFileName holds every row with every column
const CombinedFileName = "all.csv"

// LevelFile describes the per-level dataset file
type LevelFile struct {
	Class domain.RowClass
	Name  string
	// Drop lists the columns left out of this file
	Drop []string
}

// LevelFiles returns the per-level dataset layout. Every level drops the row
// type since the file already implies it; higher levels also drop the
// hierarchy columns below them and the unit-only outage type.
func LevelFiles() []LevelFile {
	return []LevelFile{
		{
			Class: domain.ClassRegion, Name: "region.csv",
			Drop: []string{domain.ColRowType, domain.ColState, domain.ColSector, domain.ColStationType,
				domain.ColStation, domain.ColUnit, domain.ColSourceFormat, domain.ColOutageType},
		},
		{
			Class: domain.ClassState, Name: "state.csv",
			Drop: []string{domain.ColRowType, domain.ColSector, domain.ColStationType,
				domain.ColStation, domain.ColUnit, domain.ColSourceFormat, domain.ColOutageType},
		},
		{
			Class: domain.ClassSector, Name: "sector.csv",
			Drop: []string{domain.ColRowType, domain.ColStationType,
				domain.ColStation, domain.ColUnit, domain.ColSourceFormat, domain.ColOutageType},
		},
		{
			Class: domain.ClassStationType, Name: "station_type.csv",
			Drop: []string{domain.ColRowType, domain.ColStation, domain.ColUnit,
				domain.ColSourceFormat, domain.ColOutageType},
		},
		{
			Class: domain.ClassStation, Name: "station.csv",
			Drop: []string{domain.ColRowType, domain.ColUnit, domain.ColSourceFormat, domain.ColOutageType},
		},
		{
			Class: domain.ClassUnit, Name: "unit.csv",
			Drop: []string{domain.ColRowType, domain.ColSourceFormat},
		},
	}
}

// Columns returns the header of the level file
func (l LevelFile) Columns() []string {
	return project(domain.Columns(), l.keep())
}

func (l LevelFile) keep() []int {
	drop := make(map[string]bool, len(l.Drop))
	for _, c := range l.Drop {
		drop[c] = true
	}
	var keep []int
	for i, c := range domain.Columns() {
		if !drop[c] {
			keep = append(keep, i)
		}
	}
	return keep
}

func project(record []string, keep []int) []string {
	out := make([]string, len(keep))
	for i, idx := range keep {
		out[i] = record[idx]
	}
	return out
}

// WriteSummary counts the rows written per file
type WriteSummary map[string]int

// DatasetWriter appends denormalized rows to the level files and the
// combined file in one output directory.
type DatasetWriter struct {
	dir    string
	csv    *CSVWriter
	levels []LevelFile
	logger *slog.Logger
}

// NewDatasetWriter creates a writer for dir
func NewDatasetWriter(dir string, logger *slog.Logger) *DatasetWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetWriter{
		dir:    dir,
		csv:    NewCSVWriter(logger),
		levels: LevelFiles(),
		logger: logger.With(slog.String("component", "dataset_writer")),
	}
}

// Path returns the location of a dataset file
func (d *DatasetWriter) Path(name string) string {
	return filepath.Join(d.dir, name)
}

// Checkpoint records the size of every dataset file. Restore cuts the files
// back to it, removing the ones that did not exist.
type Checkpoint struct {
	sizes map[string]int64
}

const absent = -1

// Checkpoint snapshots the dataset files before a batch is appended
func (d *DatasetWriter) Checkpoint() (*Checkpoint, error) {
	cp := &Checkpoint{sizes: make(map[string]int64, len(d.levels)+1)}
	names := []string{CombinedFileName}
	for _, level := range d.levels {
		names = append(names, level.Name)
	}
	for _, name := range names {
		path := d.Path(name)
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			cp.sizes[path] = absent
		case err != nil:
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		case info.Mode().IsRegular():
			cp.sizes[path] = info.Size()
		}
	}
	return cp, nil
}

// Restore undoes every append made since the checkpoint
func (c *Checkpoint) Restore() error {
	var errs []error
	for path, size := range c.sizes {
		if size == absent {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if err := os.Truncate(path, size); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Write appends rows in order. Level files only receive rows of their class;
// the combined file receives all rows. Either every file receives the batch
// or, on error, none keeps any of it.
func (d *DatasetWriter) Write(rows []domain.DenormalizedRow) (WriteSummary, error) {
	summary := make(WriteSummary, len(d.levels)+1)
	if len(rows) == 0 {
		return summary, nil
	}

	cp, err := d.Checkpoint()
	if err != nil {
		return summary, err
	}
	summary, err = d.write(rows)
	if err != nil {
		if rerr := cp.Restore(); rerr != nil {
			d.logger.Error("Failed to restore dataset files",
				slog.String("dir", d.dir),
				slog.String("error", rerr.Error()))
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}
	return summary, nil
}

func (d *DatasetWriter) write(rows []domain.DenormalizedRow) (WriteSummary, error) {
	summary := make(WriteSummary, len(d.levels)+1)

	all := make([][]string, len(rows))
	byClass := make(map[domain.RowClass][][]string)
	for i, r := range rows {
		rec := r.Record()
		all[i] = rec
		byClass[r.Class] = append(byClass[r.Class], rec)
	}

	for _, level := range d.levels {
		records := byClass[level.Class]
		if len(records) == 0 {
			continue
		}
		keep := level.keep()
		projected := make([][]string, len(records))
		for i, rec := range records {
			projected[i] = project(rec, keep)
		}
		if err := d.csv.AppendToCSV(d.Path(level.Name), level.Columns(), projected); err != nil {
			return summary, fmt.Errorf("failed to write %s: %w", level.Name, err)
		}
		summary[level.Name] = len(projected)
	}

	if err := d.csv.AppendToCSV(d.Path(CombinedFileName), domain.Columns(), all); err != nil {
		return summary, fmt.Errorf("failed to write %s: %w", CombinedFileName, err)
	}
	summary[CombinedFileName] = len(all)

	d.logger.Info("Dataset rows written",
		slog.String("dir", d.dir),
		slog.Int("rows", len(rows)))
	return summary, nil
}
