package dataprocessing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

// Extractor turns a report file into a raw cell grid. Workbooks are read
// directly; PDF bulletins and legacy spreadsheets are read from a CSV grid
// produced by an external table extractor.
type Extractor struct {
	extractedDir string
	logger       *slog.Logger
}

// NewExtractor creates an extractor that looks for pre-extracted grids in
// extractedDir. An empty dir disables the lookup.
func NewExtractor(extractedDir string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		extractedDir: extractedDir,
		logger:       logger.With(slog.String("component", "extractor")),
	}
}

// Extract loads the report at path. The source format follows the report
// date, not the file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	date, ext, ok := domain.ParseReportFileName(path)
	if !ok {
		return nil, apperrors.NewUnparsableError(fmt.Sprintf("%s is not a report file name", filepath.Base(path)), nil)
	}

	report := &domain.Report{
		Date:   date,
		Format: domain.FormatForDate(date),
		Path:   path,
	}

	grid, err := e.readGrid(path, ext)
	if err != nil {
		return nil, err
	}
	report.Grid = grid

	e.logger.DebugContext(ctx, "Report extracted",
		slog.String("date", report.DateString()),
		slog.String("format", string(report.Format)),
		slog.Int("rows", len(grid)),
		slog.Int("width", grid.Width()))
	return report, nil
}

func (e *Extractor) readGrid(path, ext string) (domain.Grid, error) {
	if ext == "csv" {
		return ReadCSVGrid(path)
	}

	if pre := e.extractedPath(path); pre != "" {
		if _, err := os.Stat(pre); err == nil {
			return ReadCSVGrid(pre)
		}
	}

	switch ext {
	case "xlsx", "xls":
		grid, err := ReadWorkbookGrid(path)
		if err != nil && ext == "xls" {
			return nil, apperrors.NewUnparsableError(
				"legacy spreadsheet cannot be read directly, pre-extract it to "+e.extractedPath(path), err)
		}
		return grid, err
	default:
		return nil, apperrors.NewUnparsableError(
			"pdf bulletins must be pre-extracted to "+e.extractedPath(path), nil)
	}
}

// extractedPath is where a pre-extracted grid for path is expected
func (e *Extractor) extractedPath(path string) string {
	if e.extractedDir == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(e.extractedDir, base+".csv")
}

// ReadWorkbookGrid reads the first sheet of an OOXML workbook. The file is
// opened through a reader so the extension is not checked.
func ReadWorkbookGrid(path string) (domain.Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, apperrors.NewUnparsableError("failed to read workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewUnparsableError("workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewUnparsableError("failed to read sheet "+sheets[0], err)
	}
	return domain.NewGrid(rows), nil
}

// ReadCSVGrid reads a pre-extracted grid. Rows may be ragged.
func ReadCSVGrid(path string) (domain.Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open grid: %w", err)
	}
	defer file.Close()
	return DecodeCSVGrid(file)
}

// DecodeCSVGrid parses CSV records from r into a grid
func DecodeCSVGrid(r io.Reader) (domain.Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewUnparsableError("failed to parse grid", err)
	}
	return domain.NewGrid(records), nil
}
