package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/operations"
	"gridcli/pkg/contracts/domain"
)

// ProcessorOptions configures the per-report pipeline
type ProcessorOptions struct {
	DataStartSentinel string
	Denylist          []string
	ExpectedWidths    map[domain.SourceFormat]int
	Layouts           []Layout
}

// Processor runs extracted reports through cleaning, alignment, shape
// validation, layout resolution and hierarchy reconstruction.
type Processor struct {
	cleaner   *Cleaner
	layouts   *LayoutTable
	widths    map[domain.SourceFormat]int
	extractor *Extractor
	logger    *slog.Logger
}

// Outcome is the result of processing one report file
type Outcome struct {
	Report *domain.Report
	Rows   []domain.DenormalizedRow
}

// NewProcessor creates a processor. A nil layout list selects DefaultLayouts.
func NewProcessor(opts ProcessorOptions, extractor *Extractor, logger *slog.Logger) (*Processor, error) {
	if opts.DataStartSentinel == "" {
		return nil, apperrors.NewConfigError("data start sentinel is required", nil)
	}
	layouts := opts.Layouts
	if layouts == nil {
		layouts = DefaultLayouts()
	}
	table, err := NewLayoutTable(layouts)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid report layouts", err)
	}
	for _, format := range []domain.SourceFormat{domain.FormatXLS, domain.FormatPDF} {
		if opts.ExpectedWidths[format] < 2 {
			return nil, apperrors.NewConfigError(fmt.Sprintf("no expected width for %s reports", format), nil)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		cleaner:   NewCleaner(opts.DataStartSentinel, opts.Denylist),
		layouts:   table,
		widths:    opts.ExpectedWidths,
		extractor: extractor,
		logger:    logger.With(slog.String("component", "processor")),
	}, nil
}

// Process turns an extracted report into denormalized rows. The report grid
// is left untouched.
func (p *Processor) Process(report *domain.Report) ([]domain.DenormalizedRow, error) {
	grid, err := p.cleaner.Clean(report.Grid)
	if err != nil {
		return nil, err
	}

	if report.Format == domain.FormatPDF {
		grid = AlignPDF(grid)
	}

	width, err := ValidateGrid(grid, p.widths[report.Format])
	if err != nil {
		return nil, err
	}

	layout, err := p.layouts.Resolve(report.Format, width)
	if err != nil {
		return nil, err
	}

	return Reconstruct(report, grid, layout)
}

// ProcessFile extracts and processes the report at path
func (p *Processor) ProcessFile(ctx context.Context, path string) (Outcome, error) {
	if p.extractor == nil {
		return Outcome{}, apperrors.NewConfigError("processor has no extractor", nil)
	}
	report, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return Outcome{}, err
	}
	rows, err := p.Process(report)
	if err != nil {
		return Outcome{Report: report}, fmt.Errorf("report %s: %w", report.DateString(), err)
	}
	return Outcome{Report: report, Rows: rows}, nil
}

// ProcessAll processes paths on the pool. Every path yields one result; a
// failed report never affects the others.
func (p *Processor) ProcessAll(ctx context.Context, pool *operations.Pool, paths []string) []operations.Result[Outcome] {
	start := time.Now()
	results := operations.Run(ctx, pool, paths, p.ProcessFile)

	failed := 0
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		failed++
		p.logger.WarnContext(ctx, "Report skipped",
			slog.String("path", paths[r.Index]),
			slog.String("error_type", string(apperrors.TypeOf(r.Err))),
			slog.String("error", r.Err.Error()))
	}

	p.logger.InfoContext(ctx, "Reports processed",
		slog.Int("total", len(paths)),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)))
	return results
}
