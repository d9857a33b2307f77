package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"gridcli/internal/dataprocessing"
	apperrors "gridcli/internal/errors"
	"gridcli/internal/exporter"
	"gridcli/internal/files"
	"gridcli/internal/infrastructure"
	"gridcli/internal/operations"
	"gridcli/internal/tracking"
	"gridcli/pkg/contracts/domain"
)

// ProcessingLedgerName is the processing ledger kept beside the datasets
const ProcessingLedgerName = "processed.json"

// unpackedDirName receives reports extracted from the yearly archives
const unpackedDirName = "unpacked"

// ReportServiceOptions wires a ReportService
type ReportServiceOptions struct {
	Processor *dataprocessing.Processor
	Writer    *exporter.DatasetWriter
	// Mirror is optional
	Mirror    *exporter.SQLiteMirror
	Archive   *files.Archive
	Ledger    *tracking.Ledger
	Pool      *operations.Pool
	RawDir    string
	BatchSize int
	Metrics   *infrastructure.PipelineMetrics
}

// ProcessOptions selects the reports of one run
type ProcessOptions struct {
	// From and To bound report dates; zero values are open
	From time.Time
	To   time.Time
	// FromArchive unpacks the yearly archives before discovery
	FromArchive bool
	// Reprocess ignores the ledger; rows of dates already processed are
	// appended again
	Reprocess bool
}

// ProcessSummary counts the outcome of a run
type ProcessSummary struct {
	Found       int            `json:"found"`
	Skipped     int            `json:"skipped"`
	Processed   int            `json:"processed"`
	Failed      int            `json:"failed"`
	Rows        int            `json:"rows"`
	FailedDates []string       `json:"failed_dates,omitempty"`
	Files       map[string]int `json:"files,omitempty"`
}

// ReportService turns downloaded reports into the level datasets
type ReportService struct {
	opts      ReportServiceOptions
	discovery *files.Discovery
	logger    *slog.Logger
}

// NewReportService creates a report service
func NewReportService(opts ReportServiceOptions, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopMetrics()
	}
	return &ReportService{
		opts:      opts,
		discovery: files.NewDiscovery(""),
		logger:    logger.With(slog.String("service", "report")),
	}
}

// SourceDirs lists the directories searched for report files
func (s *ReportService) SourceDirs() []string {
	return []string{
		s.opts.RawDir,
		filepath.Join(s.opts.RawDir, string(domain.FormatXLS)),
		filepath.Join(s.opts.RawDir, string(domain.FormatPDF)),
		filepath.Join(s.opts.RawDir, unpackedDirName),
	}
}

// Process runs every report not yet in the ledger through the pipeline in
// batches of dates. Rows are appended in date order after each batch joins,
// then the ledger is flushed. Failed reports are recorded and retried on the
// next run; they never stop the batch.
func (s *ReportService) Process(ctx context.Context, opts ProcessOptions) (ProcessSummary, error) {
	summary := ProcessSummary{Files: make(map[string]int)}

	if err := s.opts.Ledger.Load(); err != nil {
		return summary, err
	}
	if opts.FromArchive {
		if err := s.unpackArchives(ctx); err != nil {
			return summary, err
		}
	}

	found, err := s.discovery.FindReportsIn(s.SourceDirs()...)
	if err != nil {
		return summary, apperrors.NewStorageError("failed to list reports", err)
	}
	found = files.FilterReportsByDateRange(found, opts.From, opts.To)
	summary.Found = len(found)
	if len(found) == 0 {
		return summary, ErrNoReportsFound
	}

	var selected []files.ReportFile
	for _, f := range found {
		if !opts.Reprocess && s.opts.Ledger.Done(f.Date) {
			summary.Skipped++
			continue
		}
		selected = append(selected, f)
	}

	s.logger.InfoContext(ctx, "Processing reports",
		slog.Int("found", summary.Found),
		slog.Int("selected", len(selected)),
		slog.Int("batch_size", s.opts.BatchSize))

	for _, batch := range operations.Batches(selected, s.opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.processBatch(ctx, batch, &summary); err != nil {
			return summary, err
		}
	}

	s.logger.InfoContext(ctx, "Report processing finished",
		slog.Int("processed", summary.Processed),
		slog.Int("failed", summary.Failed),
		slog.Int("rows", summary.Rows))
	return summary, nil
}

// processBatch writes a batch to every output or to none: the dataset files
// are cut back to their checkpoint when the mirror or the ledger flush fails.
func (s *ReportService) processBatch(ctx context.Context, batch []files.ReportFile, summary *ProcessSummary) error {
	results := s.opts.Processor.ProcessAll(ctx, s.opts.Pool, files.ReportPaths(batch))
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	var rows []domain.DenormalizedRow
	var succeeded []operations.Result[dataprocessing.Outcome]
	var failed int
	for _, r := range results {
		f := batch[r.Index]
		if r.Err != nil {
			failed++
			summary.FailedDates = append(summary.FailedDates, f.Date.Format(domain.DateLayout))
			s.opts.Ledger.RecordFailure(f.Date, f.Path, r.Err)
			s.opts.Metrics.RecordReportFailure(ctx, string(apperrors.TypeOf(r.Err)))
			continue
		}
		rows = append(rows, r.Value.Rows...)
		succeeded = append(succeeded, r)
	}

	checkpoint, err := s.opts.Writer.Checkpoint()
	if err != nil {
		return apperrors.NewStorageError("failed to checkpoint datasets", err)
	}
	written, err := s.opts.Writer.Write(rows)
	if err != nil {
		return apperrors.NewStorageError("failed to write datasets", err)
	}
	if s.opts.Mirror != nil {
		if err := s.opts.Mirror.Insert(rows); err != nil {
			return s.rollback(ctx, checkpoint, err)
		}
	}

	for _, r := range succeeded {
		s.opts.Ledger.RecordSuccess(batch[r.Index].Date, len(r.Value.Rows))
	}
	if err := s.opts.Ledger.Flush(); err != nil {
		return s.rollback(ctx, checkpoint, fmt.Errorf("failed to flush processing ledger: %w", err))
	}
	s.opts.Metrics.TrackingFlushes.Add(ctx, 1)

	for name, n := range written {
		summary.Files[name] += n
	}
	for _, level := range exporter.LevelFiles() {
		s.opts.Metrics.RecordRows(ctx, string(level.Class), written[level.Name])
	}
	summary.Rows += len(rows)
	summary.Processed += len(succeeded)
	summary.Failed += failed
	s.opts.Metrics.ReportsProcessed.Add(ctx, int64(len(succeeded)))
	return nil
}

func (s *ReportService) rollback(ctx context.Context, checkpoint *exporter.Checkpoint, cause error) error {
	if err := checkpoint.Restore(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to restore datasets after a failed batch",
			slog.String("error", err.Error()),
			slog.String("cause", cause.Error()))
		return errors.Join(cause, err)
	}
	return cause
}

func (s *ReportService) unpackArchives(ctx context.Context) error {
	if s.opts.Archive == nil {
		return apperrors.NewConfigError("no archive configured", nil)
	}
	years, err := s.opts.Archive.Years()
	if err != nil {
		return apperrors.NewStorageError("failed to list archives", err)
	}
	dir := filepath.Join(s.opts.RawDir, unpackedDirName)
	for _, year := range years {
		written, err := s.opts.Archive.Extract(year, dir)
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Archive unpacked",
			slog.Int("year", year),
			slog.Int("files", len(written)))
	}
	return nil
}
