package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/exporter"
	"gridcli/internal/infrastructure"
	"gridcli/internal/operations"
	"gridcli/internal/tracking"
	"gridcli/pkg/contracts/domain"
)

// DefaultBatchSize bounds the work items sent per checkpoint
const DefaultBatchSize = 500

// Layout locates the feed output files
type Layout interface {
	GetCurrentFeedPath(t time.Time) string
	GetIndiaFeedPath() string
	GetDailyFeedPath(stateCode string) string
}

// RunnerOptions wires a Runner
type RunnerOptions struct {
	Fetcher   Fetcher
	Writer    *exporter.FeedWriter
	Tracker   *tracking.EntityTracker
	Layout    Layout
	Codes     StateCodes
	BatchSize int
	Location  *time.Location
	Metrics   *infrastructure.PipelineMetrics
	Now       func() time.Time
}

// DailySummary counts the outcome of a daily feed run
type DailySummary struct {
	Pending       int `json:"pending"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
	// Deferred counts items left for the next run because an earlier date
	// of their state failed or went unanswered in this run
	Deferred int `json:"deferred"`
	Rows     int `json:"rows"`
}

// Runner fetches feeds and appends them to their CSV files
type Runner struct {
	opts   RunnerOptions
	logger *slog.Logger
}

// NewRunner creates a feed runner
func NewRunner(opts RunnerOptions, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 || opts.BatchSize > DefaultBatchSize {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopMetrics()
	}
	return &Runner{
		opts:   opts,
		logger: logger.With(slog.String("component", "feed_runner")),
	}
}

// RunCurrentState appends one live row per state to the monthly file
func (r *Runner) RunCurrentState(ctx context.Context) (int, error) {
	rows, err := r.opts.Fetcher.Fetch(ctx, domain.FeedRequest{Type: domain.FeedCurrentState})
	if err != nil {
		return 0, err
	}
	sortRows(rows)

	path := r.opts.Layout.GetCurrentFeedPath(r.opts.Now().In(r.opts.Location))
	if err := r.opts.Writer.Append(path, domain.CurrentStateColumns, rows); err != nil {
		return 0, apperrors.NewStorageError("failed to write current state feed", err)
	}
	r.logger.InfoContext(ctx, "Current state feed written",
		slog.String("file", path),
		slog.Int("rows", len(rows)))
	return len(rows), nil
}

// RunCurrentIndia appends the all-India row
func (r *Runner) RunCurrentIndia(ctx context.Context) (int, error) {
	rows, err := r.opts.Fetcher.Fetch(ctx, domain.FeedRequest{Type: domain.FeedCurrentIndia})
	if err != nil {
		return 0, err
	}

	path := r.opts.Layout.GetIndiaFeedPath()
	if err := r.opts.Writer.Append(path, domain.CurrentIndiaColumns, rows); err != nil {
		return 0, apperrors.NewStorageError("failed to write india feed", err)
	}
	r.logger.InfoContext(ctx, "India feed written",
		slog.String("file", path),
		slog.Int("rows", len(rows)))
	return len(rows), nil
}

// RunDaily drains the pending (state, date) items up to asOf in batches.
// Each batch is written per state, then the tracker advances and flushes.
// Once a state has a failed batch or an unanswered date, its later dates are
// deferred to the next run, so its cursor never passes a missing date. Only
// rows the tracker records are written. A flush failure stops the run.
func (r *Runner) RunDaily(ctx context.Context, asOf time.Time) (DailySummary, error) {
	items := r.opts.Tracker.Pending(r.opts.Codes.Sorted(), asOf)
	summary := DailySummary{Pending: len(items)}
	stalled := make(map[string]bool)

	r.logger.InfoContext(ctx, "Daily feed run started",
		slog.Int("pending", len(items)),
		slog.Int("batch_size", r.opts.BatchSize))

	for i, batch := range operations.Batches(items, r.opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		requested := len(batch)
		batch = withoutKeys(batch, stalled)
		summary.Deferred += requested - len(batch)
		if len(batch) == 0 {
			continue
		}
		summary.Batches++

		rows, err := r.opts.Fetcher.Fetch(ctx, domain.FeedRequest{Type: domain.FeedDailyState, Inputs: batch})
		if err != nil {
			summary.FailedBatches++
			for _, item := range batch {
				stalled[item.Key] = true
			}
			r.logger.WarnContext(ctx, "Daily feed batch failed",
				slog.Int("batch", i),
				slog.Int("items", len(batch)),
				slog.String("error_type", string(apperrors.TypeOf(err))),
				slog.String("error", err.Error()))
			continue
		}

		done := Completed(batch, rows)
		for key := range incompleteKeys(batch, done) {
			stalled[key] = true
		}
		rows = rowsFor(done, rows)

		written, err := r.opts.Writer.AppendByKey(KeyStateCode, r.opts.Layout.GetDailyFeedPath, domain.DailyStateColumns, rows)
		if err != nil {
			return summary, apperrors.NewStorageError("failed to write daily feed", err)
		}
		summary.Rows += len(rows)

		r.opts.Tracker.RecordBatch(done)
		if err := r.opts.Tracker.Flush(); err != nil {
			return summary, fmt.Errorf("failed to flush feed tracking: %w", err)
		}
		r.opts.Metrics.TrackingFlushes.Add(ctx, 1)

		r.logger.InfoContext(ctx, "Daily feed batch written",
			slog.Int("batch", i),
			slog.Int("rows", len(rows)),
			slog.Int("states", len(written)))
	}

	r.logger.InfoContext(ctx, "Daily feed run finished",
		slog.Int("batches", summary.Batches),
		slog.Int("failed_batches", summary.FailedBatches),
		slog.Int("deferred", summary.Deferred),
		slog.Int("rows", summary.Rows))
	return summary, nil
}
