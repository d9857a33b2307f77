package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/files"
	"gridcli/internal/infrastructure"
	"gridcli/internal/tracking"
	"gridcli/pkg/contracts/domain"
)

// metricsSource labels download fetches in metrics
const metricsSource = "npp"

// ReportURL returns the publisher URL of the report for date
func ReportURL(baseURL string, date time.Time, format domain.SourceFormat) string {
	return fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(baseURL, "/"),
		date.Format("02-01-2006"),
		domain.ReportFileName(date, format))
}

// Today returns the current calendar date in loc
func Today(loc *time.Location) time.Time {
	return domain.Day(time.Now().In(loc))
}

// Options wires a Downloader
type Options struct {
	BaseURL string
	// RawDir receives downloaded files under <fmt>/
	RawDir   string
	Client   *infrastructure.HTTPClient
	Tracker  *tracking.DownloadTracker
	Archive  *files.Archive
	Uploader files.Uploader
	Metrics  *infrastructure.PipelineMetrics
}

// Summary counts the outcome of a download run
type Summary struct {
	Downloaded int      `json:"downloaded"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Archives   []string `json:"archives,omitempty"`
}

// Downloader drains the pending date range of daily reports
type Downloader struct {
	opts   Options
	logger *slog.Logger
}

// New creates a downloader
func New(opts Options, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopMetrics()
	}
	return &Downloader{
		opts:   opts,
		logger: logger.With(slog.String("component", "downloader")),
	}
}

// Run downloads every pending date up to asOf, oldest failures first.
// A failed date is recorded and the run moves on; only a tracking flush
// failure or cancellation stops it.
func (d *Downloader) Run(ctx context.Context, asOf time.Time) (Summary, error) {
	var summary Summary
	pending := d.opts.Tracker.NextPending(asOf)

	d.logger.InfoContext(ctx, "Download run started",
		slog.Int("pending", len(pending)),
		slog.String("as_of", asOf.Format(domain.DateLayout)))

	touched := make(map[int]bool)
	for _, date := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		skipped, err := d.fetchOne(ctx, date)
		switch {
		case err != nil:
			summary.Failed++
			d.logger.WarnContext(ctx, "Report download failed",
				slog.String("date", date.Format(domain.DateLayout)),
				slog.String("error_type", string(apperrors.TypeOf(err))),
				slog.String("error", err.Error()))
		case skipped:
			summary.Skipped++
		default:
			summary.Downloaded++
			touched[date.Year()] = true
		}

		if err := d.opts.Tracker.Flush(); err != nil {
			return summary, fmt.Errorf("failed to flush download tracking: %w", err)
		}
		d.opts.Metrics.TrackingFlushes.Add(ctx, 1)
	}

	for year := range touched {
		summary.Archives = append(summary.Archives, d.opts.Archive.Path(year))
	}
	if d.opts.Uploader != nil {
		for _, path := range summary.Archives {
			if err := d.opts.Uploader.Upload(ctx, path); err != nil {
				d.logger.WarnContext(ctx, "Archive upload failed",
					slog.String("archive", path),
					slog.String("error", err.Error()))
			}
		}
	}

	d.logger.InfoContext(ctx, "Download run finished",
		slog.Int("downloaded", summary.Downloaded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

// fetchOne downloads, stores and archives the report for date. It reports
// skipped when the archive already holds the file.
func (d *Downloader) fetchOne(ctx context.Context, date time.Time) (bool, error) {
	format := domain.FormatForDate(date)
	name := domain.ReportFileName(date, format)

	archived, err := d.opts.Archive.Contains(date, format, name)
	if err != nil {
		return false, err
	}
	if archived {
		d.opts.Tracker.RecordSuccess(date)
		d.logger.DebugContext(ctx, "Report already archived", slog.String("file", name))
		return true, nil
	}

	url := ReportURL(d.opts.BaseURL, date, format)
	start := time.Now()
	body, status, err := d.opts.Client.Get(ctx, url)
	d.opts.Metrics.RecordFetch(ctx, metricsSource, start, err)
	if err != nil {
		d.opts.Tracker.RecordFailure(date, url, status)
		return false, err
	}

	dst := filepath.Join(d.opts.RawDir, string(format), name)
	if err := files.WriteFileAtomic(dst, body); err != nil {
		d.opts.Tracker.RecordFailure(date, url, status)
		return false, apperrors.NewStorageError("failed to save report", err)
	}
	if err := d.opts.Archive.Add(date.Year(), files.EntryName(date, format, name), dst); err != nil {
		d.opts.Tracker.RecordFailure(date, url, status)
		return false, err
	}

	d.opts.Tracker.RecordSuccess(date)
	d.logger.InfoContext(ctx, "Report downloaded",
		slog.String("file", name),
		slog.Int("bytes", len(body)))
	return false, nil
}
