package services

import (
	"context"
	"log/slog"
	"time"

	"gridcli/internal/download"
	"gridcli/internal/tracking"
)

// DownloadService drains the pending report dates
type DownloadService struct {
	downloader *download.Downloader
	tracker    *tracking.DownloadTracker
	location   *time.Location
	logger     *slog.Logger
}

// NewDownloadService creates a download service. Today is computed in loc.
func NewDownloadService(downloader *download.Downloader, tracker *tracking.DownloadTracker, loc *time.Location, logger *slog.Logger) *DownloadService {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DownloadService{
		downloader: downloader,
		tracker:    tracker,
		location:   loc,
		logger:     logger.With(slog.String("service", "download")),
	}
}

// Run loads the tracking state and downloads everything pending as of
// asOf, or as of today when asOf is zero.
func (s *DownloadService) Run(ctx context.Context, asOf time.Time) (download.Summary, error) {
	if err := s.tracker.Load(); err != nil {
		return download.Summary{}, err
	}
	if asOf.IsZero() {
		asOf = download.Today(s.location)
	}
	return s.downloader.Run(ctx, asOf)
}
