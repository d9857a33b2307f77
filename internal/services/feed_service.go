package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/feeds"
	"gridcli/internal/tracking"
	"gridcli/pkg/contracts/domain"
)

// FeedRun is the outcome of one feed command
type FeedRun struct {
	Type  domain.FeedType     `json:"type"`
	Rows  int                 `json:"rows"`
	Daily *feeds.DailySummary `json:"daily,omitempty"`
}

// FeedService collects the meritindia feeds into CSV files and answers
// typed feed requests for the proxy server.
type FeedService struct {
	runner   *feeds.Runner
	source   feeds.Fetcher
	tracker  *tracking.EntityTracker
	location *time.Location
	logger   *slog.Logger
}

// NewFeedService creates a feed service. runner may be nil for a service
// that only answers proxy requests.
func NewFeedService(runner *feeds.Runner, source feeds.Fetcher, tracker *tracking.EntityTracker, loc *time.Location, logger *slog.Logger) *FeedService {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &FeedService{
		runner:   runner,
		source:   source,
		tracker:  tracker,
		location: loc,
		logger:   logger.With(slog.String("service", "feed")),
	}
}

// Run collects one feed type. The daily feed resumes from the tracker and
// stops at asOf minus the publishing lag; a zero asOf means today.
func (s *FeedService) Run(ctx context.Context, feedType domain.FeedType, asOf time.Time) (FeedRun, error) {
	if s.runner == nil {
		return FeedRun{}, apperrors.NewConfigError("feed service has no runner", nil)
	}
	run := FeedRun{Type: feedType}

	switch feedType {
	case domain.FeedCurrentState:
		n, err := s.runner.RunCurrentState(ctx)
		run.Rows = n
		return run, err
	case domain.FeedCurrentIndia:
		n, err := s.runner.RunCurrentIndia(ctx)
		run.Rows = n
		return run, err
	case domain.FeedDailyState:
		if err := s.tracker.Load(); err != nil {
			return run, err
		}
		if asOf.IsZero() {
			asOf = domain.Day(time.Now().In(s.location))
		}
		summary, err := s.runner.RunDaily(ctx, asOf)
		run.Rows = summary.Rows
		run.Daily = &summary
		return run, err
	default:
		return run, apperrors.NewAppValidationError(fmt.Sprintf("unknown feed type %q", feedType))
	}
}

// Fetch answers a validated typed request from the direct sources
func (s *FeedService) Fetch(ctx context.Context, req domain.FeedRequest) ([]domain.FeedRow, error) {
	start := time.Now()
	rows, err := s.source.Fetch(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "Feed request failed",
			slog.String("type", string(req.Type)),
			slog.Int("inputs", len(req.Inputs)),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Feed request served",
		slog.String("type", string(req.Type)),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(start)))
	return rows, nil
}
