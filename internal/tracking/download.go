package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/files"
	"gridcli/pkg/contracts/domain"
)

// Options control how pending ranges are computed
type Options struct {
	// Epoch is the first date considered when nothing was recorded yet
	Epoch time.Time
	// LagDays is how many days before asOf the range stops
	LagDays int
	// RetryWindow bounds how old a failed date may be and still be retried
	RetryWindow time.Duration
}

// DefaultLagDays is how long the publisher takes to post a day's data
const DefaultLagDays = 2

// DefaultRetryWindow is how long failed dates stay eligible for retry
const DefaultRetryWindow = 30 * 24 * time.Hour

// DownloadTracker persists which report dates were fetched and which failed.
// It is safe for concurrent use.
type DownloadTracker struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state domain.DownloadTracking
}

// NewDownloadTracker creates a tracker backed by the JSON file at path.
// Call Load to read existing state.
func NewDownloadTracker(path string, opts Options, logger *slog.Logger) *DownloadTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadTracker{
		path:   path,
		opts:   opts,
		logger: logger.With(slog.String("component", "download_tracker")),
		state:  domain.DownloadTracking{Failed: make(map[string]domain.FailedDownload)},
	}
}

// Load reads the tracking file. A missing file leaves the tracker empty.
func (t *DownloadTracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.NewStorageError("failed to read tracking file", err)
	}

	var state domain.DownloadTracking
	if err := json.Unmarshal(data, &state); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("tracking file %s is corrupt", t.path), err)
	}
	if state.Failed == nil {
		state.Failed = make(map[string]domain.FailedDownload)
	}
	if state.LatestDownloadedDate != "" {
		if _, err := domain.ParseDay(state.LatestDownloadedDate); err != nil {
			return apperrors.NewStorageError("tracking file has an invalid latest date", err)
		}
	}
	t.state = state
	return nil
}

// Latest returns the most recent recorded date
func (t *DownloadTracker) Latest() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest()
}

func (t *DownloadTracker) latest() (time.Time, bool) {
	if t.state.LatestDownloadedDate == "" {
		return time.Time{}, false
	}
	d, err := domain.ParseDay(t.state.LatestDownloadedDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// NextPending returns the dates to fetch as of asOf: failed dates still
// inside the retry window, oldest first, followed by every date after the
// latest recorded one up to asOf minus the lag. No date appears twice.
func (t *DownloadTracker) NextPending(asOf time.Time) []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	asOf = domain.Day(asOf)
	var retry []time.Time
	for key := range t.state.Failed {
		d, err := domain.ParseDay(key)
		if err != nil {
			t.logger.Warn("Ignoring malformed failed date", slog.String("date", key))
			continue
		}
		if asOf.Sub(d) < t.opts.RetryWindow {
			retry = append(retry, d)
		}
	}
	sort.Slice(retry, func(i, j int) bool { return retry[i].Before(retry[j]) })

	start := domain.Day(t.opts.Epoch)
	if latest, ok := t.latest(); ok {
		start = latest.AddDate(0, 0, 1)
	}

	seen := make(map[time.Time]bool, len(retry))
	pending := make([]time.Time, 0, len(retry))
	for _, d := range retry {
		seen[d] = true
		pending = append(pending, d)
	}
	for _, d := range DateRange(start, asOf.AddDate(0, 0, -t.opts.LagDays)) {
		if !seen[d] {
			pending = append(pending, d)
		}
	}
	return pending
}

// RecordSuccess clears any failure for date and advances the latest date if
// date is strictly later.
func (t *DownloadTracker) RecordSuccess(date time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := domain.Day(date).Format(domain.DateLayout)
	delete(t.state.Failed, key)
	if latest, ok := t.latest(); !ok || domain.Day(date).After(latest) {
		t.state.LatestDownloadedDate = key
	}
}

// RecordFailure remembers a failed date so it is retried later. The latest
// date does not move.
func (t *DownloadTracker) RecordFailure(date time.Time, url string, responseCode int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Failed[domain.Day(date).Format(domain.DateLayout)] = domain.FailedDownload{
		URL:          url,
		ResponseCode: responseCode,
	}
}

// Failed returns a copy of the failure map
func (t *DownloadTracker) Failed() map[string]domain.FailedDownload {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]domain.FailedDownload, len(t.state.Failed))
	for k, v := range t.state.Failed {
		out[k] = v
	}
	return out
}

// Flush writes the state to disk atomically
func (t *DownloadTracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.MarshalIndent(t.state, "", "    ")
	if err != nil {
		return apperrors.NewStorageError("failed to encode tracking state", err)
	}

	if err := files.WriteFileAtomic(t.path, data); err != nil {
		return apperrors.NewStorageError("failed to write tracking file", err)
	}
	return nil
}

// DateRange returns every calendar date in [from, to]. It is empty when to
// is before from.
func DateRange(from, to time.Time) []time.Time {
	from, to = domain.Day(from), domain.Day(to)
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
