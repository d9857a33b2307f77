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

// EntityTracker keeps one cursor per entity, such as a state code. It is
// safe for concurrent use.
type EntityTracker struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state domain.EntityTracking
}

// NewEntityTracker creates a tracker backed by the JSON file at path
func NewEntityTracker(path string, opts Options, logger *slog.Logger) *EntityTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityTracker{
		path:   path,
		opts:   opts,
		logger: logger.With(slog.String("component", "entity_tracker")),
		state:  make(domain.EntityTracking),
	}
}

// Load reads the tracking file. A missing file leaves the tracker empty.
func (t *EntityTracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.NewStorageError("failed to read tracking file", err)
	}

	state := make(domain.EntityTracking)
	if err := json.Unmarshal(data, &state); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("tracking file %s is corrupt", t.path), err)
	}
	for key, rec := range state {
		if _, err := domain.ParseDay(rec.LastFetched); err != nil {
			return apperrors.NewStorageError("tracking file has an invalid date for "+key, err)
		}
	}
	t.state = state
	return nil
}

// Last returns the cursor for key
func (t *EntityTracker) Last(key string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last(key)
}

func (t *EntityTracker) last(key string) (time.Time, bool) {
	rec, ok := t.state[key]
	if !ok {
		return time.Time{}, false
	}
	d, err := domain.ParseDay(rec.LastFetched)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// NextPending returns the dates still to fetch for key: the day after its
// cursor (or the epoch) up to asOf minus the lag.
func (t *EntityTracker) NextPending(key string, asOf time.Time) []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextPending(key, asOf)
}

func (t *EntityTracker) nextPending(key string, asOf time.Time) []time.Time {
	start := domain.Day(t.opts.Epoch)
	if last, ok := t.last(key); ok {
		start = last.AddDate(0, 0, 1)
	}
	return DateRange(start, domain.Day(asOf).AddDate(0, 0, -t.opts.LagDays))
}

// Pending expands keys into work items, key by key in the given order
func (t *EntityTracker) Pending(keys []string, asOf time.Time) []domain.WorkItem {
	t.mu.Lock()
	defer t.mu.Unlock()

	var items []domain.WorkItem
	for _, key := range keys {
		for _, d := range t.nextPending(key, asOf) {
			items = append(items, domain.WorkItem{Key: key, Date: d.Format(domain.DateLayout)})
		}
	}
	return items
}

// RecordSuccess advances the cursor for key if date is strictly later than
// the stored one. It reports whether the cursor moved.
func (t *EntityTracker) RecordSuccess(key string, date time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordSuccess(key, date)
}

func (t *EntityTracker) recordSuccess(key string, date time.Time) bool {
	date = domain.Day(date)
	if last, ok := t.last(key); ok && !date.After(last) {
		return false
	}
	t.state[key] = domain.TrackingRecord{LastFetched: date.Format(domain.DateLayout)}
	return true
}

// RecordBatch takes the latest date per key across items, in any order, and
// records it. Items with unparsable dates are skipped.
func (t *EntityTracker) RecordBatch(items []domain.WorkItem) {
	latest := MaxPerEntity(items)

	t.mu.Lock()
	defer t.mu.Unlock()
	for key, d := range latest {
		t.recordSuccess(key, d)
	}
}

// Snapshot returns a copy of the cursors
func (t *EntityTracker) Snapshot() domain.EntityTracking {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(domain.EntityTracking, len(t.state))
	for k, v := range t.state {
		out[k] = v
	}
	return out
}

// Keys returns the tracked entity keys, sorted
func (t *EntityTracker) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.state))
	for k := range t.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush writes the state to disk atomically
func (t *EntityTracker) Flush() error {
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

// MaxPerEntity reduces completed work items to the latest date per key
func MaxPerEntity(items []domain.WorkItem) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, item := range items {
		d, err := domain.ParseDay(item.Date)
		if err != nil {
			continue
		}
		if cur, ok := out[item.Key]; !ok || d.After(cur) {
			out[item.Key] = d
		}
	}
	return out
}
