package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/files"
	"gridcli/pkg/contracts/domain"
)

// Ledger records every processed report date. Unlike the download cursor it
// has no latest date: a report found later for an earlier date is still
// pending. It is safe for concurrent use.
type Ledger struct {
	path   string
	now    func() time.Time
	logger *slog.Logger

	mu    sync.Mutex
	state domain.ProcessingLedger
}

// NewLedger creates a ledger backed by the JSON file at path. Call Load to
// read existing state.
func NewLedger(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		path:   path,
		now:    time.Now,
		logger: logger.With(slog.String("component", "processing_ledger")),
		state:  emptyLedger(),
	}
}

func emptyLedger() domain.ProcessingLedger {
	return domain.ProcessingLedger{
		Processed: make(map[string]domain.ProcessedReport),
		Failed:    make(map[string]domain.FailedReport),
	}
}

// Load reads the ledger file. A missing file leaves the ledger empty.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		l.state = emptyLedger()
		return nil
	}
	if err != nil {
		return apperrors.NewStorageError("failed to read processing ledger", err)
	}

	state := emptyLedger()
	if err := json.Unmarshal(data, &state); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("processing ledger %s is corrupt", l.path), err)
	}
	if state.Processed == nil {
		state.Processed = make(map[string]domain.ProcessedReport)
	}
	if state.Failed == nil {
		state.Failed = make(map[string]domain.FailedReport)
	}
	l.state = state
	return nil
}

// Done reports whether the report of date was written to the datasets
func (l *Ledger) Done(date time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.state.Processed[domain.Day(date).Format(domain.DateLayout)]
	return ok
}

// RecordSuccess marks date processed with its row count and clears any
// failure
func (l *Ledger) RecordSuccess(date time.Time, rows int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := domain.Day(date).Format(domain.DateLayout)
	delete(l.state.Failed, key)
	l.state.Processed[key] = domain.ProcessedReport{
		Rows:        rows,
		ProcessedAt: l.now().UTC().Format(time.RFC3339),
	}
}

// RecordFailure remembers why the report of date failed. The date stays
// pending.
func (l *Ledger) RecordFailure(date time.Time, file string, cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	failure := domain.FailedReport{File: file, ErrorType: string(apperrors.TypeOf(cause))}
	if cause != nil {
		failure.Error = cause.Error()
	}
	l.state.Failed[domain.Day(date).Format(domain.DateLayout)] = failure
}

// Failed returns a copy of the failure map
func (l *Ledger) Failed() map[string]domain.FailedReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]domain.FailedReport, len(l.state.Failed))
	for k, v := range l.state.Failed {
		out[k] = v
	}
	return out
}

// Flush writes the ledger to disk atomically
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(l.state, "", "    ")
	if err != nil {
		return apperrors.NewStorageError("failed to encode processing ledger", err)
	}
	if err := files.WriteFileAtomic(l.path, data); err != nil {
		return apperrors.NewStorageError("failed to write processing ledger", err)
	}
	l.logger.Debug("Processing ledger flushed",
		slog.Int("processed", len(l.state.Processed)),
		slog.Int("failed", len(l.state.Failed)))
	return nil
}
