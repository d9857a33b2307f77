package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// MinWorkers and MaxWorkers bound every pool
	MinWorkers = 1
	MaxWorkers = 40
)

// Result is the outcome of one unit of work. Index is the unit's position in
// the submitted slice; results arrive in completion order.
type Result[T any] struct {
	Index    int
	Value    T
	Err      error
	Duration time.Duration
}

// Pool runs independent units of work with bounded concurrency
type Pool struct {
	workers int
	logger  *slog.Logger
}

// NewPool creates a pool of workers clamped to [MinWorkers, MaxWorkers]
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < MinWorkers {
		workers = MinWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		workers: workers,
		logger:  logger.With(slog.String("component", "pool")),
	}
}

// Workers returns the effective concurrency
func (p *Pool) Workers() int {
	return p.workers
}

// Run calls fn for every input and returns one Result per input in
// completion order. A failing or panicking unit never stops its siblings.
// Units not yet started when ctx is done report ctx.Err().
func Run[I, O any](ctx context.Context, p *Pool, inputs []I, fn func(context.Context, I) (O, error)) []Result[O] {
	var (
		mu      sync.Mutex
		results = make([]Result[O], 0, len(inputs))
	)
	collect := func(r Result[O]) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			collect(Result[O]{Index: i, Err: err})
			continue
		}
		g.Go(func() error {
			start := time.Now()
			out, err := safeCall(ctx, in, fn)
			collect(Result[O]{Index: i, Value: out, Err: err, Duration: time.Since(start)})
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.logger.DebugContext(ctx, "pool run complete",
		slog.Int("units", len(inputs)),
		slog.Int("failed", failed),
		slog.Int("workers", p.workers))

	return results
}

func safeCall[I, O any](ctx context.Context, in I, fn func(context.Context, I) (O, error)) (out O, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unit panicked: %v", rec)
		}
	}()
	return fn(ctx, in)
}

// Batches splits items into consecutive chunks of at most size elements
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
