package coordinator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"shopprice/internal/fetcher"
	"shopprice/internal/metrics"
)

// Mode selects how the lookups of a batch are scheduled
type Mode string

const (
	// ModeSequential runs one lookup after another on the calling goroutine.
	ModeSequential Mode = "sequential"
	// ModePool runs lookups on a fixed number of worker goroutines.
	ModePool Mode = "pool"
	// ModeAsync starts one goroutine per lookup.
	ModeAsync Mode = "async"
)

// DefaultWorkers is the pool size used when Options.Workers is not set
const DefaultWorkers = 4

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSequential, ModePool, ModeAsync:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: sequential, pool, async)", ErrUnknownMode, s)
	}
}

// Options configures a Coordinator
type Options struct {
	Mode    Mode
	Workers int
	Logger  *slog.Logger
}

// Coordinator fans price lookups out to a source and sums the results
type Coordinator struct {
	source  fetcher.PriceSource
	mode    Mode
	workers int
	logger  *slog.Logger
}

// New creates a new Coordinator pricing products on source.
// An empty mode defaults to ModePool and a non-positive worker count to DefaultWorkers.
func New(source fetcher.PriceSource, opts Options) (*Coordinator, error) {
	if opts.Mode == "" {
		opts.Mode = ModePool
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Coordinator{
		source:  source,
		mode:    mode,
		workers: opts.Workers,
		logger:  opts.Logger,
	}, nil
}

// Mode returns the execution mode of the coordinator
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// Aggregate prices every product and returns their sum.
// All lookups must succeed: if any fails, or ctx is cancelled first, the
// returned error is an *AggregateError naming the failed products and no
// BatchResult is returned. Lookups stopped because another one failed are
// listed as cancelled, not failed.
func (c *Coordinator) Aggregate(ctx context.Context, products []string) (*BatchResult, error) {
	if len(products) == 0 {
		return nil, ErrNoProducts
	}

	batchID := uuid.New()
	logger := c.logger.With("batch_id", batchID.String(), "mode", string(c.mode))
	requests := fetcher.NewRequests(products)

	logger.Debug("starting price batch", "products", len(products), "workers", c.workers)

	start := time.Now()
	var results []fetcher.Result
	var aborted bool
	switch c.mode {
	case ModeSequential:
		results = c.runSequential(ctx, requests)
	case ModeAsync:
		results, aborted = c.runAsync(ctx, requests)
	default:
		results, aborted = c.runPool(ctx, requests)
	}
	elapsed := time.Since(start)

	batch, err := collect(batchID, c.mode, len(requests), results, aborted, elapsed)
	metrics.RecordBatch(string(c.mode), elapsed, err != nil)
	if err != nil {
		for _, f := range err.Failures {
			logger.Warn("price lookup failed", "product", f.Product, "error", f.Err)
		}
		if len(err.Cancelled) > 0 {
			logger.Debug("price lookups cancelled after failure", "products", err.Cancelled)
		}
		return nil, err
	}

	logger.Info("price batch completed",
		"products", len(products),
		"sum", batch.Sum,
		"elapsed", elapsed)
	return batch, nil
}

// price runs a single lookup and records it
func (c *Coordinator) price(ctx context.Context, req fetcher.Request) fetcher.Result {
	start := time.Now()
	result := req.Run(ctx, c.source)
	metrics.RecordPriceRequest(c.source.Name(), result.Error, time.Since(start))
	return result
}

// runSequential is the baseline: no concurrency, stop at the first failure
func (c *Coordinator) runSequential(ctx context.Context, requests []fetcher.Request) []fetcher.Result {
	results := make([]fetcher.Result, 0, len(requests))
	for _, req := range requests {
		result := c.price(ctx, req)
		results = append(results, result)
		if result.Error != nil {
			break
		}
	}
	return results
}

// runPool executes lookups on a bounded pool. The first failure aborts the
// remaining lookups; aborted reports whether that happened while the
// caller's context was still live.
func (c *Coordinator) runPool(ctx context.Context, requests []fetcher.Request) (results []fetcher.Result, aborted bool) {
	abortCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	results = make([]fetcher.Result, len(requests))

	p := pool.New().
		WithContext(abortCtx).
		WithMaxGoroutines(c.workers)

	for _, req := range requests {
		p.Go(func(ctx context.Context) error {
			// Each task owns exactly one slot
			results[req.Index] = c.price(ctx, req)
			if err := results[req.Index].Error; err != nil {
				abort(errBatchAborted)
				return err
			}
			return nil
		})
	}

	// Failures are carried per result
	_ = p.Wait()

	return results, wasAborted(ctx, abortCtx)
}

// runAsync launches a goroutine per lookup and fans results back in over a
// channel. Completion order is arbitrary; collect restores request order.
func (c *Coordinator) runAsync(ctx context.Context, requests []fetcher.Request) (results []fetcher.Result, aborted bool) {
	abortCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	// Create a channel for collecting results
	resultChan := make(chan fetcher.Result, len(requests))

	// WaitGroup to track all worker goroutines
	var wg sync.WaitGroup

	for _, req := range requests {
		wg.Add(1)
		go func(r fetcher.Request) {
			defer wg.Done()
			resultChan <- c.price(abortCtx, r)
		}(req)
	}

	// Close the result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results = make([]fetcher.Result, 0, len(requests))
	for result := range resultChan {
		if result.Error != nil {
			// No point finishing the others
			abort(errBatchAborted)
		}
		results = append(results, result)
	}

	return results, wasAborted(ctx, abortCtx)
}

// wasAborted reports whether abortCtx was cancelled by a failed lookup rather
// than by the caller.
func wasAborted(parent, abortCtx context.Context) bool {
	return parent.Err() == nil && errors.Is(context.Cause(abortCtx), errBatchAborted)
}

// collect orders results by request index and sums them, or builds an
// AggregateError if any lookup failed. When the batch was aborted, lookups
// that were only interrupted by the abort are reported as cancelled, not failed.
func collect(batchID uuid.UUID, mode Mode, total int, results []fetcher.Result, aborted bool, elapsed time.Duration) (*BatchResult, *AggregateError) {
	slices.SortFunc(results, func(a, b fetcher.Result) int {
		return cmp.Compare(a.Index, b.Index)
	})

	var failures, interrupted []ProductFailure
	sum := 0.0
	for _, r := range results {
		if r.Error == nil {
			sum += r.Value
			continue
		}
		f := ProductFailure{
			Index:   r.Index,
			Product: r.Product,
			Err:     r.Error,
		}
		if aborted && fetcher.IsType(r.Error, fetcher.ErrorTypeInterrupted) {
			interrupted = append(interrupted, f)
			continue
		}
		failures = append(failures, f)
	}

	// The lookup that triggered the abort was itself interrupted
	if len(failures) == 0 && len(interrupted) > 0 {
		failures, interrupted = interrupted, nil
	}

	if len(failures) > 0 {
		cancelled := make([]string, 0, len(interrupted))
		for _, f := range interrupted {
			cancelled = append(cancelled, f.Product)
		}
		return nil, &AggregateError{
			BatchID:   batchID,
			Total:     total,
			Failures:  failures,
			Cancelled: cancelled,
		}
	}

	return &BatchResult{
		ID:      batchID,
		Mode:    mode,
		Sum:     sum,
		Elapsed: elapsed,
		Results: results,
	}, nil
}
