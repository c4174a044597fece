package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// BackpressureConfig configures the concurrency controller.
type BackpressureConfig struct {
	// MaxConcurrent bounds in-flight operations. Zero means unlimited:
	// Acquire never blocks and never rejects.
	MaxConcurrent int64

	// AcquireTimeout caps how long Acquire waits for a permit. Zero
	// means wait until a permit frees or the context is cancelled.
	AcquireTimeout time.Duration
}

// Backpressure is a bounded-concurrency admission controller backed by a
// weighted semaphore. A successful Acquire must be paired with exactly
// one Release; a failed or cancelled Acquire holds nothing.
type Backpressure struct {
	config BackpressureConfig
	sem    *semaphore.Weighted

	mu       sync.Mutex
	current  int64
	peak     int64
	acquired int64
	rejected int64
}

// NewBackpressure creates a controller for the given bound.
func NewBackpressure(config BackpressureConfig) *Backpressure {
	b := &Backpressure{config: config}
	if config.MaxConcurrent > 0 {
		b.sem = semaphore.NewWeighted(config.MaxConcurrent)
	}
	return b
}

// Acquire obtains one permit. With no free permit it blocks until one
// frees, or up to the configured timeout when one is set; cancellation
// aborts the wait and holds nothing.
func (b *Backpressure) Acquire(ctx context.Context) error {
	if b.sem == nil {
		b.admit()
		return nil
	}

	if b.sem.TryAcquire(1) {
		b.admit()
		return nil
	}

	waitCtx := ctx
	if b.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.config.AcquireTimeout)
		defer cancel()
	}

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.reject()
		return ErrBackpressureFull
	}
	b.admit()
	return nil
}

// Release returns one permit. It must be called exactly once per
// successful Acquire, regardless of the attempt's outcome.
func (b *Backpressure) Release() {
	b.mu.Lock()
	if b.current == 0 {
		b.mu.Unlock()
		return
	}
	b.current--
	b.mu.Unlock()

	if b.sem != nil {
		b.sem.Release(1)
	}
}

func (b *Backpressure) admit() {
	b.mu.Lock()
	b.current++
	b.acquired++
	if b.current > b.peak {
		b.peak = b.current
	}
	b.mu.Unlock()
}

func (b *Backpressure) reject() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// BackpressureMetrics contains concurrency statistics.
type BackpressureMetrics struct {
	Current       int64
	Peak          int64
	TotalAcquired int64
	TotalRejected int64
	MaxConcurrent int64
}

// Metrics returns the controller's counters.
func (b *Backpressure) Metrics() BackpressureMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BackpressureMetrics{
		Current:       b.current,
		Peak:          b.peak,
		TotalAcquired: b.acquired,
		TotalRejected: b.rejected,
		MaxConcurrent: b.config.MaxConcurrent,
	}
}
