package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of operations allowed to run at once.
	// Default: 10
	MaxConcurrent int

	// MaxWait bounds how long a caller waits for a slot. Zero fails
	// immediately when the bulkhead is full.
	// Default: 0
	MaxWait time.Duration
}

// BulkheadMetrics is a snapshot of bulkhead usage.
type BulkheadMetrics struct {
	Active        int64
	MaxConcurrent int
	Rejected      int64
}

// Bulkhead limits concurrent operations, keeping a burst of cache misses
// from exhausting the connection pool.
type Bulkhead struct {
	config   BulkheadConfig
	sem      *semaphore.Weighted
	active   atomic.Int64
	rejected atomic.Int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Acquire takes a slot, waiting up to MaxWait. It returns ErrBulkheadFull
// when no slot became free, or ctx.Err() when ctx ended first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		b.active.Add(1)
		return nil
	}
	if b.config.MaxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.rejected.Add(1)
		return errors.Join(ErrBulkheadFull, err)
	}
	b.active.Add(1)
	return nil
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	b.active.Add(-1)
	b.sem.Release(1)
}

// Execute runs op while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// Metrics returns current usage.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	return BulkheadMetrics{
		Active:        b.active.Load(),
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected.Load(),
	}
}
