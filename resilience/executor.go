package resilience

import (
	"context"
	"time"
)

// Executor composes the resilience patterns around an operation.
type Executor struct {
	bulkhead *Bulkhead
	breaker  *CircuitBreaker
	retry    *Retry
	timeout  *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithRetry adds retries.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithBulkhead adds a concurrency limit.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds every attempt by d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.breaker
}

// Execute runs op through the configured patterns. From the outside in:
// bulkhead, circuit breaker, retry, per-attempt timeout. The breaker sees
// the outcome of the whole retry sequence, not each attempt.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	if e.timeout != nil {
		inner := run
		run = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
	}
	if e.retry != nil {
		inner := run
		run = func(ctx context.Context) error { return e.retry.Execute(ctx, inner) }
	}
	if e.breaker != nil {
		inner := run
		run = func(ctx context.Context) error { return e.breaker.Execute(ctx, inner) }
	}
	if e.bulkhead != nil {
		inner := run
		run = func(ctx context.Context) error { return e.bulkhead.Execute(ctx, inner) }
	}
	return run(ctx)
}
