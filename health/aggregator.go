package health

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrCheckerNotFound is returned by Check for an unregistered name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrCheckTimeout is the Result error of a check cut off by the
	// aggregator deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckPanicked is the Result error of a check that panicked.
	ErrCheckPanicked = errors.New("health: check panicked")
)

// DefaultTimeout bounds a full round of checks.
const DefaultTimeout = 10 * time.Second

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds each round of checks.
	// Default: DefaultTimeout
	Timeout time.Duration

	// MaxConcurrent limits checks run at once. 1 runs them in order.
	// Default: 0 (no limit)
	MaxConcurrent int
}

// Aggregator runs a set of checkers under a shared deadline. Checkers are
// reported in registration order.
type Aggregator struct {
	timeout time.Duration
	limit   int

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Aggregator{timeout: cfg.Timeout, limit: cfg.MaxConcurrent}
}

// Register adds checker, replacing one already registered under the same
// name in place.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == checker.Name() })
	if i >= 0 {
		a.checkers[i] = checker
		return
	}
	a.checkers = append(a.checkers, checker)
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

func (a *Aggregator) snapshot() []Checker {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.checkers)
}

// Check runs the checker registered under name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	for _, c := range a.snapshot() {
		if c.Name() == name {
			ctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			return runCheck(ctx, c), nil
		}
	}
	return Result{}, fmt.Errorf("%w: %q", ErrCheckerNotFound, name)
}

// CheckAll runs every registered checker and returns the results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	checkers := a.snapshot()
	results := make(map[string]Result, len(checkers))
	if len(checkers) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for _, c := range checkers {
		g.Go(func() error {
			r := runCheck(ctx, c)
			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// OverallStatus returns the worst status among results. No results is
// healthy.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		overall = max(overall, r.Status)
	}
	return overall
}

// runCheck runs c until it returns or ctx ends. A checker ignoring ctx is
// abandoned, not waited for.
func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- Unhealthy("check panicked", fmt.Errorf("%w: %v", ErrCheckPanicked, p))
			}
		}()
		done <- c.Check(ctx)
	}()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	r.Duration = time.Since(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
