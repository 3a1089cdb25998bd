package health

import (
	"context"
	"fmt"
	"time"
)

// Status is the health of one component. Larger values are worse.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded serves requests with weaker guarantees, such as a
	// cache reading through to the store.
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText renders the status name in JSON reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one check. The aggregator fills Duration, and
// Timestamp when the checker left it zero.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(s Status, message string, err error) Result {
	return Result{Status: s, Message: message, Error: err, Timestamp: time.Now()}
}

func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one dependency.
//
// Contract:
// - Concurrency: Check may be called concurrently.
// - Context: Check must return promptly once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc is a named check function.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Pinger is implemented by dependencies that can verify connectivity, such
// as a SQL store or a Redis epoch source.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingChecker reports Unhealthy when p.Ping fails or takes longer than
// timeout. A non-positive timeout leaves the caller's deadline in place.
func NewPingChecker(name string, p Pinger, timeout time.Duration) *CheckerFunc {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		if err := p.Ping(ctx); err != nil {
			return Unhealthy(fmt.Sprintf("%s unreachable", name), err)
		}
		return Healthy("reachable").WithDetails(map[string]any{
			"latency": time.Since(start).String(),
		})
	})
}
