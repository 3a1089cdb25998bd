package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects calls until ResetTimeout has passed.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of concurrent probes allowed.
	// Default: 1
	HalfOpenMaxRequests int

	// IsFailure reports whether err counts against the circuit.
	// Default: every non-nil error except context cancellation.
	IsFailure func(err error) bool

	// OnStateChange is called after a transition, outside the breaker lock.
	OnStateChange func(from, to State)
}

// Counts is a snapshot of the breaker.
type Counts struct {
	State               State
	ConsecutiveFailures int
	Rejected            int64
	OpenedAt            time.Time
}

// CircuitBreaker stops calling a failing database until it has had time to
// recover.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	probes   int
	rejected int64
	openedAt time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	return cb.Counts().State
}

// Counts returns a snapshot of the breaker.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	from, to := cb.advanceLocked()
	c := Counts{
		State:               cb.state,
		ConsecutiveFailures: cb.failures,
		Rejected:            cb.rejected,
		OpenedAt:            cb.openedAt,
	}
	cb.mu.Unlock()
	cb.notify(from, to)
	return c
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.transitionLocked(StateClosed)
	cb.mu.Unlock()
	cb.notify(from, StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	from, to := cb.advanceLocked()
	var err error
	switch cb.state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.probes++
		}
	}
	if err != nil {
		cb.rejected++
	}
	cb.mu.Unlock()
	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	from := cb.state
	failed := cb.config.IsFailure(err)
	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			break
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		if failed {
			cb.transitionLocked(StateOpen)
		} else {
			cb.transitionLocked(StateClosed)
		}
	}
	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
}

// advanceLocked moves an expired open circuit to half-open.
func (cb *CircuitBreaker) advanceLocked() (State, State) {
	from := cb.state
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
	return from, cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	cb.state = to
	cb.probes = 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
