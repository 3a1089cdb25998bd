package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock drives the breaker's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	return cb, clock
}

var errDown = errors.New("database down")

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
	if cb.config.MaxFailures != 5 || cb.config.ResetTimeout != 30*time.Second || cb.config.HalfOpenMaxRequests != 1 {
		t.Errorf("config = %+v", cb.config)
	}
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	if cb.State() != StateClosed {
		t.Fatalf("after 1 failure state = %v", cb.State())
	}
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("after 2 failures state = %v", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit: err = %v, called = %v", err, called)
	}

	clock.Advance(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("after reset timeout state = %v", cb.State())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("after probe state = %v", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
	if got := cb.Counts().Rejected; got != 1 {
		t.Errorf("Rejected = %d, want 1", got)
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Second)
	_ = cb.Execute(ctx, fail)

	c := cb.Counts()
	if c.State != StateOpen {
		t.Fatalf("State = %v, want open", c.State)
	}
	if !c.OpenedAt.Equal(clock.Now()) {
		t.Errorf("OpenedAt = %v, want %v", c.OpenedAt, clock.Now())
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second})
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = cb.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe error = %v, want ErrCircuitOpen", err)
	}
	close(release)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)

	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return errors.Is(err, errDown) },
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("bad parameter") })
	_ = cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()

	if c := cb.Counts(); c.State != StateClosed || c.ConsecutiveFailures != 0 {
		t.Errorf("Counts() = %+v", c)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
