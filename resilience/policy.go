package resilience

import (
	"fmt"
	"time"
)

// PolicyConfig describes an Executor in configuration form. A zero
// section disables its pattern.
type PolicyConfig struct {
	Retry          RetryPolicy          `mapstructure:"retry" yaml:"retry"`
	CircuitBreaker CircuitBreakerPolicy `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`

	// AttemptTimeout bounds each database call.
	// Default: 0 (no per-attempt deadline)
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`

	// MaxConcurrent limits concurrent database calls.
	// Default: 0 (unlimited)
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`

	// MaxWait bounds the wait for a concurrency slot.
	MaxWait time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
}

// RetryPolicy configures retries. MaxAttempts <= 1 disables them.
type RetryPolicy struct {
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Jitter       bool          `mapstructure:"jitter" yaml:"jitter"`
}

// CircuitBreakerPolicy configures the breaker. MaxFailures == 0 disables it.
type CircuitBreakerPolicy struct {
	MaxFailures  int           `mapstructure:"max_failures" yaml:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout" yaml:"reset_timeout"`
}

// Validate rejects negative values.
func (p PolicyConfig) Validate() error {
	switch {
	case p.Retry.MaxAttempts < 0:
		return fmt.Errorf("%w: retry.max_attempts must be >= 0", ErrInvalidPolicy)
	case p.Retry.InitialDelay < 0 || p.Retry.MaxDelay < 0:
		return fmt.Errorf("%w: retry delays must be >= 0", ErrInvalidPolicy)
	case p.Retry.MaxDelay > 0 && p.Retry.InitialDelay > p.Retry.MaxDelay:
		return fmt.Errorf("%w: retry.initial_delay exceeds retry.max_delay", ErrInvalidPolicy)
	case p.CircuitBreaker.MaxFailures < 0 || p.CircuitBreaker.ResetTimeout < 0:
		return fmt.Errorf("%w: circuit_breaker values must be >= 0", ErrInvalidPolicy)
	case p.AttemptTimeout < 0:
		return fmt.Errorf("%w: attempt_timeout must be >= 0", ErrInvalidPolicy)
	case p.MaxConcurrent < 0 || p.MaxWait < 0:
		return fmt.Errorf("%w: max_concurrent and max_wait must be >= 0", ErrInvalidPolicy)
	}
	return nil
}

// Enabled reports whether the policy configures any pattern.
func (p PolicyConfig) Enabled() bool {
	return p.Retry.MaxAttempts > 1 || p.CircuitBreaker.MaxFailures > 0 ||
		p.AttemptTimeout > 0 || p.MaxConcurrent > 0
}

// PolicyOption supplies behavior that cannot be expressed in configuration.
type PolicyOption func(*policyHooks)

type policyHooks struct {
	retryIf       func(error) bool
	onRetry       func(attempt int, err error, delay time.Duration)
	onStateChange func(from, to State)
}

// WithRetryIf selects which errors are retried and counted by the breaker.
func WithRetryIf(fn func(error) bool) PolicyOption {
	return func(h *policyHooks) { h.retryIf = fn }
}

// WithOnRetry observes retries.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) PolicyOption {
	return func(h *policyHooks) { h.onRetry = fn }
}

// WithOnStateChange observes breaker transitions.
func WithOnStateChange(fn func(from, to State)) PolicyOption {
	return func(h *policyHooks) { h.onStateChange = fn }
}

// Build validates p and returns the Executor it describes, or nil when the
// policy is disabled.
func (p PolicyConfig) Build(opts ...PolicyOption) (*Executor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.Enabled() {
		return nil, nil
	}
	var hooks policyHooks
	for _, opt := range opts {
		opt(&hooks)
	}

	var execOpts []ExecutorOption
	if p.MaxConcurrent > 0 {
		execOpts = append(execOpts, WithBulkhead(NewBulkhead(BulkheadConfig{
			MaxConcurrent: p.MaxConcurrent,
			MaxWait:       p.MaxWait,
		})))
	}
	if p.CircuitBreaker.MaxFailures > 0 {
		execOpts = append(execOpts, WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{
			MaxFailures:   p.CircuitBreaker.MaxFailures,
			ResetTimeout:  p.CircuitBreaker.ResetTimeout,
			IsFailure:     hooks.retryIf,
			OnStateChange: hooks.onStateChange,
		})))
	}
	if p.Retry.MaxAttempts > 1 {
		execOpts = append(execOpts, WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  p.Retry.MaxAttempts,
			InitialDelay: p.Retry.InitialDelay,
			MaxDelay:     p.Retry.MaxDelay,
			Jitter:       p.Retry.Jitter,
			RetryIf:      hooks.retryIf,
			OnRetry:      hooks.onRetry,
		})))
	}
	if p.AttemptTimeout > 0 {
		execOpts = append(execOpts, WithTimeout(p.AttemptTimeout))
	}
	return NewExecutor(execOpts...), nil
}
