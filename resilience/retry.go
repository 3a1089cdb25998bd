package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 5s
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry.
	// Default: 2.0
	Multiplier float64

	// Jitter adds up to 25% random delay.
	// Default: false
	Jitter bool

	// RetryIf reports whether err should trigger another attempt.
	// Default: every non-nil error is retried.
	RetryIf func(err error) bool

	// OnRetry is called before sleeping for the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs failed operations with exponential backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier < 1 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op until it succeeds, returns a non-retryable error, or the
// attempts are used up. The last error is returned. Cancellation of ctx
// during a backoff sleep returns ctx.Err().
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	delay := r.config.InitialDelay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= r.config.MaxAttempts || !r.config.RetryIf(err) {
			return err
		}

		wait := r.jittered(delay)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		delay = min(time.Duration(float64(delay)*r.config.Multiplier), r.config.MaxDelay)
	}
}

func (r *Retry) jittered(d time.Duration) time.Duration {
	if !r.config.Jitter || d < 4 {
		return d
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return d + time.Duration(rand.Int64N(int64(d/4)))
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
