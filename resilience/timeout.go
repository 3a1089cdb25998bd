package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Timeout bounds each call with a deadline. Operations must honor ctx;
// database/sql calls do.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout of d.
// Default: 30 seconds when d <= 0.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 30 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured deadline.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a derived deadline. When that deadline, and not the
// caller's, ends the call, the error matches ErrTimeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	err := op(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, t.d, err)
	}
	return err
}
