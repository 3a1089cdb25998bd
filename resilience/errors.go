package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when no concurrency slot became free in time.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a single attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrInvalidPolicy is returned by PolicyConfig.Validate.
	ErrInvalidPolicy = errors.New("resilience: invalid policy")
)

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry returns it without further attempts.
// Retry unwraps the marker before returning. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
