package metacache

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/metacache/store"
)

// Sentinel errors for cache operations.
var (
	// ErrInvalidArgument indicates a caller mistake or a schema mismatch,
	// such as a blank key or an unknown enum code read from the store.
	ErrInvalidArgument = errors.New("metacache: invalid argument")

	// ErrNotFound indicates the store holds no matching row.
	ErrNotFound = errors.New("metacache: not found")

	// ErrDataAccess matches store failures. It is store.ErrDataAccess.
	ErrDataAccess = store.ErrDataAccess

	// ErrClosed is returned by lookups after Shutdown.
	ErrClosed = errors.New("metacache: cache is shut down")
)

// InvalidArgumentError describes a rejected argument or value.
type InvalidArgumentError struct {
	// Field names the argument or column.
	Field string

	// Value is the offending value, if any.
	Value any

	// Reason explains the rejection.
	Reason string
}

// Error returns the error message.
func (e *InvalidArgumentError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("metacache: invalid %s %v: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("metacache: invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArg(field string, value any, reason string) error {
	return &InvalidArgumentError{Field: field, Value: value, Reason: reason}
}

// notFound reports a genuine store miss.
func notFound(index, key string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, index, key)
}

// notFoundFault reports a root-row store failure. The result matches both
// ErrNotFound and ErrDataAccess.
func notFoundFault(index, key string, err error) error {
	if !errors.Is(err, ErrDataAccess) {
		err = fmt.Errorf("%w: %w", ErrDataAccess, err)
	}
	return fmt.Errorf("%w: %s %q: %w", ErrNotFound, index, key, err)
}

// dataAccess ensures err matches ErrDataAccess.
func dataAccess(err error) error {
	if err == nil || errors.Is(err, ErrDataAccess) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDataAccess, err)
}
