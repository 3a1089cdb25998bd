package epoch

import (
	"context"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
)

// ErrEmptyEpoch indicates a source produced an empty identity.
var ErrEmptyEpoch = errors.New("epoch: empty generation identity")

// Source reports the current generation identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Current must honor cancellation/deadlines.
// - Errors: a non-nil error means the identity is unknown; callers
// proceed without caching.
type Source interface {
	Current(ctx context.Context) (string, error)
}

// Bumper is implemented by sources whose identity can be advanced on demand.
type Bumper interface {
	// Bump advances the identity and returns the new value.
	Bump(ctx context.Context) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (string, error)

// Current calls f.
func (f SourceFunc) Current(ctx context.Context) (string, error) {
	return f(ctx)
}

type fixed string

// Fixed returns a Source that always reports id.
func Fixed(id string) Source {
	return fixed(id)
}

func (f fixed) Current(context.Context) (string, error) {
	if f == "" {
		return "", ErrEmptyEpoch
	}
	return string(f), nil
}

// Manual is an in-process Source advanced by Bump. Identities are ULIDs:
// never reused across restarts and ordered by creation time.
type Manual struct {
	mu      sync.RWMutex
	current string
}

// NewManual returns a Manual source with a fresh identity.
func NewManual() *Manual {
	return &Manual{current: ulid.Make().String()}
}

// Current returns the current identity.
func (m *Manual) Current(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

// Bump replaces the identity with a new one.
func (m *Manual) Bump(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ulid.Make().String()
	return m.current, nil
}

var (
	_ Source = (*Manual)(nil)
	_ Bumper = (*Manual)(nil)
	_ Source = SourceFunc(nil)
)
