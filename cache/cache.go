package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxKeyLength bounds facility keys in bytes.
const MaxKeyLength = 512

var (
	// ErrNilCache is returned by constructors handed a nil facility.
	ErrNilCache = errors.New("cache: facility is nil")

	// ErrInvalidKey matches every key rejected by CheckKey.
	ErrInvalidKey = errors.New("cache: invalid key")
)

// Cache is the process-wide keyed store that hosts metadata cache roots.
// Several owners may share one facility, each under its own root key.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Values: stored by reference. Callers must not mutate a value after
//   storing it.
// - Load: never errors; a miss is (nil, false).
// - Remove: idempotent.
type Cache interface {
	Load(ctx context.Context, key string) (any, bool)
	Store(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error

	// ClearAll drops every key, including those of other owners.
	ClearAll(ctx context.Context) error
}

// CheckKey rejects blank keys, keys longer than MaxKeyLength and keys
// holding control characters. The returned error matches ErrInvalidKey.
func CheckKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%w: blank", ErrInvalidKey)
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidKey, len(key), MaxKeyLength)
	case strings.ContainsFunc(key, unicode.IsControl):
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidKey, key)
	}
	return nil
}
