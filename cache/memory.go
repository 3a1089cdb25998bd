package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory facility.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithTTL expires entries ttl after they were stored. Zero or negative
// disables expiry, which is the default.
func WithTTL(ttl time.Duration) Option {
	return func(c *MemoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCache creates a new in-memory facility.
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load retrieves a value. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Load(_ context.Context, key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		// Expired - clean up lazily, unless replaced meanwhile
		c.mu.Lock()
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Store sets the value held under key.
func (c *MemoryCache) Store(_ context.Context, key string, value any) error {
	if err := CheckKey(key); err != nil {
		return err
	}

	entry := &cacheEntry{value: value}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return nil
}

// Remove deletes key. Idempotent - no error on miss.
func (c *MemoryCache) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// ClearAll removes every key.
func (c *MemoryCache) ClearAll(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored keys, including expired ones not yet
// collected.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
