package metacache

import (
	"context"

	"github.com/jonwraymond/metacache/health"
)

// Checker reports the cache as unhealthy once shut down, degraded while
// lookups read through to the store, and healthy otherwise.
func (c *Cache) Checker() health.Checker {
	return health.NewCheckerFunc("metacache", func(ctx context.Context) health.Result {
		if c.closed.Load() {
			return health.Unhealthy("cache shut down", ErrClosed)
		}
		stats := c.Stats(ctx)
		details := map[string]any{
			"generations": len(stats.Generations),
			"evictions":   stats.Evictions,
		}
		switch {
		case !stats.Enabled:
			return health.Degraded("cache disabled").WithDetails(details)
		case !stats.DictionaryEnabled:
			return health.Degraded("descriptor caching disabled").WithDetails(details)
		}
		gen, err := c.epoch.Current(ctx)
		if err != nil {
			r := health.Degraded("generation unavailable, lookups bypass the cache")
			r.Error = err
			return r.WithDetails(details)
		}
		details["generation"] = gen
		return health.Healthy("serving from cache").WithDetails(details)
	})
}
