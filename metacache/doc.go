// Package metacache caches schema metadata read from a relational store.
//
// Object descriptors are loaded on demand by business key or table name,
// together with their element descriptors, and held in a partition keyed
// by the current schema generation. An epoch.Source supplies the
// generation; when it changes, new lookups populate a fresh partition and
// the oldest partition is evicted once more than MaxGenerations are held.
// Descriptors in one partition are never mixed with those of another.
//
// The cache state lives under a single key of a cache.Cache facility, so
// Clear drops it without touching unrelated keys. Besides descriptors the
// cache holds shared values, per-user values keyed by the caller identity,
// memoized child summaries and the system configuration table.
//
//	s, _ := store.Open(ctx, store.Postgres, dsn)
//	mc, _ := metacache.New(s, cache.NewMemoryCache(),
//	    metacache.WithEpoch(epochSource),
//	    metacache.WithLogger(logger),
//	)
//	d, err := mc.ObjectByTableName(ctx, "t_invoice")
//	if errors.Is(err, metacache.ErrNotFound) {
//	    ...
//	}
package metacache
