// Package cache provides the process-wide cache facility that hosts
// the metadata cache root.
//
// A facility is a flat keyed store of arbitrary values. Callers own the
// structure of what they store; the facility only offers Load, Store, Remove
// and ClearAll. MemoryCache is the in-process implementation.
package cache
