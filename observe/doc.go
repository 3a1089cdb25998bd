// Package observe provides observability primitives for metadata cache
// operations.
//
// It is a pure instrumentation library: no lookups, no storage, no I/O beyond
// exporter setup. The cache and store layers take a Logger, Metrics and
// Middleware from here; the binary wires them from a single Observer.
package observe
