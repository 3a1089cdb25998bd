package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lookup outcomes passed to RecordLookup.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeBypass   = "bypass"
	OutcomeNotFound = "not_found"
)

// Metrics records cache and store metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records an operation with duration and error status.
	RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordLookup counts a descriptor lookup against an index
	// ("business_key" or "table_name") with one of the Outcome constants.
	RecordLookup(ctx context.Context, index, outcome string)

	// RecordEviction counts a generation partition removed by the tracker.
	RecordEviction(ctx context.Context, generation string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount    metric.Int64Counter
	errorCount    metric.Int64Counter
	durationHist  metric.Float64Histogram
	lookupCount   metric.Int64Counter
	evictionCount metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"metacache.op.total",
		metric.WithDescription("Total number of operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"metacache.op.errors",
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"metacache.op.duration_ms",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookupCount, err := meter.Int64Counter(
		"metacache.lookup.total",
		metric.WithDescription("Descriptor lookups by index and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	evictionCount, err := meter.Int64Counter(
		"metacache.generation.evictions",
		metric.WithDescription("Generation partitions evicted"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:    totalCount,
		errorCount:    errorCount,
		durationHist:  durationHist,
		lookupCount:   lookupCount,
		evictionCount: evictionCount,
	}, nil
}

// RecordOperation records metrics for an operation.
func (m *metricsImpl) RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op.id", op.ID()),
		attribute.String("op.name", op.Name),
	}
	if op.Component != "" {
		attrs = append(attrs, attribute.String("op.component", op.Component))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordLookup(ctx context.Context, index, outcome string) {
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("index", index),
		attribute.String("outcome", outcome),
	))
}

func (m *metricsImpl) RecordEviction(ctx context.Context, generation string) {
	m.evictionCount.Add(ctx, 1, metric.WithAttributes(attribute.String("generation", generation)))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordOperation(context.Context, Operation, time.Duration, error) {}
func (noopMetrics) RecordLookup(context.Context, string, string)                   {}
func (noopMetrics) RecordEviction(context.Context, string)                         {}
