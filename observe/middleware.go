package observe

import (
	"context"
	"errors"
	"time"
)

// ErrNilObserver is returned by MiddlewareFromObserver for a nil Observer.
var ErrNilObserver = errors.New("observe: observer is nil")

// ExecuteFunc is the signature Middleware wraps.
type ExecuteFunc func(ctx context.Context, op Operation) (any, error)

// Middleware records a span, the operation metrics and one log entry around
// each wrapped call.
//
// Contract:
//   - Concurrency: the ExecuteFunc returned by Wrap may be shared.
//   - Context: the span context is handed to the wrapped call.
//   - Errors: returned unchanged after being recorded.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware substitutes a no-op for each nil argument.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap instruments fn. Successes log at debug, failures at error.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, op Operation) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)

		start := time.Now()
		result, err := fn(ctx, op)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordOperation(ctx, op, duration, err)

		fields := []Field{
			F("op", op.ID()),
			F("duration_ms", float64(duration.Microseconds())/1000),
		}
		if op.Statement != "" {
			fields = append(fields, F("statement", op.Statement))
		}

		if err != nil {
			fields = append(fields, F("error", err.Error()))
			m.logger.Error(ctx, "operation failed", fields...)
		} else {
			m.logger.Debug(ctx, "operation completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver builds the tracer and metrics from obs.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
