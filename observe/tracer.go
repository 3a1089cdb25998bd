package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const spanPrefix = "metacache."

// Operation describes one instrumented unit of work.
type Operation struct {
	Component string // "cache", "store", "epoch", ...
	Name      string
	Statement string // named statement of a store call, if any
}

// ID returns component.name, or just name when no component is set.
func (o Operation) ID() string {
	if o.Component == "" {
		return o.Name
	}
	return o.Component + "." + o.Name
}

// SpanName is "metacache." followed by ID.
func (o Operation) SpanName() string { return spanPrefix + o.ID() }

func (o Operation) attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, attribute.String("op.id", o.ID()), attribute.String("op.name", o.Name))
	if o.Component != "" {
		attrs = append(attrs, attribute.String("op.component", o.Component))
	}
	if o.Statement != "" {
		attrs = append(attrs, attribute.String("db.statement.name", o.Statement))
	}
	return attrs
}

// Tracer opens and closes one span per Operation.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan is best-effort and never panics.
type Tracer interface {
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type spanTracer struct {
	tracer trace.Tracer
}

// NewTracer adapts an OpenTelemetry tracer. A nil t yields NopTracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return spanTracer{tracer: t}
}

// NopTracer returns a Tracer whose spans are never recorded.
func NopTracer() Tracer {
	return spanTracer{tracer: tracenoop.NewTracerProvider().Tracer("")}
}

func (t spanTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(op.attributes()...),
	)
}

func (spanTracer) EndSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("op.error", true))
	span.SetStatus(codes.Error, err.Error())
}
