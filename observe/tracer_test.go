package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracer_SpanStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())
	tr := NewTracer(tp.Tracer("test"))

	tests := []struct {
		name      string
		op        Operation
		err       error
		wantCode  codes.Code
		wantError bool
	}{
		{"ok", Operation{Component: "cache", Name: "object_descriptor"}, nil, codes.Ok, false},
		{"failed", Operation{Component: "store", Name: "query", Statement: "object_row"}, errors.New("boom"), codes.Error, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, span := tr.StartSpan(context.Background(), tt.op)
			tr.EndSpan(span, tt.err)

			ended := rec.Ended()
			got := ended[len(ended)-1]
			if got.Name() != tt.op.SpanName() {
				t.Errorf("span name = %q, want %q", got.Name(), tt.op.SpanName())
			}
			if got.Status().Code != tt.wantCode {
				t.Errorf("status = %v, want %v", got.Status().Code, tt.wantCode)
			}
			attrs := map[attribute.Key]attribute.Value{}
			for _, kv := range got.Attributes() {
				attrs[kv.Key] = kv.Value
			}
			if attrs["op.id"].AsString() != tt.op.ID() {
				t.Errorf("op.id = %q", attrs["op.id"].AsString())
			}
			if v, ok := attrs["op.error"]; ok != tt.wantError || (ok && !v.AsBool()) {
				t.Errorf("op.error = %v (set %v), want set %v", v.AsBool(), ok, tt.wantError)
			}
			if tt.op.Statement != "" && attrs["db.statement.name"].AsString() != tt.op.Statement {
				t.Errorf("db.statement.name = %q", attrs["db.statement.name"].AsString())
			}
			if len(got.Events()) != boolToInt(tt.wantError) {
				t.Errorf("events = %d", len(got.Events()))
			}
		})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestNopTracer(t *testing.T) {
	for _, tr := range []Tracer{NopTracer(), NewTracer(nil)} {
		ctx, span := tr.StartSpan(context.Background(), Operation{Name: "x"})
		if ctx == nil || span.SpanContext().IsValid() {
			t.Error("nop tracer must produce a non-recording span")
		}
		tr.EndSpan(span, errors.New("ignored"))
	}
}
