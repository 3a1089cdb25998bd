// Package exporters builds the OpenTelemetry trace exporters and metric
// readers selected by name in observe.Config.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrNoEndpoint is returned when a network exporter has no endpoint in
	// its environment variables.
	ErrNoEndpoint = errors.New("exporters: endpoint not configured")
)

// Options tunes exporter construction.
type Options struct {
	// Writer receives stdout exporter output.
	// Default: os.Stdout
	Writer io.Writer

	// Registerer receives the Prometheus collector.
	// Default: prometheus.DefaultRegisterer
	Registerer promclient.Registerer
}

// Option mutates Options.
type Option func(*Options)

// WithWriter directs stdout exporters to w.
func WithWriter(w io.Writer) Option {
	return func(o *Options) { o.Writer = w }
}

// WithRegisterer registers the Prometheus collector with r.
func WithRegisterer(r promclient.Registerer) Option {
	return func(o *Options) { o.Registerer = r }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Writer == nil {
		o.Writer = os.Stdout
	}
	return o
}

// firstEnv returns the first non-empty variable among keys, or an
// ErrNoEndpoint error naming them.
func firstEnv(keys ...string) (string, error) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: set one of %v", ErrNoEndpoint, keys)
}

// NewTracingExporter returns the span exporter named by name: stdout, otlp,
// jaeger, or none. "none" and "" return a nil exporter.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	o := buildOptions(opts)
	switch name {
	case "", "none":
		return nil, nil
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(o.Writer))
	case "otlp":
		if _, err := firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	case "jaeger":
		// Jaeger ingests OTLP directly.
		endpoint, err := firstEnv("OTEL_EXPORTER_JAEGER_ENDPOINT")
		if err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpoint))
	default:
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader returns the metric reader named by name: stdout, otlp,
// prometheus, or none. "none" and "" return a nil reader.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	o := buildOptions(opts)
	switch name {
	case "", "none":
		return nil, nil
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.Writer))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if _, err := firstEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "prometheus":
		var promOpts []prometheus.Option
		if o.Registerer != nil {
			promOpts = append(promOpts, prometheus.WithRegisterer(o.Registerer))
		}
		exp, err := prometheus.New(promOpts...)
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, name)
	}
}
