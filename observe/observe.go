package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/metacache/observe/exporters"
)

// Observer bundles the tracer, meter and logger of one process.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Shutdown: flushes exporters, honors ctx and reports every failure.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
	Shutdown(ctx context.Context) error
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	// Providers are nil for disabled subsystems.
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	exporterOpts []exporters.Option
}

// ObserverOption customizes NewObserver.
type ObserverOption func(*observer)

// WithLogger replaces the logger built from LoggingConfig.
func WithLogger(l Logger) ObserverOption {
	return func(o *observer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer registers the Prometheus collector with r instead of the
// global default registry.
func WithRegisterer(r prometheus.Registerer) ObserverOption {
	return func(o *observer) {
		if r != nil {
			o.exporterOpts = append(o.exporterOpts, exporters.WithRegisterer(r))
		}
	}
}

// NewObserver validates cfg and builds the enabled providers. Enabled
// providers are installed as the otel globals.
func NewObserver(ctx context.Context, cfg Config, opts ...ObserverOption) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  metricnoop.NewMeterProvider().Meter(cfg.ServiceName),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = NopLogger()
		if cfg.Logging.Enabled {
			o.logger = NewLogger(cfg.Logging.Level)
		}
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, o.exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		tpOpts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler(cfg.Tracing.SamplePct)),
		}
		if exp != nil {
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
		}
		o.tp = sdktrace.NewTracerProvider(tpOpts...)
		otel.SetTracerProvider(o.tp)
		o.tracer = o.tp.Tracer(cfg.ServiceName)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, o.exporterOpts...)
		if err != nil {
			_ = o.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics: %w", err)
		}
		mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if reader != nil {
			mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
		}
		o.mp = sdkmetric.NewMeterProvider(mpOpts...)
		otel.SetMeterProvider(o.mp)
		o.meter = o.mp.Meter(cfg.ServiceName)
	}

	return o, nil
}

func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(pct)
	}
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tp != nil {
		if err := o.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.mp != nil {
		if err := o.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
