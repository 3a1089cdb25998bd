package observe

import (
	"errors"
	"fmt"
	"slices"
)

// Config holds all configuration for the Observer.
type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	Version     string        `mapstructure:"version"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Exporter is otlp, jaeger, stdout or none.
	Exporter string `mapstructure:"exporter"`

	// SamplePct is the sampled fraction of traces, 0.0 to 1.0.
	SamplePct float64 `mapstructure:"sample_pct"`
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Exporter is otlp, prometheus, stdout or none.
	Exporter string `mapstructure:"exporter"`
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
}

// Configuration errors. Validate wraps them with the offending value.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
)

var (
	tracingExporters = []string{"", "none", "otlp", "jaeger", "stdout"}
	metricsExporters = []string{"", "none", "otlp", "prometheus", "stdout"}
	logLevels        = []string{"", "debug", "info", "warn", "error"}
)

// Validate reports every problem in c. Settings of a disabled subsystem
// are not checked.
func (c *Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, ErrMissingServiceName)
	}

	if c.Tracing.Enabled {
		if !slices.Contains(tracingExporters, c.Tracing.Exporter) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter))
		}
		if c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1 {
			errs = append(errs, fmt.Errorf("%w, got %g", ErrInvalidSamplePct, c.Tracing.SamplePct))
		}
	}

	if c.Metrics.Enabled && !slices.Contains(metricsExporters, c.Metrics.Exporter) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Metrics.Exporter))
	}
	if c.Logging.Enabled && !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level))
	}
	return errors.Join(errs...)
}
