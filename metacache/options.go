package metacache

import (
	"context"
	"time"

	"github.com/jonwraymond/metacache/epoch"
	"github.com/jonwraymond/metacache/observe"
)

// DefaultRootKey is the facility key holding the cache root.
const DefaultRootKey = "MetadataCacheRoot"

// DefaultUser is the identity used for user values when the context
// carries no principal.
const DefaultUser = "administrator"

// DefaultSystemConfigTable is the table read by SystemConfig.
const DefaultSystemConfigTable = "T_SYSTEM_CONFIGURATION"

// IdentityFunc returns the caller identity for user values.
type IdentityFunc func(ctx context.Context) string

type options struct {
	epoch             epoch.Source
	maxGenerations    int
	identity          IdentityFunc
	logger            observe.Logger
	metrics           observe.Metrics
	mw                *observe.Middleware
	rootKey           string
	collapseMisses    bool
	enabled           bool
	dictionaryEnabled bool
	systemConfigTable string
	now               func() time.Time
}

func defaultOptions() options {
	return options{
		epoch:             epoch.Fixed("default"),
		maxGenerations:    DefaultMaxGenerations,
		rootKey:           DefaultRootKey,
		collapseMisses:    true,
		enabled:           true,
		dictionaryEnabled: true,
		systemConfigTable: DefaultSystemConfigTable,
		now:               time.Now,
	}
}

// Option configures a Cache.
type Option func(*options)

// WithEpoch sets the generation identity source.
// Default: epoch.Fixed("default"), which never evicts.
func WithEpoch(src epoch.Source) Option {
	return func(o *options) {
		if src != nil {
			o.epoch = src
		}
	}
}

// WithMaxGenerations bounds live generations. Values <= 0 select
// DefaultMaxGenerations.
func WithMaxGenerations(n int) Option {
	return func(o *options) { o.maxGenerations = n }
}

// WithIdentity sets how the caller identity is derived for user values.
// Default: the auth principal in the context.
func WithIdentity(fn IdentityFunc) Option {
	return func(o *options) { o.identity = fn }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMiddleware instruments store population with mw. When set, its
// metrics and logger are used unless overridden by WithMetrics or WithLogger.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) { o.mw = mw }
}

// WithRootKey sets the facility key holding the cache root.
func WithRootKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.rootKey = key
		}
	}
}

// WithCollapsedMisses controls whether concurrent misses for the same key
// share one store query. Default: true.
func WithCollapsedMisses(on bool) Option {
	return func(o *options) { o.collapseMisses = on }
}

// WithEnabled sets the initial state of the kill switch. Default: true.
func WithEnabled(on bool) Option {
	return func(o *options) { o.enabled = on }
}

// WithDictionaryEnabled sets the initial state of descriptor caching.
// Default: true.
func WithDictionaryEnabled(on bool) Option {
	return func(o *options) { o.dictionaryEnabled = on }
}

// WithSystemConfigTable sets the table read by SystemConfig.
func WithSystemConfigTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.systemConfigTable = table
		}
	}
}

// WithClock overrides the time source for generation timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
