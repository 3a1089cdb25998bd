package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonwraymond/metacache/auth"
	"github.com/jonwraymond/metacache/cache"
	"github.com/jonwraymond/metacache/config"
	"github.com/jonwraymond/metacache/epoch"
	"github.com/jonwraymond/metacache/health"
	"github.com/jonwraymond/metacache/metacache"
	"github.com/jonwraymond/metacache/observe"
	"github.com/jonwraymond/metacache/resilience"
	"github.com/jonwraymond/metacache/store"
)

// app holds the components built from a Config. close releases them in
// reverse order.
type app struct {
	cfg      *config.Config
	zap      *zap.Logger
	logger   observe.Logger
	registry *prometheus.Registry
	observer observe.Observer
	db       *store.SQLStore
	redis    *redis.Client
	source   epoch.Source
	cache    *metacache.Cache
	health   *health.Aggregator
}

// newLogger builds the zap-backed logger selected by cfg.Observe.Logging.
func newLogger(cfg *config.Config) (*zap.Logger, observe.Logger, error) {
	if !cfg.Observe.Logging.Enabled {
		return nil, observe.NopLogger(), nil
	}
	level := cfg.Observe.Logging.Level
	if level == "" {
		level = "info"
	}
	z, err := observe.NewZapProduction(level)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return z, observe.NewZapLogger(z).With(observe.F("service", cfg.Observe.ServiceName)), nil
}

// newEpochSource returns the configured generation source. The Redis client
// is returned so the caller can close it.
func newEpochSource(ctx context.Context, cfg config.EpochConfig, logger observe.Logger) (epoch.Source, *redis.Client, error) {
	switch cfg.Source {
	case "fixed":
		return epoch.Fixed(cfg.ID), nil, nil
	case "manual":
		return epoch.NewManual(), nil, nil
	case "redis":
		client, err := epoch.DialRedis(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("epoch: %w", err)
		}
		src := epoch.NewRedisSource(client, epoch.RedisConfig{
			Key:     cfg.Redis.Key,
			Refresh: cfg.Redis.Refresh,
			Logger:  logger,
		})
		return src, client, nil
	default:
		return nil, nil, fmt.Errorf("epoch: unknown source %q", cfg.Source)
	}
}

// newApp wires store, epoch source, cache and health checks.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.close(context.WithoutCancel(ctx))
			a = nil
		}
	}()

	a.zap, a.logger, err = newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.observer, err = observe.NewObserver(ctx, cfg.Observe,
		observe.WithLogger(a.logger),
		observe.WithRegisterer(a.registry),
	)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(a.observer)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}

	dialect, err := store.DialectByName(cfg.Store.Dialect)
	if err != nil {
		return nil, err
	}
	a.db, err = store.Open(ctx, dialect, cfg.Store.DSN, store.PoolConfig{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	exec, err := cfg.Store.Resilience.Build(
		resilience.WithRetryIf(store.IsTransient),
		resilience.WithOnStateChange(func(from, to resilience.State) {
			a.logger.Warn(context.Background(), "store circuit changed",
				observe.F("from", from.String()), observe.F("to", to.String()))
		}),
	)
	if err != nil {
		return nil, err
	}
	s := store.Instrument(store.WithExecutor(a.db, exec), mw)

	a.source, a.redis, err = newEpochSource(ctx, cfg.Epoch, a.logger)
	if err != nil {
		return nil, err
	}

	a.cache, err = metacache.New(s, cache.NewMemoryCache(),
		metacache.WithEpoch(a.source),
		metacache.WithMaxGenerations(cfg.Cache.MaxGenerations),
		metacache.WithRootKey(cfg.Cache.RootKey),
		metacache.WithCollapsedMisses(cfg.Cache.CollapseMisses),
		metacache.WithEnabled(cfg.Cache.Enabled),
		metacache.WithDictionaryEnabled(cfg.Cache.DictionaryEnabled),
		metacache.WithSystemConfigTable(cfg.Cache.SystemConfigTable),
		metacache.WithIdentity(auth.PrincipalFromContext),
		metacache.WithLogger(a.logger),
		metacache.WithMiddleware(mw),
		metacache.WithMetrics(mw.Metrics()),
	)
	if err != nil {
		return nil, err
	}

	a.health = health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Server.HealthTimeout})
	a.health.Register(a.cache.Checker())
	a.health.Register(health.NewPingChecker("store", a.db, cfg.Server.HealthTimeout))
	if pinger, ok := a.source.(health.Pinger); ok {
		a.health.Register(health.NewPingChecker("epoch", pinger, cfg.Server.HealthTimeout))
	}
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Shutdown(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.observer != nil {
		errs = append(errs, a.observer.Shutdown(ctx))
	}
	if a.zap != nil {
		_ = a.zap.Sync()
	}
	return errors.Join(errs...)
}

// newAuth builds the admin authenticator and authorizer. A nil
// authenticator means authentication is disabled.
func newAuth(cfg config.AuthConfig) (auth.Authenticator, auth.Authorizer) {
	authz := auth.NewRoleAuthorizer(cfg.RBAC)
	if !cfg.Enabled {
		return nil, authz
	}

	var authns []auth.Authenticator
	if cfg.JWT.Key != "" {
		authns = append(authns, auth.NewJWTAuthenticator(cfg.JWT.JWTConfig, auth.NewStaticKeyProvider([]byte(cfg.JWT.Key))))
	}
	if len(cfg.APIKeys) > 0 {
		keys := auth.NewMemoryAPIKeyStore()
		for i := range cfg.APIKeys {
			keys.Add(&cfg.APIKeys[i])
		}
		authns = append(authns, auth.NewAPIKeyAuthenticator(cfg.Header, keys))
	}
	return auth.NewCompositeAuthenticator(authns...), authz
}
