package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jonwraymond/metacache/auth"
	"github.com/jonwraymond/metacache/observe"
	"github.com/jonwraymond/metacache/resilience"
	"github.com/jonwraymond/metacache/secret"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "METACACHE"

// Config is the complete service configuration.
type Config struct {
	Store   StoreConfig               `mapstructure:"store"`
	Cache   CacheConfig               `mapstructure:"cache"`
	Epoch   EpochConfig               `mapstructure:"epoch"`
	Server  ServerConfig              `mapstructure:"server"`
	Auth    AuthConfig                `mapstructure:"auth"`
	Observe observe.Config            `mapstructure:"observe"`
	Secrets map[string]map[string]any `mapstructure:"secrets"`
}

// StoreConfig configures the metadata database.
type StoreConfig struct {
	// Dialect is postgres, sqlite or ansi.
	// Default: "postgres"
	Dialect string `mapstructure:"dialect"`

	// DSN is the driver connection string. Required.
	DSN string `mapstructure:"dsn"`

	// Default: 10
	MaxOpenConns int `mapstructure:"max_open_conns"`

	// Default: 5
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// Default: 30m
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// Resilience wraps every store call.
	Resilience resilience.PolicyConfig `mapstructure:"resilience"`
}

// CacheConfig configures the metadata cache.
type CacheConfig struct {
	// Default: true
	Enabled bool `mapstructure:"enabled"`

	// DictionaryEnabled controls descriptor caching.
	// Default: true
	DictionaryEnabled bool `mapstructure:"dictionary_enabled"`

	// MaxGenerations bounds live generations.
	// Default: 5
	MaxGenerations int `mapstructure:"max_generations"`

	// Default: "MetadataCacheRoot"
	RootKey string `mapstructure:"root_key"`

	// CollapseMisses shares one store query between concurrent misses.
	// Default: true
	CollapseMisses bool `mapstructure:"collapse_misses"`

	// Default: "T_SYSTEM_CONFIGURATION"
	SystemConfigTable string `mapstructure:"system_config_table"`
}

// EpochConfig selects the generation identity source.
type EpochConfig struct {
	// Source is fixed, manual or redis.
	// Default: "manual"
	Source string `mapstructure:"source"`

	// ID is the identity of a fixed source.
	// Default: "default"
	ID string `mapstructure:"id"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the shared Redis epoch.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// Default: "metacache:epoch"
	Key string `mapstructure:"key"`

	// Refresh is how long a fetched identity is reused.
	// Default: 1s
	Refresh time.Duration `mapstructure:"refresh"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	// Default: ":8080"
	Addr string `mapstructure:"addr"`

	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// Default: 30s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// Default: 15s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// HealthTimeout bounds each health check.
	// Default: 2s
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
}

// AuthConfig configures admin API authentication.
type AuthConfig struct {
	// Enabled turns authentication on. When off, every request is served
	// as the anonymous identity with AnonymousRoles.
	// Default: true
	Enabled bool `mapstructure:"enabled"`

	// AnonymousRoles are granted when authentication is disabled.
	AnonymousRoles []string `mapstructure:"anonymous_roles"`

	JWT     JWTConfig         `mapstructure:"jwt"`
	APIKeys []auth.APIKeyInfo `mapstructure:"api_keys"`
	RBAC    auth.RBACConfig   `mapstructure:"rbac"`
	Header  string            `mapstructure:"api_key_header"`
}

// JWTConfig extends auth.JWTConfig with the verification key.
type JWTConfig struct {
	auth.JWTConfig `mapstructure:",squash"`

	// Key is the HMAC secret. Usually a secretref.
	Key string `mapstructure:"key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.dialect", "postgres")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dictionary_enabled", true)
	v.SetDefault("cache.max_generations", 5)
	v.SetDefault("cache.root_key", "MetadataCacheRoot")
	v.SetDefault("cache.collapse_misses", true)
	v.SetDefault("cache.system_config_table", "T_SYSTEM_CONFIGURATION")

	v.SetDefault("epoch.source", "manual")
	v.SetDefault("epoch.id", "default")
	v.SetDefault("epoch.redis.addr", "")
	v.SetDefault("epoch.redis.password", "")
	v.SetDefault("epoch.redis.key", "metacache:epoch")
	v.SetDefault("epoch.redis.refresh", time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.health_timeout", 2*time.Second)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.api_key_header", auth.DefaultAPIKeyHeader)
	v.SetDefault("auth.jwt.key", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.rbac.roles", map[string]any{
		"cache-reader": map[string]any{"actions": []string{"describe:*", "cache:stats"}},
		"cache-admin": map[string]any{
			"actions":  []string{"cache:*", "epoch:bump"},
			"inherits": []string{"cache-reader"},
		},
	})

	v.SetDefault("observe.service_name", "metacache")
	v.SetDefault("observe.metrics.enabled", true)
	v.SetDefault("observe.metrics.exporter", "prometheus")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")
}

// Default returns the configuration used when no file or environment
// override is present. Its DSN is empty, so it does not validate.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg, decodeHooks())
	return &cfg
}

// Load reads path (or metacache.yaml in the working directory and
// /etc/metacache when path is empty), applies METACACHE_ environment
// overrides, resolves secret references and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metacache")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/metacache")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHooks()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeHooks() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// ResolveSecrets expands environment variables and secret references in
// the credential fields: store.dsn, epoch.redis.password, auth.jwt.key and
// each api key hash.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	resolver, err := secret.DefaultRegistry.Resolver(c.Secrets)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	targets := map[string]*string{
		"store.dsn":            &c.Store.DSN,
		"epoch.redis.password": &c.Epoch.Redis.Password,
		"auth.jwt.key":         &c.Auth.JWT.Key,
	}
	for i := range c.Auth.APIKeys {
		targets[fmt.Sprintf("auth.api_keys[%d].key_hash", i)] = &c.Auth.APIKeys[i].KeyHash
	}
	if err := resolver.ResolveInPlace(ctx, targets); err != nil {
		return fmt.Errorf("config: resolve %w", err)
	}
	return nil
}
