package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jonwraymond/metacache/store"
)

// Validation errors.
var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid")

	// ValidEpochSources lists the accepted epoch.source values.
	ValidEpochSources = []string{"fixed", "manual", "redis"}
)

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, err := store.DialectByName(c.Store.Dialect); err != nil {
		add("store.dialect: %v", err)
	}
	if c.Store.DSN == "" {
		add("store.dsn is required")
	}
	if c.Store.MaxOpenConns < 0 || c.Store.MaxIdleConns < 0 {
		add("store connection limits must be >= 0")
	}
	if err := c.Store.Resilience.Validate(); err != nil {
		add("store.resilience: %v", err)
	}

	if c.Cache.MaxGenerations < 0 {
		add("cache.max_generations must be >= 0, got %d", c.Cache.MaxGenerations)
	}

	if !slices.Contains(ValidEpochSources, c.Epoch.Source) {
		add("epoch.source %q is not one of %v", c.Epoch.Source, ValidEpochSources)
	}
	if c.Epoch.Source == "fixed" && c.Epoch.ID == "" {
		add("epoch.id is required for a fixed source")
	}
	if c.Epoch.Source == "redis" && c.Epoch.Redis.Addr == "" {
		add("epoch.redis.addr is required for a redis source")
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}

	if c.Auth.Enabled && c.Auth.JWT.Key == "" && len(c.Auth.APIKeys) == 0 {
		add("auth is enabled but neither auth.jwt.key nor auth.api_keys is set")
	}
	for i, k := range c.Auth.APIKeys {
		if k.ID == "" || k.KeyHash == "" || k.Principal == "" {
			add("auth.api_keys[%d] needs id, key_hash and principal", i)
		}
	}
	for name, role := range c.Auth.RBAC.Roles {
		for _, parent := range role.Inherits {
			if _, ok := c.Auth.RBAC.Roles[parent]; !ok {
				add("auth.rbac.roles.%s inherits unknown role %q", name, parent)
			}
		}
	}

	if err := c.Observe.Validate(); err != nil {
		add("observe: %v", err)
	}

	return errors.Join(errs...)
}
