package epoch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/metacache/observe"
)

// DefaultRedisKey is the key holding the shared generation identity.
const DefaultRedisKey = "metacache:epoch"

// RedisConfig configures a RedisSource.
type RedisConfig struct {
	// Key holds the generation identity.
	// Default: DefaultRedisKey
	Key string

	// Refresh is how long a fetched identity is reused before Redis is
	// asked again. Zero fetches on every call.
	// Default: 0
	Refresh time.Duration

	// Logger receives fallback warnings.
	// Default: no-op
	Logger observe.Logger
}

// RedisSource reads the generation identity from a Redis key. Every process
// sharing the key sees the same identity, so a Bump from one process
// invalidates all of them. Identities are ULIDs, so a key that is lost and
// re-seeded never repeats an identity seen before.
type RedisSource struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	logger observe.Logger
	now    func() time.Time

	mu        sync.Mutex
	cached    string
	fetchedAt time.Time
}

// NewRedisSource wraps an existing client.
func NewRedisSource(client redis.UniversalClient, cfg RedisConfig) *RedisSource {
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &RedisSource{
		client: client,
		key:    cfg.Key,
		ttl:    cfg.Refresh,
		logger: cfg.Logger.With(observe.F("component", "epoch"), observe.F("key", cfg.Key)),
		now:    time.Now,
	}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("epoch: redis ping: %w", err)
	}
	return client, nil
}

// Current returns the shared identity. A missing key is seeded with a fresh ULID.
// When Redis is unreachable the last identity seen is returned; with no
// previous identity the error is returned.
func (r *RedisSource) Current(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.cached != "" && r.ttl > 0 && r.now().Sub(r.fetchedAt) < r.ttl {
		id := r.cached
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	id, err := r.fetch(ctx)
	if err != nil {
		r.mu.Lock()
		stale := r.cached
		r.mu.Unlock()
		if stale != "" {
			r.logger.Warn(ctx, "epoch fetch failed, using last known generation",
				observe.F("generation", stale), observe.F("error", err))
			return stale, nil
		}
		return "", fmt.Errorf("epoch: redis get: %w", err)
	}

	r.remember(id)
	return id, nil
}

func (r *RedisSource) fetch(ctx context.Context) (string, error) {
	id, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		if err := r.client.SetNX(ctx, r.key, ulid.Make().String(), 0).Err(); err != nil {
			return "", err
		}
		id, err = r.client.Get(ctx, r.key).Result()
	}
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrEmptyEpoch
	}
	return id, nil
}

// Bump replaces the shared identity with a fresh ULID.
func (r *RedisSource) Bump(ctx context.Context) (string, error) {
	id := ulid.Make().String()
	if err := r.client.Set(ctx, r.key, id, 0).Err(); err != nil {
		return "", fmt.Errorf("epoch: redis set: %w", err)
	}
	r.remember(id)
	r.logger.Info(ctx, "generation bumped", observe.F("generation", id))
	return id, nil
}

// Ping verifies Redis is reachable.
func (r *RedisSource) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSource) remember(id string) {
	r.mu.Lock()
	r.cached = id
	r.fetchedAt = r.now()
	r.mu.Unlock()
}

var (
	_ Source = (*RedisSource)(nil)
	_ Bumper = (*RedisSource)(nil)
)
