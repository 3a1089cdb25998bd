package metacache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/metacache/auth"
	"github.com/jonwraymond/metacache/cache"
	"github.com/jonwraymond/metacache/epoch"
	"github.com/jonwraymond/metacache/observe"
	"github.com/jonwraymond/metacache/store"
)

// Cache memoizes object descriptors and caller-supplied values on top of a
// cache facility.
//
// Contract:
//   - Concurrency: safe for concurrent use. Store queries never run under
//     the root lock.
//   - Context: lookups pass ctx to the store and the epoch source.
//   - Errors: ErrInvalidArgument, ErrNotFound and ErrDataAccess classify
//     every lookup failure.
//   - Ownership: returned descriptors are shared and must not be mutated.
type Cache struct {
	store    store.Store
	facility cache.Cache
	epoch    epoch.Source
	identity IdentityFunc
	logger   observe.Logger
	metrics  observe.Metrics
	mw       *observe.Middleware
	rootKey  string
	sysTable string
	now      func() time.Time
	maxGens  int

	enabled        atomic.Bool
	dictionary     atomic.Bool
	closed         atomic.Bool
	evictions      atomic.Uint64
	collapseMisses bool
	group          singleflight.Group

	// rootMu guards the root held in the facility and every map inside it.
	rootMu sync.RWMutex
}

// root is the value stored under the root key.
type root struct {
	partitions map[string]*partition
	tracker    *tracker
	shared     map[string]any
	users      map[string]map[string]any
}

// New creates a Cache over s, hosting its state in facility.
func New(s store.Store, facility cache.Cache, opts ...Option) (*Cache, error) {
	if s == nil {
		return nil, invalidArg("store", nil, "required")
	}
	if facility == nil {
		return nil, cache.ErrNilCache
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		if o.mw != nil {
			o.logger = o.mw.Logger()
		} else {
			o.logger = observe.NopLogger()
		}
	}
	if o.metrics == nil {
		if o.mw != nil {
			o.metrics = o.mw.Metrics()
		} else {
			o.metrics = observe.NopMetrics()
		}
	}
	if o.mw == nil {
		o.mw = observe.NewMiddleware(nil, o.metrics, o.logger)
	}
	if o.identity == nil {
		o.identity = auth.PrincipalFromContext
	}
	if o.maxGenerations <= 0 {
		o.maxGenerations = DefaultMaxGenerations
	}

	c := &Cache{
		store:          s,
		facility:       facility,
		epoch:          o.epoch,
		identity:       o.identity,
		logger:         o.logger.With(observe.F("component", "metacache")),
		metrics:        o.metrics,
		mw:             o.mw,
		rootKey:        o.rootKey,
		sysTable:       o.systemConfigTable,
		now:            o.now,
		maxGens:        o.maxGenerations,
		collapseMisses: o.collapseMisses,
	}
	c.enabled.Store(o.enabled)
	c.dictionary.Store(o.dictionaryEnabled)
	return c, nil
}

// lookupIndex selects which descriptor index a lookup uses.
type lookupIndex int

const (
	indexBusinessKey lookupIndex = iota
	indexTableName
)

func (i lookupIndex) String() string {
	if i == indexTableName {
		return "table_name"
	}
	return "business_key"
}

// ObjectDescriptor returns the descriptor for a business key or a table name.
// Exactly one of the two must be non-blank. Keys compare case-insensitively.
func (c *Cache) ObjectDescriptor(ctx context.Context, businessKey, tableName string) (*ObjectDescriptor, error) {
	bk, tn := foldKey(businessKey), foldKey(tableName)
	switch {
	case bk != "" && tn != "":
		return nil, invalidArg("lookup key", nil, "exactly one of business key and table name is required")
	case bk != "":
		return c.lookup(ctx, indexBusinessKey, bk)
	case tn != "":
		return c.lookup(ctx, indexTableName, tn)
	default:
		return nil, invalidArg("lookup key", nil, "business key or table name is required")
	}
}

// ObjectByBusinessKey returns the descriptor with the given business key.
func (c *Cache) ObjectByBusinessKey(ctx context.Context, businessKey string) (*ObjectDescriptor, error) {
	return c.ObjectDescriptor(ctx, businessKey, "")
}

// ObjectByTableName returns the descriptor for the given table.
func (c *Cache) ObjectByTableName(ctx context.Context, tableName string) (*ObjectDescriptor, error) {
	return c.ObjectDescriptor(ctx, "", tableName)
}

// ElementByColumn resolves the object for tableName and returns its element
// bound to columnName.
func (c *Cache) ElementByColumn(ctx context.Context, tableName, columnName string) (*ElementDescriptor, error) {
	if strings.TrimSpace(columnName) == "" {
		return nil, invalidArg("column name", nil, "required")
	}
	d, err := c.ObjectByTableName(ctx, tableName)
	if err != nil {
		return nil, err
	}
	e, ok := d.ElementByColumn(columnName)
	if !ok {
		return nil, notFound("column", foldKey(tableName)+"."+foldKey(columnName))
	}
	return e, nil
}

func (c *Cache) lookup(ctx context.Context, idx lookupIndex, key string) (*ObjectDescriptor, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if !c.DictionaryEnabled() {
		c.metrics.RecordLookup(ctx, idx.String(), observe.OutcomeBypass)
		return c.load(ctx, idx, key, "")
	}

	gen, err := c.epoch.Current(ctx)
	if err != nil {
		c.logger.Warn(ctx, "generation unavailable, loading uncached",
			observe.F(idx.String(), key), observe.F("error", err))
		c.metrics.RecordLookup(ctx, idx.String(), observe.OutcomeBypass)
		return c.load(ctx, idx, key, "")
	}

	if d := c.cached(gen, idx, key); d != nil {
		c.metrics.RecordLookup(ctx, idx.String(), observe.OutcomeHit)
		return d, nil
	}
	c.metrics.RecordLookup(ctx, idx.String(), observe.OutcomeMiss)

	v, err := c.shared(ctx, gen+"\x00"+idx.String()+"\x00"+key, func(ctx context.Context) (any, error) {
		return c.loadAndPublish(ctx, idx, key, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ObjectDescriptor), nil
}

// shared runs load once for concurrent callers of the same key. The load is
// detached from the cancellation of whichever caller started it; each caller
// stops waiting when its own ctx ends.
func (c *Cache) shared(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	if !c.collapseMisses {
		return load(ctx)
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return load(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) loadAndPublish(ctx context.Context, idx lookupIndex, key, gen string) (*ObjectDescriptor, error) {
	d, err := c.load(ctx, idx, key, gen)
	if err != nil {
		return nil, err
	}
	if d.partial {
		return d, nil
	}
	return c.publish(ctx, d), nil
}

// cached returns the descriptor indexed under gen, or nil.
func (c *Cache) cached(gen string, idx lookupIndex, key string) *ObjectDescriptor {
	c.rootMu.RLock()
	defer c.rootMu.RUnlock()

	r := c.loadRoot()
	if r == nil {
		return nil
	}
	p := r.partitions[gen]
	if p == nil {
		return nil
	}
	return p.index(idx)[key]
}

// publish stores d under its generation, indexed by business key and table
// name, and returns the canonical instance. A descriptor already published
// for the same business key wins so that both indices share one instance.
// A generation is only opened while it is current and was never evicted;
// otherwise d is returned unpublished.
func (c *Cache) publish(ctx context.Context, d *ObjectDescriptor) *ObjectDescriptor {
	if !c.DictionaryEnabled() || d.generation == "" {
		return d
	}
	if !c.hasPartition(d.generation) {
		if cur, err := c.epoch.Current(ctx); err != nil || cur != d.generation {
			c.logger.Debug(ctx, "generation no longer current, descriptor not cached",
				observe.F("business_key", d.BusinessKey), observe.F("generation", d.generation))
			return d
		}
	}

	c.rootMu.Lock()
	r := c.ensureRoot(ctx)
	p, ok := r.partitions[d.generation]
	var evicted string
	var didEvict bool
	if !ok {
		var accepted bool
		evicted, didEvict, accepted = r.tracker.track(d.generation, c.now())
		if !accepted {
			c.rootMu.Unlock()
			c.logger.Debug(ctx, "generation already evicted, descriptor not cached",
				observe.F("business_key", d.BusinessKey), observe.F("generation", d.generation))
			return d
		}
		p = newPartition()
		r.partitions[d.generation] = p
		if didEvict {
			delete(r.partitions, evicted)
		}
	}

	bk, tn := foldKey(d.BusinessKey), foldKey(d.TableName)
	if existing := p.byBusinessKey[bk]; existing != nil && bk != "" {
		d = existing
	} else if bk != "" {
		p.byBusinessKey[bk] = d
	}
	if tn != "" {
		p.byTableName[tn] = d
	}
	c.rootMu.Unlock()

	if didEvict {
		c.evictions.Add(1)
		c.metrics.RecordEviction(ctx, evicted)
		c.logger.Info(ctx, "generation evicted",
			observe.F("evicted", evicted), observe.F("generation", d.generation))
	}
	return d
}

func (c *Cache) hasPartition(gen string) bool {
	c.rootMu.RLock()
	defer c.rootMu.RUnlock()
	r := c.loadRoot()
	return r != nil && r.partitions[gen] != nil
}

// loadRoot returns the root held by the facility, or nil. Callers hold rootMu.
func (c *Cache) loadRoot() *root {
	v, ok := c.facility.Load(context.Background(), c.rootKey)
	if !ok {
		return nil
	}
	r, _ := v.(*root)
	return r
}

// ensureRoot returns the root, creating it when absent. Callers hold rootMu
// for writing.
func (c *Cache) ensureRoot(ctx context.Context) *root {
	if r := c.loadRoot(); r != nil {
		return r
	}
	r := &root{
		partitions: make(map[string]*partition),
		tracker:    newTracker(c.maxGens),
		shared:     make(map[string]any),
		users:      make(map[string]map[string]any),
	}
	if err := c.facility.Store(ctx, c.rootKey, r); err != nil {
		c.logger.Error(ctx, "storing cache root failed", observe.F("error", err))
	}
	return r
}

// SharedValue returns a process-wide value. Shared values are not tied to a
// generation and survive eviction.
func (c *Cache) SharedValue(ctx context.Context, key string) (any, bool) {
	if !c.Enabled() {
		return nil, false
	}
	c.rootMu.RLock()
	defer c.rootMu.RUnlock()

	r := c.loadRoot()
	if r == nil {
		return nil, false
	}
	v, ok := r.shared[key]
	return v, ok
}

// PutSharedValue stores a process-wide value. It is a no-op while the cache
// is disabled.
func (c *Cache) PutSharedValue(ctx context.Context, key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return invalidArg("key", nil, "required")
	}
	if !c.Enabled() {
		return nil
	}
	c.rootMu.Lock()
	defer c.rootMu.Unlock()

	c.ensureRoot(ctx).shared[key] = value
	return nil
}

// UserValue returns a value scoped to the caller identity in ctx.
func (c *Cache) UserValue(ctx context.Context, key string) (any, bool) {
	return c.UserValueFor(ctx, c.user(ctx), key)
}

// PutUserValue stores a value scoped to the caller identity in ctx.
func (c *Cache) PutUserValue(ctx context.Context, key string, value any) error {
	return c.PutUserValueFor(ctx, c.user(ctx), key, value)
}

// UserValueFor returns a value scoped to user.
func (c *Cache) UserValueFor(ctx context.Context, user, key string) (any, bool) {
	if !c.Enabled() {
		return nil, false
	}
	c.rootMu.RLock()
	defer c.rootMu.RUnlock()

	r := c.loadRoot()
	if r == nil {
		return nil, false
	}
	v, ok := r.users[strings.TrimSpace(user)][key]
	return v, ok
}

// PutUserValueFor stores a value scoped to user.
func (c *Cache) PutUserValueFor(ctx context.Context, user, key string, value any) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return invalidArg("user", nil, "required")
	}
	if strings.TrimSpace(key) == "" {
		return invalidArg("key", nil, "required")
	}
	if !c.Enabled() {
		return nil
	}
	c.rootMu.Lock()
	defer c.rootMu.Unlock()

	r := c.ensureRoot(ctx)
	values := r.users[user]
	if values == nil {
		values = make(map[string]any)
		r.users[user] = values
	}
	values[key] = value
	return nil
}

func (c *Cache) user(ctx context.Context) string {
	if u := strings.TrimSpace(c.identity(ctx)); u != "" {
		return u
	}
	return DefaultUser
}

// Clear drops every generation and value held by this cache. Other keys in
// the facility are untouched.
func (c *Cache) Clear(ctx context.Context) error {
	c.rootMu.Lock()
	err := c.facility.Remove(ctx, c.rootKey)
	c.rootMu.Unlock()
	if err != nil {
		return err
	}
	c.logger.Info(ctx, "cache cleared")
	return nil
}

// ClearAll clears the whole facility, including keys owned by others.
func (c *Cache) ClearAll(ctx context.Context) error {
	c.rootMu.Lock()
	err := c.facility.ClearAll(ctx)
	c.rootMu.Unlock()
	if err != nil {
		return err
	}
	c.logger.Info(ctx, "cache facility cleared")
	return nil
}

// SetEnabled turns the cache on or off. While off every lookup reads the
// store, nothing is written and value reads report absent.
func (c *Cache) SetEnabled(on bool) {
	if c.enabled.Swap(on) != on {
		c.logger.Info(context.Background(), "cache enabled changed", observe.F("enabled", on))
	}
}

// Enabled reports whether the cache is on.
func (c *Cache) Enabled() bool {
	return c.enabled.Load() && !c.closed.Load()
}

// SetDictionaryEnabled turns descriptor caching on or off without touching
// shared and user values.
func (c *Cache) SetDictionaryEnabled(on bool) {
	if c.dictionary.Swap(on) != on {
		c.logger.Info(context.Background(), "descriptor caching changed", observe.F("enabled", on))
	}
}

// DictionaryEnabled reports whether descriptors are cached. It is false
// whenever the cache itself is off.
func (c *Cache) DictionaryEnabled() bool {
	return c.Enabled() && c.dictionary.Load()
}

// Epoch returns the generation identity source.
func (c *Cache) Epoch() epoch.Source {
	return c.epoch
}

// Shutdown clears the cache and disables it. Later lookups fail with
// ErrClosed. Shutdown is idempotent.
func (c *Cache) Shutdown(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.enabled.Store(false)
	return c.Clear(ctx)
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Enabled           bool             `json:"enabled" yaml:"enabled"`
	DictionaryEnabled bool             `json:"dictionary_enabled" yaml:"dictionary_enabled"`
	MaxGenerations    int              `json:"max_generations" yaml:"max_generations"`
	Generations       []GenerationInfo `json:"generations" yaml:"generations"`
	SharedKeys        int              `json:"shared_keys" yaml:"shared_keys"`
	Users             int              `json:"users" yaml:"users"`
	Evictions         uint64           `json:"evictions" yaml:"evictions"`
}

// Stats reports the current cache state.
func (c *Cache) Stats(ctx context.Context) Stats {
	s := Stats{
		Enabled:           c.Enabled(),
		DictionaryEnabled: c.DictionaryEnabled(),
		MaxGenerations:    c.maxGens,
		Evictions:         c.evictions.Load(),
		Generations:       []GenerationInfo{},
	}

	c.rootMu.RLock()
	defer c.rootMu.RUnlock()

	r := c.loadRoot()
	if r == nil {
		return s
	}
	gens, _ := r.tracker.snapshot()
	for i := range gens {
		if p := r.partitions[gens[i].ID]; p != nil {
			gens[i].Descriptors = p.descriptorCount()
		}
	}
	s.Generations = gens
	s.SharedKeys = len(r.shared)
	s.Users = len(r.users)
	return s
}
