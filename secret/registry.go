package secret

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// ProviderFactory creates a Provider from its configuration section.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names from the secrets config section to
// factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry returns a Registry without providers.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]ProviderFactory{}}
}

// Register binds name to factory. Names are unique.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	if name = strings.TrimSpace(name); name == "" {
		return errors.New("secret: provider name is blank")
	}
	if factory == nil {
		return fmt.Errorf("secret: provider %q has no factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories[name] != nil {
		return fmt.Errorf("secret: provider %q is registered twice", name)
	}
	r.factories[name] = factory
	return nil
}

// Create runs the factory registered under name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	r.mu.RLock()
	factory := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return factory(cfg)
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Resolver builds a Resolver holding one provider per configured section.
// Providers without a section are created with an empty configuration, so
// the built-in providers are always available.
func (r *Registry) Resolver(sections map[string]map[string]any, opts ...ResolverOption) (*Resolver, error) {
	var providers []Provider
	for _, name := range r.List() {
		p, err := r.Create(name, sections[name])
		if err != nil {
			return nil, fmt.Errorf("secret: provider %q: %w", name, err)
		}
		providers = append(providers, p)
	}
	for name := range sections {
		if !slices.ContainsFunc(providers, func(p Provider) bool { return p.Name() == name }) {
			return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
		}
	}
	return NewResolver(append(opts, WithProviders(providers...))...), nil
}

// DefaultRegistry holds the built-in "env" and "file" providers. The file
// provider reads the "base_dir" setting.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("env", func(map[string]any) (Provider, error) {
		return NewEnvProvider(), nil
	})
	_ = r.Register("file", func(cfg map[string]any) (Provider, error) {
		dir, err := cast.ToStringE(cfg["base_dir"])
		if err != nil {
			return nil, fmt.Errorf("base_dir: %w", err)
		}
		return NewFileProvider(dir), nil
	})
	return r
}
