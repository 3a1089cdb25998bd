package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver expands environment variables and resolves secret references.
type Resolver struct {
	providers  map[string]Provider
	allowEmpty bool
	lookupEnv  func(string) (string, bool)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithProviders registers providers by name. Later providers replace
// earlier ones with the same name.
func WithProviders(providers ...Provider) ResolverOption {
	return func(r *Resolver) {
		for _, p := range providers {
			if p != nil {
				r.providers[p.Name()] = p
			}
		}
	}
}

// AllowEmpty accepts references that resolve to "". By default they fail
// with ErrEmpty.
func AllowEmpty() ResolverOption {
	return func(r *Resolver) { r.allowEmpty = true }
}

// WithLookupEnv replaces os.LookupEnv for environment expansion.
func WithLookupEnv(lookup func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) {
		if lookup != nil {
			r.lookupEnv = lookup
		}
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveValue expands environment variables in value and then resolves
// secret references.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := expandEnv(value, r.lookupEnv)
	if err != nil {
		return "", err
	}
	if !strings.Contains(expanded, refPrefix) {
		return expanded, nil
	}
	if provider, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveOne(ctx, provider, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveInPlace resolves each non-empty target and stores the result.
// Targets are left unchanged when any of them fails.
func (r *Resolver) ResolveInPlace(ctx context.Context, targets map[string]*string) error {
	resolved := make(map[string]string, len(targets))
	for field, ptr := range targets {
		if ptr == nil || *ptr == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		resolved[field] = v
	}
	for field, v := range resolved {
		*targets[field] = v
	}
	return nil
}

// ParseSecretRef parses a value that is exactly one reference:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" || strings.ContainsAny(provider+ref, " \t\n") {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolveOne(ctx context.Context, providerName, ref string) (string, error) {
	p, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotFound, providerName)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if v == "" && !r.allowEmpty {
		return "", fmt.Errorf("%w: %s:%s", ErrEmpty, providerName, ref)
	}
	return v, nil
}

// inlineRef matches a reference inside a longer value. The reference ends
// at whitespace or at a character that delimits URL components, so inline
// references name flat keys rather than paths.
var inlineRef = regexp.MustCompile(`secretref:([A-Za-z0-9_-]+):([^\s@:/?#]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range inlineRef.FindAllStringSubmatchIndex(value, -1) {
		v, err := r.resolveOne(ctx, value[m[2]:m[3]], value[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		b.WriteString(value[last:m[0]])
		b.WriteString(v)
		last = m[1]
	}
	if last == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, redactRefs(value))
	}
	b.WriteString(value[last:])
	return b.String(), nil
}

// redactRefs keeps the text before the first reference.
func redactRefs(value string) string {
	i := strings.Index(value, refPrefix)
	return value[:i+len(refPrefix)] + "..."
}
