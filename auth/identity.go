package auth

import (
	"context"
	"slices"
	"time"
)

// AuthMethod names how an identity was established.
type AuthMethod string

const (
	AuthMethodNone      AuthMethod = "none"
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAPIKey    AuthMethod = "api_key"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal identifies the caller. User values in the cache are scoped
	// by it.
	Principal string

	Roles  []string
	Method AuthMethod

	// Claims holds token claims or API key metadata.
	Claims map[string]any

	// ExpiresAt is zero for identities that never expire.
	ExpiresAt time.Time
}

func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

func (id *Identity) IsExpired() bool {
	return !id.ExpiresAt.IsZero() && !time.Now().Before(id.ExpiresAt)
}

// IsAnonymous reports whether id carries no real principal.
func (id *Identity) IsAnonymous() bool {
	return id.Principal == "" || id.Method == AuthMethodAnonymous
}

// AnonymousIdentity is the identity used when authentication is off.
func AnonymousIdentity() *Identity {
	return &Identity{Principal: "anonymous", Method: AuthMethodAnonymous, Claims: map[string]any{}}
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached to ctx, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// PrincipalFromContext returns the principal attached to ctx, or "".
// It satisfies metacache.IdentityFunc.
func PrincipalFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Principal
	}
	return ""
}
