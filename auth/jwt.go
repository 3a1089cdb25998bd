package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string `mapstructure:"issuer"`

	// Audience is the expected token audience (aud claim). Empty skips the
	// check.
	Audience string `mapstructure:"audience"`

	// Methods lists the accepted signing algorithms.
	// Default: ["HS256"]
	Methods []string `mapstructure:"methods"`

	// PrincipalClaim is the claim containing the user principal.
	// Default: "sub"
	PrincipalClaim string `mapstructure:"principal_claim"`

	// RolesClaim is the claim containing user roles, either an array or a
	// space separated string.
	// Default: "roles"
	RolesClaim string `mapstructure:"roles_claim"`

	// Leeway tolerates clock skew when validating exp and nbf.
	// Default: 0
	Leeway time.Duration `mapstructure:"leeway"`
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a single key regardless of key ID.
type StaticKeyProvider struct {
	key any
}

// NewStaticKeyProvider creates a static key provider. HMAC keys are []byte;
// RSA and ECDSA keys are the parsed public key.
func NewStaticKeyProvider(key any) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if p.key == nil {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTAuthenticator validates bearer tokens from the Authorization header.
type JWTAuthenticator struct {
	config      JWTConfig
	keyProvider KeyProvider
	parser      *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if len(config.Methods) == 0 {
		config.Methods = []string{"HS256"}
	}
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(config.Methods),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{
		config:      config,
		keyProvider: keyProvider,
		parser:      jwt.NewParser(opts...),
	}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Supports returns true if the request carries a bearer token.
func (a *JWTAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	_, ok := bearerToken(req.GetHeader("Authorization"))
	return ok
}

// Authenticate validates the bearer token.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	raw, ok := bearerToken(req.GetHeader("Authorization"))
	if !ok {
		return AuthFailure(AuthMethodJWT, ErrMissingCredentials), nil
	}

	token, err := a.parser.Parse(raw, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return a.keyProvider.GetKey(ctx, kid)
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(AuthMethodJWT, ErrTokenExpired), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return AuthFailure(AuthMethodJWT, ErrTokenMalformed), nil
	case errors.Is(err, ErrKeyNotFound):
		return AuthFailure(AuthMethodJWT, ErrKeyNotFound), nil
	default:
		return AuthFailure(AuthMethodJWT, ErrInvalidCredentials), nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AuthFailure(AuthMethodJWT, ErrTokenMalformed), nil
	}
	id := a.buildIdentity(claims)
	if id.Principal == "" {
		return AuthFailure(AuthMethodJWT, ErrInvalidCredentials), nil
	}
	return AuthSuccess(id), nil
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Method: AuthMethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}
	id.Principal, _ = claims[a.config.PrincipalClaim].(string)

	switch roles := claims[a.config.RolesClaim].(type) {
	case string:
		id.Roles = strings.Fields(roles)
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id
}

// bearerToken extracts the token of an "Authorization: Bearer" header. The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
