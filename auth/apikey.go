package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultAPIKeyHeader is the header read by APIKeyAuthenticator.
const DefaultAPIKeyHeader = "X-API-Key"

// maxBcryptKeyLen is the longest input bcrypt accepts.
const maxBcryptKeyLen = 72

// ErrKeyTooLong is returned by BcryptAPIKey for keys bcrypt cannot hash.
var ErrKeyTooLong = errors.New("auth: api key exceeds 72 bytes")

// APIKeyInfo describes one configured API key. KeyHash is either the
// SHA-256 hex digest of the key (see HashAPIKey) or a bcrypt hash (see
// BcryptAPIKey).
type APIKeyInfo struct {
	ID        string    `mapstructure:"id"` // safe to log
	KeyHash   string    `mapstructure:"key_hash"`
	Principal string    `mapstructure:"principal"`
	Roles     []string  `mapstructure:"roles"`
	ExpiresAt time.Time `mapstructure:"expires_at"` // zero never expires
}

func (k *APIKeyInfo) expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}

func (k *APIKeyInfo) identity() *Identity {
	return &Identity{
		Principal: k.Principal,
		Roles:     append([]string(nil), k.Roles...),
		Method:    AuthMethodAPIKey,
		ExpiresAt: k.ExpiresAt,
		Claims:    map[string]any{"key_id": k.ID},
	}
}

// APIKeyStore resolves a presented key to its registration.
//
// Contract:
// - Match returns (nil, nil) when no registration matches.
// - A non-nil error means the store itself failed.
type APIKeyStore interface {
	Match(ctx context.Context, key string) (*APIKeyInfo, error)
}

// HashAPIKey returns the SHA-256 hex digest of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// BcryptAPIKey hashes key with bcrypt at cost. A cost below
// bcrypt.MinCost selects bcrypt.DefaultCost.
func BcryptAPIKey(key string, cost int) (string, error) {
	if len(key) > maxBcryptKeyLen {
		return "", ErrKeyTooLong
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}

// APIKeyAuthenticator authenticates requests carrying a key header.
type APIKeyAuthenticator struct {
	header string
	store  APIKeyStore
	now    func() time.Time
}

// NewAPIKeyAuthenticator reads keys from header, or DefaultAPIKeyHeader
// when header is empty.
func NewAPIKeyAuthenticator(header string, store APIKeyStore) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, store: store, now: time.Now}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Supports reports whether the key header is present.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return req.GetHeader(a.header) != ""
}

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	key := strings.TrimSpace(req.GetHeader(a.header))
	if key == "" {
		return AuthFailure(AuthMethodAPIKey, ErrMissingCredentials), nil
	}

	info, err := a.store.Match(ctx, key)
	switch {
	case err != nil:
		return nil, err
	case info == nil:
		return AuthFailure(AuthMethodAPIKey, ErrInvalidCredentials), nil
	case info.expired(a.now()):
		return AuthFailure(AuthMethodAPIKey, ErrTokenExpired), nil
	}
	return AuthSuccess(info.identity()), nil
}

// MemoryAPIKeyStore holds keys loaded from configuration. SHA-256 entries
// are found by digest; bcrypt entries are compared one by one.
type MemoryAPIKeyStore struct {
	mu     sync.RWMutex
	digest map[string]*APIKeyInfo
	bcrypt []*APIKeyInfo
}

// NewMemoryAPIKeyStore registers keys.
func NewMemoryAPIKeyStore(keys ...*APIKeyInfo) *MemoryAPIKeyStore {
	s := &MemoryAPIKeyStore{digest: make(map[string]*APIKeyInfo, len(keys))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add registers info. A SHA-256 entry replaces one with the same digest.
func (s *MemoryAPIKeyStore) Add(info *APIKeyInfo) {
	if info == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if isBcryptHash(info.KeyHash) {
		s.bcrypt = append(s.bcrypt, info)
		return
	}
	s.digest[strings.ToLower(info.KeyHash)] = info
}

func (s *MemoryAPIKeyStore) Match(_ context.Context, key string) (*APIKeyInfo, error) {
	want := HashAPIKey(key)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if info, ok := s.digest[want]; ok && subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(info.KeyHash))) == 1 {
		return info, nil
	}
	if len(key) > maxBcryptKeyLen {
		return nil, nil
	}
	for _, info := range s.bcrypt {
		if bcrypt.CompareHashAndPassword([]byte(info.KeyHash), []byte(key)) == nil {
			return info, nil
		}
	}
	return nil, nil
}

// Len returns the number of registered keys.
func (s *MemoryAPIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.digest) + len(s.bcrypt)
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
