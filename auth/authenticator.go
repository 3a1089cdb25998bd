package auth

import (
	"context"
	"net/http"
)

// Authenticator turns request credentials into an Identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Supports: cheap, header inspection only.
// - Errors: a rejected credential is a result with Authenticated false and
//   a nil error. A non-nil error means the authenticator itself failed.
type Authenticator interface {
	Name() string
	Supports(ctx context.Context, req *AuthRequest) bool
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest carries the credentials of one admin call.
type AuthRequest struct {
	Header http.Header
}

// NewAuthRequest wraps the headers of r.
func NewAuthRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{Header: r.Header}
}

// GetHeader returns the first value of key, or "".
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil {
		return ""
	}
	return r.Header.Get(key)
}

// AuthResult is the outcome of Authenticate. Identity is set on success and
// Error on rejection.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        AuthMethod
}

// AuthSuccess reports an accepted credential.
func AuthSuccess(id *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: id, Method: id.Method}
}

// AuthFailure reports a credential rejected by method.
func AuthFailure(method AuthMethod, err error) *AuthResult {
	return &AuthResult{Method: method, Error: err}
}
