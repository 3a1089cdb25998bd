package auth

import (
	"context"
	"errors"
	"net/http"
)

// FailureFunc writes the response for a rejected request. err matches one
// of the authentication sentinels or ErrForbidden.
type FailureFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

func defaultFailure(w http.ResponseWriter, _ *http.Request, status int, err error) {
	http.Error(w, err.Error(), status)
}

// Middleware authenticates every request with authn and stores the
// resulting identity in the request context. Requests without valid
// credentials get 401; internal authenticator errors get 500.
//
// Usage:
//
//	r.Use(auth.Middleware(authn, nil))
func Middleware(authn Authenticator, onFailure FailureFunc) func(http.Handler) http.Handler {
	if onFailure == nil {
		onFailure = defaultFailure
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := NewAuthRequest(r)
			if !authn.Supports(r.Context(), req) {
				onFailure(w, r, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}
			result, err := authn.Authenticate(r.Context(), req)
			if err != nil {
				onFailure(w, r, http.StatusInternalServerError, err)
				return
			}
			if !result.Authenticated {
				failure := result.Error
				if failure == nil {
					failure = ErrInvalidCredentials
				}
				onFailure(w, r, http.StatusUnauthorized, failure)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), result.Identity)))
		})
	}
}

// Require rejects requests whose identity is not authorized for action with
// 403, or 401 when no identity is present.
func Require(authz Authorizer, action string, onFailure FailureFunc) func(http.Handler) http.Handler {
	if onFailure == nil {
		onFailure = defaultFailure
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Authorize(r.Context(), authz, action); err != nil {
				status := http.StatusForbidden
				if errors.Is(err, ErrMissingCredentials) {
					status = http.StatusUnauthorized
				}
				onFailure(w, r, status, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize checks the identity in ctx against authz.
func Authorize(ctx context.Context, authz Authorizer, action string) error {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ErrMissingCredentials
	}
	return authz.Authorize(ctx, &AuthzRequest{Subject: id, Action: action})
}
