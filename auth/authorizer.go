package auth

import (
	"context"
	"fmt"
)

// Authorizer decides whether an identity may perform an action such as
// "cache:clear" or "describe:object".
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a denial matches ErrForbidden.
type Authorizer interface {
	Name() string
	Authorize(ctx context.Context, req *AuthzRequest) error
}

// AuthzRequest is one authorization question.
type AuthzRequest struct {
	Subject *Identity
	Action  string
}

// AuthzError is a denial. It matches ErrForbidden.
type AuthzError struct {
	Subject string
	Action  string
	Reason  string
}

func (e *AuthzError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("auth: %s denied: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("auth: %s denied for %s: %s", e.Action, e.Subject, e.Reason)
}

// Is matches ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AllowAllAuthorizer permits every action.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Name() string { return "allow_all" }

func (AllowAllAuthorizer) Authorize(context.Context, *AuthzRequest) error { return nil }

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

func (f AuthorizerFunc) Name() string { return "func" }

func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}
