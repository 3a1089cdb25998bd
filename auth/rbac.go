package auth

import (
	"context"
	"strings"
)

// RoleConfig defines what a role may do.
type RoleConfig struct {
	// Actions are action patterns. A trailing "*" matches any suffix, so
	// "cache:*" covers "cache:clear" and "cache:stats".
	Actions []string `mapstructure:"actions"`

	// Inherits lists roles whose actions this role also has.
	Inherits []string `mapstructure:"inherits"`
}

// RBACConfig configures the RoleAuthorizer.
type RBACConfig struct {
	// Roles maps role names to their configuration.
	Roles map[string]RoleConfig `mapstructure:"roles"`

	// DefaultRole is assigned to identities without explicit roles.
	DefaultRole string `mapstructure:"default_role"`
}

// RoleAuthorizer permits an action when any role of the subject, directly
// or through inheritance, has a matching action pattern.
type RoleAuthorizer struct {
	config RBACConfig
}

// NewRoleAuthorizer creates a role authorizer.
func NewRoleAuthorizer(config RBACConfig) *RoleAuthorizer {
	return &RoleAuthorizer{config: config}
}

// Name returns "rbac".
func (a *RoleAuthorizer) Name() string {
	return "rbac"
}

// Authorize checks if the identity is allowed to perform the action.
func (a *RoleAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return &AuthzError{Action: req.Action, Reason: "no identity provided"}
	}

	for _, name := range a.collectRoles(req.Subject) {
		role, ok := a.config.Roles[name]
		if !ok {
			continue
		}
		for _, pattern := range role.Actions {
			if matchPattern(pattern, req.Action) {
				return nil
			}
		}
	}

	return &AuthzError{
		Subject: req.Subject.Principal,
		Action:  req.Action,
		Reason:  "no role permits this action",
	}
}

// collectRoles expands the subject's roles breadth-first through
// inheritance, visiting each role once.
func (a *RoleAuthorizer) collectRoles(subject *Identity) []string {
	pending := append([]string{}, subject.Roles...)
	if len(pending) == 0 && a.config.DefaultRole != "" {
		pending = append(pending, a.config.DefaultRole)
	}

	seen := make(map[string]bool)
	var result []string
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)
		pending = append(pending, a.config.Roles[current].Inherits...)
	}
	return result
}

// matchPattern supports "*" alone or as a trailing wildcard.
func matchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(value, prefix)
	}
	return pattern == value
}

var _ Authorizer = (*RoleAuthorizer)(nil)
