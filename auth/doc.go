// Package auth authenticates callers of the metadata cache admin API and
// carries the caller identity through the request context.
//
// The cache itself only reads the principal from the context: user values
// are scoped to it. Authenticators (JWT bearer tokens, API keys, or a
// composite of both) produce an Identity; a RoleAuthorizer decides which
// cache actions an identity may perform.
package auth
