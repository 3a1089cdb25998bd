package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrProviderNotFound is returned for a reference to an unregistered provider.
	ErrProviderNotFound = errors.New("secret: provider not registered")

	// ErrInvalidRef is returned for a malformed reference.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrNotFound is returned when a provider has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty is returned when a reference resolves to an empty value.
	ErrEmpty = errors.New("secret: empty value")
)
