// Package config loads the metacache service configuration.
//
// Configuration comes from a YAML file and from environment variables
// prefixed with METACACHE_, where nested keys use underscores:
// METACACHE_STORE_DSN overrides store.dsn. Values may reference secrets
// (see package secret); they are resolved by Load before validation.
package config
