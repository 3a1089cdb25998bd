// Package secret resolves credentials referenced from configuration, such
// as the database DSN, the JWT signing key and admin API keys.
//
// A configuration value goes through two steps:
//   - Environment expansion (ExpandEnvStrict): ${VAR} must be set, $VAR may
//     be empty, $$ is a literal dollar.
//   - Reference resolution: "secretref:<provider>:<ref>" is replaced by the
//     value the named provider returns. References may stand alone or
//     appear inline, as in "postgres://app:secretref:file:db_password@db/meta".
//
// Two providers are built in. "env" reads an environment variable and
// "file" reads a file, typically a mounted container secret.
package secret
