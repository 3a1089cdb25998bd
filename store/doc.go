// Package store provides the relational metadata store used by metacache.
//
// A Store answers two calls: Query, returning an ordered slice of rows, and
// Execute, returning an affected-row count. Statements use named parameters
// (":name"); the SQL implementation rewrites them into the placeholder style of
// its Dialect before handing them to database/sql.
//
// # Decorators
//
// Stores compose:
//
//	base, _ := store.Open(ctx, store.Postgres, dsn)
//	s := store.Instrument(store.WithExecutor(base, executor), middleware)
//
// Every failure reaching a caller matches ErrDataAccess. IsTransient reports
// whether retrying the call may succeed.
package store
