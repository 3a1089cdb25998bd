package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "github.com/mattn/go-sqlite3"    // driver: sqlite3
)

// PoolConfig configures the database/sql connection pool.
type PoolConfig struct {
	// MaxOpenConns limits open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns limits idle connections.
	// Default: 5
	MaxIdleConns int

	// ConnMaxLifetime recycles connections older than this.
	// Default: 30 minutes
	ConnMaxLifetime time.Duration

	// PingTimeout bounds the connectivity check performed by Open.
	// Default: 5 seconds
	PingTimeout time.Duration
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	return c
}

// SQLStore is a Store backed by database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Open opens and pings a database using the dialect's driver.
func Open(ctx context.Context, dialect Dialect, dsn string, pool ...PoolConfig) (*SQLStore, error) {
	if dialect.Driver == "" {
		return nil, &DataAccessError{Op: "open", Err: ErrUnknownDialect}
	}
	cfg := PoolConfig{}
	if len(pool) > 0 {
		cfg = pool[0]
	}
	cfg = cfg.withDefaults()

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, &DataAccessError{Op: "open", Err: err}
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &DataAccessError{Op: "open", Err: err}
	}
	return NewSQLStore(db, dialect), nil
}

// Query runs a statement and returns all rows.
func (s *SQLStore) Query(ctx context.Context, query string, params Params) ([]Row, error) {
	bound, args, err := s.dialect.Bind(query, params)
	if err != nil {
		return nil, wrapError(ctx, "query", err)
	}

	rows, err := s.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, wrapError(ctx, "query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, wrapError(ctx, "query", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapError(ctx, "query", err)
		}
		result = append(result, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(ctx, "query", err)
	}
	return result, nil
}

// Execute runs a statement and returns the affected row count.
func (s *SQLStore) Execute(ctx context.Context, query string, params Params) (int64, error) {
	bound, args, err := s.dialect.Bind(query, params)
	if err != nil {
		return 0, wrapError(ctx, "execute", err)
	}

	res, err := s.db.ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, wrapError(ctx, "execute", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapError(ctx, "execute", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return wrapError(ctx, "ping", s.db.PingContext(ctx))
}

// QuoteIdent quotes name for this store's dialect.
func (s *SQLStore) QuoteIdent(name string) (string, error) {
	return s.dialect.QuoteIdent(name)
}

// Dialect returns the store's dialect.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return errors.New("store: already closed")
	}
	return s.db.Close()
}

// Ensure SQLStore implements the store interfaces
var (
	_ Store       = (*SQLStore)(nil)
	_ Pinger      = (*SQLStore)(nil)
	_ IdentQuoter = (*SQLStore)(nil)
)
