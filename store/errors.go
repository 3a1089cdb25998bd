package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonwraymond/metacache/resilience"
)

// Sentinel errors for store operations.
var (
	// ErrDataAccess matches every failure returned by a Store.
	ErrDataAccess = errors.New("store: data access failure")

	// ErrBind indicates a statement referenced a parameter that was not supplied.
	ErrBind = errors.New("store: parameter binding failed")

	// ErrInvalidIdentifier indicates an identifier that cannot be safely quoted.
	ErrInvalidIdentifier = errors.New("store: invalid identifier")

	// ErrUnknownDialect indicates a dialect name that is not registered.
	ErrUnknownDialect = errors.New("store: unknown dialect")
)

// DataAccessError describes a failed store call.
type DataAccessError struct {
	// Op is the store operation ("query", "execute", "ping").
	Op string

	// Statement is the statement label, if one was set on the context.
	Statement string

	// Err is the underlying driver or binding error.
	Err error
}

// Error returns the error message.
func (e *DataAccessError) Error() string {
	if e.Statement != "" {
		return fmt.Sprintf("store: %s %s: %v", e.Op, e.Statement, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDataAccess.
func (e *DataAccessError) Is(target error) bool {
	return target == ErrDataAccess
}

func wrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var dae *DataAccessError
	if errors.As(err, &dae) {
		return err
	}
	return &DataAccessError{Op: op, Statement: StatementFromContext(ctx), Err: err}
}

// postgres SQLSTATE codes worth retrying.
var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
}

// IsTransient reports whether err is likely to succeed on retry.
// Binding errors and cancellations are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBind) || errors.Is(err, ErrInvalidIdentifier) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, resilience.ErrTimeout) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		return transientPgCodes[pgErr.Code]
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
