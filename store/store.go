package store

import (
	"context"
	"strings"

	"github.com/spf13/cast"
)

// Params holds named statement parameters, keyed without the leading colon.
// Parameters that a statement does not reference are ignored.
type Params map[string]any

// Store is the query interface over the metadata catalog.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Errors: failures match ErrDataAccess; an empty result is not an error.
type Store interface {
	// Query runs a statement and returns its rows in order.
	Query(ctx context.Context, query string, params Params) ([]Row, error)

	// Execute runs a statement and returns the number of affected rows.
	Execute(ctx context.Context, query string, params Params) (int64, error)
}

// Pinger is implemented by stores that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IdentQuoter is implemented by stores that know how to quote identifiers
// for their SQL dialect.
type IdentQuoter interface {
	QuoteIdent(name string) (string, error)
}

// QuoteIdent quotes name using s's dialect, falling back to ANSI quoting.
func QuoteIdent(s Store, name string) (string, error) {
	if q, ok := s.(IdentQuoter); ok {
		return q.QuoteIdent(name)
	}
	return ANSI.QuoteIdent(name)
}

// Row is one result row. Column names are stored upper-cased so lookups are
// case-insensitive regardless of how the driver reports them.
type Row map[string]any

// NewRow builds a Row from driver column names and values.
func NewRow(columns []string, values []any) Row {
	row := make(Row, len(columns))
	for i, col := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[strings.ToUpper(col)] = v
	}
	return row
}

// Value returns the raw value of col, or nil when absent or NULL.
func (r Row) Value(col string) any {
	if r == nil {
		return nil
	}
	if v, ok := r[col]; ok {
		return v
	}
	return r[strings.ToUpper(col)]
}

// IsNull reports whether col is absent or NULL.
func (r Row) IsNull(col string) bool {
	return r.Value(col) == nil
}

// String returns col as a string. NULL yields "".
func (r Row) String(col string) string {
	v := r.Value(col)
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// Int64 returns col as an int64. ok is false when the column is NULL.
func (r Row) Int64(col string) (n int64, ok bool, err error) {
	v := r.Value(col)
	if v == nil {
		return 0, false, nil
	}
	if s, isString := v.(string); isString {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		v = s
	}
	n, err = cast.ToInt64E(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Bool returns col as a bool. NULL and blank yield false; "0"/"1" are
// accepted alongside the usual boolean spellings.
func (r Row) Bool(col string) bool {
	v := r.Value(col)
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

type contextKey int

const statementKey contextKey = iota

// WithStatement labels the statement issued under ctx for telemetry.
func WithStatement(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, statementKey, name)
}

// StatementFromContext returns the statement label set by WithStatement.
func StatementFromContext(ctx context.Context) string {
	name, _ := ctx.Value(statementKey).(string)
	return name
}
