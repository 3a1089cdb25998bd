package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// PlaceholderStyle selects how bound parameters are written.
type PlaceholderStyle int

const (
	// PlaceholderDollar writes $1, $2, ... and reuses the index for repeated names.
	PlaceholderDollar PlaceholderStyle = iota
	// PlaceholderQuestion writes ? once per occurrence.
	PlaceholderQuestion
)

// Dialect describes the SQL flavor of a database.
type Dialect struct {
	// Name is the dialect name used in configuration.
	Name string

	// Driver is the database/sql driver name.
	Driver string

	// Placeholders is the parameter style.
	Placeholders PlaceholderStyle

	// FoldIdentifiers lower-cases identifiers before quoting, matching
	// databases that fold unquoted names to lower case.
	FoldIdentifiers bool
}

// Known dialects.
var (
	Postgres = Dialect{Name: "postgres", Driver: "pgx", Placeholders: PlaceholderDollar, FoldIdentifiers: true}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite3", Placeholders: PlaceholderQuestion}
	ANSI     = Dialect{Name: "ansi", Driver: "", Placeholders: PlaceholderQuestion}
)

// DialectByName returns the registered dialect with the given name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "ansi":
		return ANSI, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// QuoteIdent validates and quotes an identifier. Schema-qualified names
// ("schema.table") are quoted part by part.
func (d Dialect) QuoteIdent(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	parts := strings.Split(name, ".")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		if !identPattern.MatchString(part) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
		if d.FoldIdentifiers {
			part = strings.ToLower(part)
		}
		quoted[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(quoted, "."), nil
}

// Bind rewrites ":name" parameters into the dialect's placeholders and
// returns the positional arguments. Quoted literals, quoted identifiers and
// "::" casts are left untouched.
func (d Dialect) Bind(query string, params Params) (string, []any, error) {
	var (
		out     strings.Builder
		args    []any
		indexes map[string]int
	)
	if d.Placeholders == PlaceholderDollar {
		indexes = make(map[string]int)
	}
	out.Grow(len(query))

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"':
			end := skipQuoted(query, i, c)
			out.WriteString(query[i:end])
			i = end - 1

		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			out.WriteString("::")
			i++

		case c == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			j := i + 1
			for j < len(query) && isNameChar(query[j]) {
				j++
			}
			name := query[i+1 : j]
			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("%w: missing parameter %q", ErrBind, name)
			}
			switch d.Placeholders {
			case PlaceholderDollar:
				idx, seen := indexes[name]
				if !seen {
					args = append(args, value)
					idx = len(args)
					indexes[name] = idx
				}
				out.WriteByte('$')
				out.WriteString(strconv.Itoa(idx))
			default:
				args = append(args, value)
				out.WriteByte('?')
			}
			i = j - 1

		default:
			out.WriteByte(c)
		}
	}
	return out.String(), args, nil
}

// skipQuoted returns the index just past the quoted run starting at start.
// Doubled quote characters are treated as escapes.
func skipQuoted(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
