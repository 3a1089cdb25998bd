package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestDialect_Bind(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		params   Params
		wantSQL  string
		wantArgs []any
		wantErr  error
	}{
		{
			name:     "dollar placeholders",
			dialect:  Postgres,
			query:    "select * from etk_data_object where business_key = :bk",
			params:   Params{"bk": "Incident"},
			wantSQL:  "select * from etk_data_object where business_key = $1",
			wantArgs: []any{"Incident"},
		},
		{
			name:     "dollar reuses index for repeated names",
			dialect:  Postgres,
			query:    "select :a, :b, :a",
			params:   Params{"a": 1, "b": 2},
			wantSQL:  "select $1, $2, $1",
			wantArgs: []any{1, 2},
		},
		{
			name:     "question placeholders repeat args",
			dialect:  SQLite,
			query:    "select :a, :b, :a",
			params:   Params{"a": 1, "b": 2},
			wantSQL:  "select ?, ?, ?",
			wantArgs: []any{1, 2, 1},
		},
		{
			name:     "quoted literals untouched",
			dialect:  Postgres,
			query:    "select ':notparam', \"col:x\" from t where id = :id",
			params:   Params{"id": 7},
			wantSQL:  "select ':notparam', \"col:x\" from t where id = $1",
			wantArgs: []any{7},
		},
		{
			name:     "escaped quote inside literal",
			dialect:  SQLite,
			query:    "select 'it''s :x' where a = :a",
			params:   Params{"a": "v"},
			wantSQL:  "select 'it''s :x' where a = ?",
			wantArgs: []any{"v"},
		},
		{
			name:     "casts untouched",
			dialect:  Postgres,
			query:    "select :v::text",
			params:   Params{"v": 3},
			wantSQL:  "select $1::text",
			wantArgs: []any{3},
		},
		{
			name:     "extra params ignored",
			dialect:  SQLite,
			query:    "select 1",
			params:   Params{"unused": true},
			wantSQL:  "select 1",
			wantArgs: nil,
		},
		{
			name:    "missing param",
			dialect: SQLite,
			query:   "select :missing",
			params:  Params{},
			wantErr: ErrBind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.dialect.Bind(tt.query, tt.params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Bind() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Bind() error = %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("Bind() sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("Bind() args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestDialect_QuoteIdent(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
		wantErr bool
	}{
		{"postgres folds", Postgres, "T_INCIDENT", `"t_incident"`, false},
		{"sqlite preserves case", SQLite, "T_INCIDENT", `"T_INCIDENT"`, false},
		{"schema qualified", Postgres, "public.T_SYSTEM_CONFIGURATION", `"public"."t_system_configuration"`, false},
		{"trims", SQLite, "  t_x ", `"t_x"`, false},
		{"empty", SQLite, "", "", true},
		{"injection", Postgres, `t; drop table x`, "", true},
		{"quote char", SQLite, `t"x`, "", true},
		{"leading digit", SQLite, "1abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.dialect.QuoteIdent(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Fatalf("QuoteIdent(%q) error = %v, want ErrInvalidIdentifier", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("QuoteIdent(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("QuoteIdent(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestDialectByName(t *testing.T) {
	for _, name := range []string{"postgres", "PostgreSQL", "pgx"} {
		d, err := DialectByName(name)
		if err != nil || d.Name != Postgres.Name {
			t.Errorf("DialectByName(%q) = %v, %v", name, d.Name, err)
		}
	}
	if d, err := DialectByName("sqlite3"); err != nil || d.Driver != "sqlite3" {
		t.Errorf("DialectByName(sqlite3) = %v, %v", d, err)
	}
	if _, err := DialectByName("oracle"); !errors.Is(err, ErrUnknownDialect) {
		t.Errorf("expected ErrUnknownDialect, got %v", err)
	}
}
