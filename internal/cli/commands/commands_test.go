package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonwraymond/metacache/auth"
	"github.com/jonwraymond/metacache/config"
	"github.com/jonwraymond/metacache/metacache"
	"github.com/jonwraymond/metacache/store"
)

// seedDatabase creates a sqlite file loaded with the metacache test schema.
func seedDatabase(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "meta.db")

	s, err := store.Open(ctx, store.SQLite, path, store.PoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	defer s.Close()

	schema, err := os.ReadFile("../../../metacache/testdata/schema.sql")
	require.NoError(t, err)
	_, err = s.DB().ExecContext(ctx, string(schema))
	require.NoError(t, err)
	return path
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metacache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, `
store:
  dialect: sqlite
  dsn: `+seedDatabase(t)+`
  max_open_conns: 1
epoch:
  source: manual
server:
  addr: 127.0.0.1:0
auth:
  enabled: false
observe:
  logging:
    enabled: false
  metrics:
    enabled: false
`)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "metacache" {
		t.Errorf("expected Use to be 'metacache', got %s", cmd.Use)
	}

	for _, expected := range []string{"version", "serve", "describe", "epoch", "hash-key"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}

	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("expected persistent --config flag")
	}
}

func TestVersionCommand(t *testing.T) {
	Version, GitCommit, BuildDate, GoVersion = "1.0.0-test", "abc123", "2026-01-01", "go1.25"
	t.Cleanup(func() { Version, GitCommit, BuildDate, GoVersion = "dev", "unknown", "unknown", "unknown" })

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "metacache version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: go1.25")
}

func TestDescribeCommand(t *testing.T) {
	cfg := sqliteConfig(t)

	t.Run("object as json", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "describe", "--business-key", "object.invoice", "-o", "json")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got), out)
		assert.Equal(t, "T_INVOICE", got["table_name"])
		assert.Len(t, got["elements"], 3)
	})

	t.Run("object as yaml", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "describe", "--table", "t_invoice_line")
		require.NoError(t, err)
		assert.Contains(t, out, "business_key: object.invoiceLine")
		assert.Contains(t, out, "parent_table_name: T_INVOICE")
	})

	t.Run("element", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "describe", "--table", "T_INVOICE", "--column", "C_AMOUNT", "-o", "json")
		require.NoError(t, err)

		var got metacache.ElementDescriptor
		require.NoError(t, json.Unmarshal([]byte(out), &got), out)
		assert.Equal(t, "Invoice Amount", got.FormLabel)
	})

	t.Run("children", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "describe", "--business-key", "object.invoice", "--children", "-o", "json")
		require.NoError(t, err)

		var got []metacache.ChildSummary
		require.NoError(t, json.Unmarshal([]byte(out), &got), out)
		require.Len(t, got, 1)
		assert.Equal(t, "object.invoiceLine", got[0].BusinessKey)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := run(t, "--config", cfg, "describe", "--business-key", "object.missing")
		assert.ErrorIs(t, err, metacache.ErrNotFound)
	})
}

func TestDescribeCommand_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no key", []string{"describe"}, "exactly one of"},
		{"both keys", []string{"describe", "--business-key", "a", "--table", "b"}, "exactly one of"},
		{"column without table", []string{"describe", "--business-key", "a", "--column", "c"}, "--column requires --table"},
		{"bad format", []string{"describe", "--table", "b", "-o", "xml"}, "unknown output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEpochCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := writeConfig(t, `
store:
  dialect: sqlite
  dsn: unused.db
epoch:
  source: redis
  redis:
    addr: `+mr.Addr()+`
    key: test:epoch
auth:
  enabled: false
observe:
  logging:
    enabled: false
`)

	out, err := run(t, "--config", cfg, "epoch", "bump")
	require.NoError(t, err)
	first := strings.TrimPrefix(strings.TrimSpace(out), "generation: ")
	require.NotEmpty(t, first)

	out, err = run(t, "--config", cfg, "epoch", "bump")
	require.NoError(t, err)
	second := strings.TrimPrefix(strings.TrimSpace(out), "generation: ")
	assert.NotEqual(t, first, second)

	out, err = run(t, "--config", cfg, "epoch", "current")
	require.NoError(t, err)
	assert.Equal(t, second, strings.TrimSpace(out))

	got, err := mr.Get("test:epoch")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestEpochCommands_LocalSource(t *testing.T) {
	_, err := run(t, "--config", sqliteConfig(t), "epoch", "bump")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local to each server")
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	cfg, err := config.Load(context.Background(), sqliteConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, runServer(ctx, cfg))
}

func TestNewAuth(t *testing.T) {
	cfg := config.Default().Auth
	authn, authz := newAuth(cfg)
	assert.NotNil(t, authn)
	assert.NotNil(t, authz)

	cfg.Enabled = false
	authn, authz = newAuth(cfg)
	assert.Nil(t, authn)
	assert.NotNil(t, authz)
}

func TestHashKeyCommand(t *testing.T) {
	out, err := run(t, "hash-key", "--sha256", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "key_hash: "+auth.HashAPIKey("s3cret")+"\n", out)

	out, err = run(t, "hash-key", "--cost", "4", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimPrefix(strings.TrimSpace(out), "key_hash: ")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	out, err = run(t, "hash-key", "--generate", "--sha256")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	key := strings.TrimPrefix(lines[0], "key: ")
	assert.Len(t, key, 32)
	assert.Equal(t, "key_hash: "+auth.HashAPIKey(key), lines[1])

	_, err = run(t, "hash-key", "--generate", "extra")
	assert.Error(t, err)
}

func TestHashKeyCommand_Stdin(t *testing.T) {
	color.NoColor = true
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("  from-stdin  \n"))
	cmd.SetArgs([]string{"hash-key", "--sha256"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "key_hash: "+auth.HashAPIKey("from-stdin")+"\n", out.String())

	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"hash-key"})
	assert.Error(t, cmd.Execute())
}
