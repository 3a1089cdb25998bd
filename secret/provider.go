package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves "secretref:env:NAME" from the environment.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider returns a provider backed by os.LookupEnv.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the value of the variable named ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

// FileProvider resolves "secretref:file:PATH" by reading the file. A
// single trailing newline is removed.
type FileProvider struct {
	baseDir string
}

// NewFileProvider returns a file provider. When baseDir is set, relative
// references are read below it and may not escape it.
func NewFileProvider(baseDir string) *FileProvider {
	return &FileProvider{baseDir: baseDir}
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the secret file.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if p.baseDir != "" && !filepath.IsAbs(ref) {
		if !filepath.IsLocal(ref) {
			return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidRef, ref, p.baseDir)
		}
		path = filepath.Join(p.baseDir, ref)
	}

	// #nosec G304 -- the path comes from operator configuration.
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", path, err)
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
