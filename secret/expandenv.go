package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// bracedVar matches an escaped dollar or a ${VAR} reference. Escapes are
// matched first so "$${VAR}" is not treated as a reference.
var bracedVar = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s. ${VAR} fails with
// ErrMissingEnv when VAR is unset; $VAR expands to the empty string; $$
// yields a literal $.
func ExpandEnvStrict(s string) (string, error) {
	return expandEnv(s, os.LookupEnv)
}

func expandEnv(s string, lookup func(string) (string, bool)) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	for _, m := range bracedVar.FindAllStringSubmatch(s, -1) {
		if m[1] == "" {
			continue
		}
		if _, ok := lookup(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		v, _ := lookup(name)
		return v
	}), nil
}
