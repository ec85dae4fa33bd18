// internal/secrets/vault.go
package secrets

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// placeholderRe matches masked secret references of the form ${NAME}.
var placeholderRe = regexp.MustCompile(`\$\{(\w+)\}`)

// Vault holds named secrets from two sources: values set at runtime and
// environment variable names registered up front. Runtime values shadow the
// environment on lookup.
type Vault struct {
	mu      sync.RWMutex
	runtime map[string]string
	envKeys map[string]struct{}
	logger  *zap.Logger
}

// NewVault creates a vault with the given environment keys pre-registered.
func NewVault(envKeys []string, logger *zap.Logger) *Vault {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Vault{
		runtime: make(map[string]string),
		envKeys: make(map[string]struct{}, len(envKeys)),
		logger:  logger.Named("secrets"),
	}
	for _, key := range envKeys {
		v.envKeys[key] = struct{}{}
	}
	return v
}

// Set registers a runtime secret value under a name.
func (v *Vault) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.runtime[name] = value
}

// RegisterEnv marks an environment variable name as holding a secret.
func (v *Vault) RegisterEnv(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.envKeys[name] = struct{}{}
}

// Get looks up a secret by name: runtime values first, then registered
// environment variables.
func (v *Vault) Get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if value, ok := v.runtime[name]; ok {
		return value, true
	}
	if _, registered := v.envKeys[name]; registered {
		if value := os.Getenv(name); value != "" {
			return value, true
		}
	}
	return "", false
}

// Names returns every known secret name, sorted.
func (v *Vault) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	seen := make(map[string]struct{}, len(v.runtime)+len(v.envKeys))
	for name := range v.runtime {
		seen[name] = struct{}{}
	}
	for name := range v.envKeys {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mask replaces any exact occurrence of a known secret value in input with
// its ${NAME} placeholder. Only whole-value matches are substituted; the
// sorted name order makes the result deterministic when two secrets share a
// value.
func (v *Vault) Mask(input string) string {
	if input == "" {
		return input
	}
	for _, name := range v.Names() {
		value, ok := v.Get(name)
		if !ok || value == "" {
			continue
		}
		if input == value {
			v.logger.Debug("Masked a sensitive value.", zap.String("name", name))
			return "${" + name + "}"
		}
	}
	return input
}

// Resolve substitutes every ${NAME} placeholder in input with the secret's
// current value. Unknown names are left untouched so callers can detect and
// report them.
func (v *Vault) Resolve(input string) string {
	return placeholderRe.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := v.Get(name); ok {
			return value
		}
		return match
	})
}

// ResolveEnv substitutes placeholders from the process environment only,
// ignoring runtime values. Replay uses this so recorded logs can run in a
// clean process. An unknown name is an error naming the variable.
func ResolveEnv(input string) (string, error) {
	var missing []string
	resolved := placeholderRe.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return value
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		return resolved, fmt.Errorf("unresolved secret placeholder(s): %s", strings.Join(missing, ", "))
	}
	return resolved, nil
}

// HasPlaceholder reports whether input still carries a ${NAME} reference.
func HasPlaceholder(input string) bool {
	return placeholderRe.MatchString(input)
}
