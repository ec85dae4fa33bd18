// internal/secrets/vault_test.go
package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_GetPrecedence(t *testing.T) {
	t.Setenv("RETRACE_TEST_TOKEN", "from-env")

	v := NewVault([]string{"RETRACE_TEST_TOKEN"}, nil)

	got, ok := v.Get("RETRACE_TEST_TOKEN")
	require.True(t, ok)
	assert.Equal(t, "from-env", got)

	v.Set("RETRACE_TEST_TOKEN", "from-runtime")
	got, ok = v.Get("RETRACE_TEST_TOKEN")
	require.True(t, ok)
	assert.Equal(t, "from-runtime", got, "runtime values shadow the environment")
}

func TestVault_GetUnregisteredEnvIsInvisible(t *testing.T) {
	t.Setenv("RETRACE_UNREGISTERED", "hidden")
	v := NewVault(nil, nil)

	_, ok := v.Get("RETRACE_UNREGISTERED")
	assert.False(t, ok, "env vars are secrets only when registered")
}

func TestVault_Mask(t *testing.T) {
	v := NewVault(nil, nil)
	v.Set("DB_PASS", "s3cr3t")

	t.Run("exact match is masked", func(t *testing.T) {
		assert.Equal(t, "${DB_PASS}", v.Mask("s3cr3t"))
	})
	t.Run("substring is not masked", func(t *testing.T) {
		assert.Equal(t, "my s3cr3t value", v.Mask("my s3cr3t value"))
	})
	t.Run("non-secret passes through", func(t *testing.T) {
		assert.Equal(t, "hello", v.Mask("hello"))
	})
	t.Run("empty passes through", func(t *testing.T) {
		assert.Equal(t, "", v.Mask(""))
	})
}

func TestVault_Mask_DeterministicOnSharedValue(t *testing.T) {
	v := NewVault(nil, nil)
	v.Set("B_KEY", "shared")
	v.Set("A_KEY", "shared")

	// Sorted name order means A_KEY always wins.
	assert.Equal(t, "${A_KEY}", v.Mask("shared"))
	assert.Equal(t, "${A_KEY}", v.Mask("shared"))
}

func TestVault_Resolve(t *testing.T) {
	v := NewVault(nil, nil)
	v.Set("DB_PASS", "s3cr3t")

	assert.Equal(t, "s3cr3t", v.Resolve("${DB_PASS}"))
	assert.Equal(t, "user:s3cr3t@host", v.Resolve("user:${DB_PASS}@host"))
	assert.Equal(t, "${UNKNOWN}", v.Resolve("${UNKNOWN}"),
		"unknown placeholders are left for the caller to detect")
}

func TestMaskResolveRoundTrip(t *testing.T) {
	v := NewVault(nil, nil)
	v.Set("API_TOKEN", "tok-123")

	masked := v.Mask("tok-123")
	require.Equal(t, "${API_TOKEN}", masked)
	assert.Equal(t, "tok-123", v.Resolve(masked))
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("RETRACE_TEST_PASS", "pw-env")

	t.Run("resolves from environment", func(t *testing.T) {
		got, err := ResolveEnv("login:${RETRACE_TEST_PASS}")
		require.NoError(t, err)
		assert.Equal(t, "login:pw-env", got)
	})
	t.Run("missing variable is an error naming it", func(t *testing.T) {
		_, err := ResolveEnv("${RETRACE_TEST_ABSENT}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RETRACE_TEST_ABSENT")
	})
	t.Run("plain strings pass through", func(t *testing.T) {
		got, err := ResolveEnv("no placeholders here")
		require.NoError(t, err)
		assert.Equal(t, "no placeholders here", got)
	})
}

func TestHasPlaceholder(t *testing.T) {
	assert.True(t, HasPlaceholder("${DB_PASS}"))
	assert.True(t, HasPlaceholder("x ${A} y"))
	assert.False(t, HasPlaceholder("plain"))
	assert.False(t, HasPlaceholder("$DB_PASS"))
	assert.False(t, HasPlaceholder("${}"))
}
