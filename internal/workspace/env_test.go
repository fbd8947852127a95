package workspace

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvScope(t *testing.T) {
	t.Run("restores a previously set variable", func(t *testing.T) {
		t.Setenv("NIXPR_TEST_VAR", "original")

		scope := NewEnvScope(map[string]string{"NIXPR_TEST_VAR": "override"})
		require.NoError(t, scope.Apply())
		assert.Equal(t, "override", os.Getenv("NIXPR_TEST_VAR"))

		scope.Restore()
		assert.Equal(t, "original", os.Getenv("NIXPR_TEST_VAR"))
	})

	t.Run("unsets a previously unset variable", func(t *testing.T) {
		t.Setenv("NIXPR_TEST_UNSET", "placeholder")
		require.NoError(t, os.Unsetenv("NIXPR_TEST_UNSET"))

		scope := NewEnvScope(map[string]string{"NIXPR_TEST_UNSET": "override"})
		require.NoError(t, scope.Apply())
		assert.Equal(t, "override", os.Getenv("NIXPR_TEST_UNSET"))

		scope.Restore()
		_, ok := os.LookupEnv("NIXPR_TEST_UNSET")
		assert.False(t, ok)
	})

	t.Run("restore is idempotent", func(t *testing.T) {
		t.Setenv("NIXPR_TEST_IDEM", "original")

		scope := NewEnvScope(map[string]string{"NIXPR_TEST_IDEM": "override"})
		require.NoError(t, scope.Apply())
		scope.Restore()
		scope.Restore()
		assert.Equal(t, "original", os.Getenv("NIXPR_TEST_IDEM"))
	})

	t.Run("restore without apply is a no-op", func(t *testing.T) {
		scope := NewEnvScope(map[string]string{"NIXPR_TEST_NOAPPLY": "override"})
		scope.Restore()
		_, ok := os.LookupEnv("NIXPR_TEST_NOAPPLY")
		assert.False(t, ok)
	})

	t.Run("apply twice is a no-op", func(t *testing.T) {
		t.Setenv("NIXPR_TEST_TWICE", "original")

		scope := NewEnvScope(map[string]string{"NIXPR_TEST_TWICE": "override"})
		require.NoError(t, scope.Apply())
		require.NoError(t, scope.Apply())

		scope.Restore()
		assert.Equal(t, "original", os.Getenv("NIXPR_TEST_TWICE"))
	})

	t.Run("environ exposes the override pairs", func(t *testing.T) {
		scope := NewEnvScope(map[string]string{"NIX_PATH": "nixpkgs=/some/worktree"})
		assert.Equal(t, []string{"NIX_PATH=nixpkgs=/some/worktree"}, scope.Environ())
	})
}
