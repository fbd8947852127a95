package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixpr/nixpr/internal/errors"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		errors.ErrWorkspaceExists,
		errors.ErrWorkspaceNotFound,
		errors.ErrGitOperation,
		errors.ErrNixOperation,
		errors.ErrEvalFailed,
		errors.ErrUnknownAttribute,
		errors.ErrTargetsFailed,
		errors.ErrAttrsFailed,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b, "sentinel %d and %d must be distinct", i, j)
		}
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, errors.Wrap(nil, "context"))
	})

	t.Run("preserves error chain", func(t *testing.T) {
		t.Parallel()
		wrapped := errors.Wrap(errors.ErrRefNotFound, "fetching pr head")
		require.Error(t, wrapped)
		assert.ErrorIs(t, wrapped, errors.ErrRefNotFound)
		assert.Equal(t, "fetching pr head: ref not found", wrapped.Error())
	})

	t.Run("double wrap keeps sentinel reachable", func(t *testing.T) {
		t.Parallel()
		inner := fmt.Errorf("exit status 128: %w", errors.ErrGitOperation)
		wrapped := errors.Wrap(inner, "merge failed")
		assert.ErrorIs(t, wrapped, errors.ErrGitOperation)
	})
}

func TestWrapf(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, errors.Wrapf(nil, "target %d", 42))
	})

	t.Run("formats message", func(t *testing.T) {
		t.Parallel()
		wrapped := errors.Wrapf(errors.ErrPRNotFound, "pr %d", 12345)
		require.Error(t, wrapped)
		assert.Equal(t, "pr 12345: pull request not found", wrapped.Error())
		assert.True(t, stderrors.Is(wrapped, errors.ErrPRNotFound))
	})
}
