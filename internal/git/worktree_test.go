package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddWorktree(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	head := runGit(t, repo, "rev-parse", "HEAD")

	t.Run("creates a detached checkout", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wt")
		require.NoError(t, AddWorktree(ctx, repo, path, head))

		assert.FileExists(t, filepath.Join(path, "README.md"))
		assert.Equal(t, head, runGit(t, path, "rev-parse", "HEAD"))
	})

	t.Run("unknown revision fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wt")
		err := AddWorktree(ctx, repo, path, "0000000000000000000000000000000000000000")
		require.Error(t, err)
	})
}

func TestRemoveWorktree(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	repo := initRepo(t)
	head := runGit(t, repo, "rev-parse", "HEAD")

	path := filepath.Join(t.TempDir(), "wt")
	require.NoError(t, AddWorktree(ctx, repo, path, head))

	require.NoError(t, RemoveWorktree(ctx, repo, path, logger))
	assert.NoDirExists(t, path)

	// The registration is pruned: the same path can be reused.
	require.NoError(t, AddWorktree(ctx, repo, path, head))
	require.NoError(t, RemoveWorktree(ctx, repo, path, logger))
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	base := runGit(t, repo, "rev-parse", "HEAD")

	runGit(t, repo, "checkout", "-b", "feature")
	feature := commitFile(t, repo, "feature.txt", "feature\n", "feature work")
	runGit(t, repo, "checkout", "main")

	path := filepath.Join(t.TempDir(), "wt")
	require.NoError(t, AddWorktree(ctx, repo, path, base))

	require.NoError(t, Merge(ctx, path, feature))
	assert.FileExists(t, filepath.Join(path, "feature.txt"))

	t.Run("conflicting merge fails", func(t *testing.T) {
		conflictRepo := initRepo(t)
		conflictBase := runGit(t, conflictRepo, "rev-parse", "HEAD")
		runGit(t, conflictRepo, "checkout", "-b", "other")
		other := commitFile(t, conflictRepo, "README.md", "theirs\n", "their change")
		runGit(t, conflictRepo, "checkout", "main")
		commitFile(t, conflictRepo, "README.md", "ours\n", "our change")

		wt := filepath.Join(t.TempDir(), "wt")
		require.NoError(t, AddWorktree(ctx, conflictRepo, wt, "main"))
		_ = conflictBase

		err := Merge(ctx, wt, other)
		require.Error(t, err)
	})
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	first := runGit(t, repo, "rev-parse", "HEAD")
	second := commitFile(t, repo, "file.txt", "content\n", "second")

	path := filepath.Join(t.TempDir(), "wt")
	require.NoError(t, AddWorktree(ctx, repo, path, first))

	require.NoError(t, Checkout(ctx, path, second))
	assert.Equal(t, second, runGit(t, path, "rev-parse", "HEAD"))
	assert.FileExists(t, filepath.Join(path, "file.txt"))
}

func TestApplyPatch(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	head := runGit(t, repo, "rev-parse", "HEAD")

	// Produce a diff in the primary checkout without committing it.
	require.NoError(t, os.WriteFile(filepath.Join(repo, "README.md"), []byte("patched\n"), 0o600))
	diff := runGit(t, repo, "diff", "HEAD")
	runGit(t, repo, "checkout", "--", ".")

	path := filepath.Join(t.TempDir(), "wt")
	require.NoError(t, AddWorktree(ctx, repo, path, head))

	patchFile := filepath.Join(t.TempDir(), "wip.patch")
	require.NoError(t, os.WriteFile(patchFile, []byte(diff+"\n"), 0o600))

	require.NoError(t, ApplyPatch(ctx, path, patchFile))

	content, err := os.ReadFile(filepath.Join(path, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "patched\n", string(content))

	t.Run("malformed patch fails", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.patch")
		require.NoError(t, os.WriteFile(bad, []byte("not a patch"), 0o600))
		require.Error(t, ApplyPatch(ctx, path, bad))
	})
}
