package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// gitEnv provides a deterministic identity for fixture commits.
var gitEnv = []string{
	"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
	"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
}

// runGit executes git in dir and fails the test on error.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), gitEnv...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

// initRepo creates a repository with one commit and returns its path.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "--initial-branch=main")
	writeFile(t, dir, "README.md", "hello\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial")
	return dir
}

// commitFile writes content and commits it, returning the new HEAD hash.
func commitFile(t *testing.T, dir, name, content, message string) string {
	t.Helper()
	writeFile(t, dir, name, content)
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", message)
	return runGit(t, dir, "rev-parse", "HEAD")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestDetectRepoRoot(t *testing.T) {
	ctx := context.Background()

	t.Run("from the root", func(t *testing.T) {
		repo := initRepo(t)
		root, err := DetectRepoRoot(ctx, repo)
		require.NoError(t, err)
		// Resolve symlinks so macOS /tmp vs /private/tmp comparisons hold.
		wantRoot, _ := filepath.EvalSymlinks(repo)
		gotRoot, _ := filepath.EvalSymlinks(root)
		assert.Equal(t, wantRoot, gotRoot)
	})

	t.Run("from a subdirectory", func(t *testing.T) {
		repo := initRepo(t)
		sub := filepath.Join(repo, "pkgs", "tools")
		require.NoError(t, os.MkdirAll(sub, 0o750))

		root, err := DetectRepoRoot(ctx, sub)
		require.NoError(t, err)
		wantRoot, _ := filepath.EvalSymlinks(repo)
		gotRoot, _ := filepath.EvalSymlinks(root)
		assert.Equal(t, wantRoot, gotRoot)
	})

	t.Run("outside a repository", func(t *testing.T) {
		_, err := DetectRepoRoot(ctx, t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrNotGitRepo)
	})
}

func TestResolveRev(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	head := runGit(t, repo, "rev-parse", "HEAD")

	t.Run("symbolic ref", func(t *testing.T) {
		rev, err := ResolveRev(ctx, repo, "HEAD")
		require.NoError(t, err)
		assert.Equal(t, head, rev)
	})

	t.Run("branch name", func(t *testing.T) {
		rev, err := ResolveRev(ctx, repo, "main")
		require.NoError(t, err)
		assert.Equal(t, head, rev)
	})

	t.Run("unknown ref", func(t *testing.T) {
		_, err := ResolveRev(ctx, repo, "no-such-branch")
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrRefNotFound)
	})

	t.Run("parent expression", func(t *testing.T) {
		second := commitFile(t, repo, "file.txt", "content\n", "second")
		parent, err := ResolveRev(ctx, repo, second+"^")
		require.NoError(t, err)
		assert.Equal(t, head, parent)
	})
}

func TestIsDirty(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)

	dirty, err := IsDirty(ctx, repo)
	require.NoError(t, err)
	assert.False(t, dirty)

	t.Run("untracked files do not count", func(t *testing.T) {
		writeFile(t, repo, "untracked.txt", "new\n")
		dirty, err := IsDirty(ctx, repo)
		require.NoError(t, err)
		assert.False(t, dirty)
	})

	t.Run("modified tracked files count", func(t *testing.T) {
		writeFile(t, repo, "README.md", "changed\n")
		dirty, err := IsDirty(ctx, repo)
		require.NoError(t, err)
		assert.True(t, dirty)
	})
}

func TestWorkingDiff(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)

	diff, err := WorkingDiff(ctx, repo)
	require.NoError(t, err)
	assert.Empty(t, diff)

	writeFile(t, repo, "README.md", "changed\n")
	diff, err = WorkingDiff(ctx, repo)
	require.NoError(t, err)
	assert.Contains(t, diff, "-hello")
	assert.Contains(t, diff, "+changed")
}

func TestShortRev(t *testing.T) {
	assert.Equal(t, "abcdef1234", ShortRev("abcdef1234567890abcdef1234567890abcdef12"))
	assert.Equal(t, "abc", ShortRev("abc"))
	assert.Equal(t, "abc", ShortRev(" abc\n"))
}
