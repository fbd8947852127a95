package workspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixpr/nixpr/internal/constants"
	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// initRepo creates a git repository with one commit and returns its path
// and HEAD hash.
func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.Output()
		require.NoError(t, err, "git %v", args)
		return string(out)
	}

	run("init", "--initial-branch=main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.nix"), []byte("{}\n"), 0o600))
	run("add", ".")
	run("commit", "-m", "initial")
	head := run("rev-parse", "HEAD")
	return dir, head[:len(head)-1]
}

func newTestManager(t *testing.T, repo string) *Manager {
	t.Helper()
	m, err := NewManager(repo, t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return m
}

func TestNewManager(t *testing.T) {
	repo, _ := initRepo(t)

	t.Run("explicit cache root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "cache")
		m, err := NewManager(repo, root, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, root, m.CacheRoot())
		assert.DirExists(t, root)
	})

	t.Run("default cache root", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", t.TempDir())
		m, err := NewManager(repo, "", zerolog.Nop())
		require.NoError(t, err)
		assert.Contains(t, m.CacheRoot(), constants.CacheDirName)
	})
}

func TestAcquireRelease(t *testing.T) {
	ctx := context.Background()
	repo, head := initRepo(t)

	t.Run("full lifecycle", func(t *testing.T) {
		m := newTestManager(t, repo)
		prior := os.Getenv("NIX_PATH")

		ws, err := m.Acquire(ctx, "pr-123", head)
		require.NoError(t, err)

		assert.Equal(t, "pr-123", ws.Name)
		assert.DirExists(t, ws.Dir)
		assert.FileExists(t, filepath.Join(ws.Worktree, "default.nix"))
		assert.Equal(t, "nixpkgs="+ws.Worktree, os.Getenv("NIX_PATH"))
		assert.Equal(t, []string{"NIX_PATH=nixpkgs=" + ws.Worktree}, ws.Env())

		require.NoError(t, m.Release(ctx, ws))
		assert.NoDirExists(t, ws.Dir)
		assert.Equal(t, prior, os.Getenv("NIX_PATH"))
	})

	t.Run("existing build directory is a hard error", func(t *testing.T) {
		m := newTestManager(t, repo)

		ws, err := m.Acquire(ctx, "pr-456", head)
		require.NoError(t, err)
		defer func() { require.NoError(t, m.Release(ctx, ws)) }()

		_, err = m.Acquire(ctx, "pr-456", head)
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrWorkspaceExists)

		// The first workspace is untouched by the failed second acquire.
		assert.DirExists(t, ws.Worktree)
	})

	t.Run("failed checkout leaves nothing behind", func(t *testing.T) {
		m := newTestManager(t, repo)

		_, err := m.Acquire(ctx, "pr-789", "0000000000000000000000000000000000000000")
		require.Error(t, err)
		assert.NoDirExists(t, filepath.Join(m.CacheRoot(), "pr-789"))

		// The name is reusable after the failure.
		ws, err := m.Acquire(ctx, "pr-789", head)
		require.NoError(t, err)
		require.NoError(t, m.Release(ctx, ws))
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		m := newTestManager(t, repo)
		_, err := m.Acquire(ctx, "", head)
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrEmptyValue)
	})

	t.Run("release of nil workspace is a no-op", func(t *testing.T) {
		m := newTestManager(t, repo)
		require.NoError(t, m.Release(ctx, nil))
	})

	t.Run("release runs despite canceled context", func(t *testing.T) {
		m := newTestManager(t, repo)

		ws, err := m.Acquire(ctx, "pr-cancel", head)
		require.NoError(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		require.NoError(t, m.Release(canceled, ws))
		assert.NoDirExists(t, ws.Dir)
	})
}

func TestKeepReport(t *testing.T) {
	ctx := context.Background()
	repo, head := initRepo(t)
	m := newTestManager(t, repo)

	ws, err := m.Acquire(ctx, "pr-report", head)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Release(ctx, ws)) }()

	t.Run("missing report directory", func(t *testing.T) {
		_, err := m.KeepReport(ws, filepath.Join(m.CacheRoot(), constants.ReportDirName))
		require.Error(t, err)
		assert.ErrorIs(t, err, nixprerrors.ErrReportNotFound)
	})

	t.Run("moves the report out of the workspace", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(ws.ReportDir(), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(ws.ReportDir(), "report.md"), []byte("# report\n"), 0o600))

		dest, err := m.KeepReport(ws, filepath.Join(m.CacheRoot(), constants.ReportDirName))
		require.NoError(t, err)

		assert.FileExists(t, filepath.Join(dest, "report.md"))
		assert.NoDirExists(t, ws.ReportDir())
	})

	t.Run("overwrite replaces an earlier report", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(ws.ReportDir(), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(ws.ReportDir(), "report.md"), []byte("# newer\n"), 0o600))

		dest, err := m.KeepReport(ws, filepath.Join(m.CacheRoot(), constants.ReportDirName))
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(dest, "report.md"))
		require.NoError(t, err)
		assert.Equal(t, "# newer\n", string(content))
	})
}
