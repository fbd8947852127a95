// Package workspace provides isolated build directories for nixpr reviews.
// This file implements the Manager which owns the workspace lifecycle.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nixpr/nixpr/internal/constants"
	nixprerrors "github.com/nixpr/nixpr/internal/errors"
	"github.com/nixpr/nixpr/internal/flock"
	"github.com/nixpr/nixpr/internal/git"
	"github.com/nixpr/nixpr/internal/signal"
)

// Workspace is one isolated review environment: a named build directory, a
// disposable checkout of the package tree inside it, and a scoped
// environment override pointing the build engine at that checkout.
type Workspace struct {
	// Name is the logical workspace name, e.g. "pr-12345" or "rev-abc123".
	Name string
	// Dir is the build directory under the cache root.
	Dir string
	// Worktree is the package tree checkout inside Dir.
	Worktree string
	// RepoPath is the user's primary checkout the worktree was created from.
	RepoPath string

	env *EnvScope
}

// Env returns the workspace environment override as KEY=VALUE pairs, for
// subprocess invocations that take configuration by value.
func (w *Workspace) Env() []string {
	return w.env.Environ()
}

// ReportDir is where the run's report and build logs are persisted.
func (w *Workspace) ReportDir() string {
	return filepath.Join(w.Dir, constants.ReportDirName)
}

// Manager creates and destroys workspaces under a cache root.
type Manager struct {
	repoPath  string
	cacheRoot string
	logger    zerolog.Logger
}

// NewManager creates a Manager for the repository at repoPath. If cacheRoot
// is empty, the user's cache directory is used; if that is unavailable, a
// throwaway temporary root is created instead.
func NewManager(repoPath, cacheRoot string, logger zerolog.Logger) (*Manager, error) {
	if cacheRoot == "" {
		userCache, err := os.UserCacheDir()
		if err == nil {
			cacheRoot = filepath.Join(userCache, constants.CacheDirName)
		} else {
			cacheRoot, err = os.MkdirTemp("", "nixpr-")
			if err != nil {
				return nil, fmt.Errorf("failed to create throwaway cache root: %w", err)
			}
			logger.Warn().Str("dir", cacheRoot).Msg("no cache directory available, using throwaway root")
		}
	}

	if err := os.MkdirAll(cacheRoot, constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cache root '%s': %w", cacheRoot, err)
	}

	return &Manager{repoPath: repoPath, cacheRoot: cacheRoot, logger: logger}, nil
}

// CacheRoot returns the directory workspaces are created under.
func (m *Manager) CacheRoot() string {
	return m.cacheRoot
}

// Acquire creates the named workspace with a worktree checked out at
// startRev and applies the environment override. A build directory that
// already exists signals a crashed or concurrently running session and is a
// hard error; it is never reused. On any failure the partially created
// state is rolled back.
func (m *Manager) Acquire(ctx context.Context, name, startRev string) (*Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("workspace name %w", nixprerrors.ErrEmptyValue)
	}

	dir, err := m.claimDir(name)
	if err != nil {
		return nil, err
	}

	worktree := filepath.Join(dir, constants.WorktreeDirName)
	if err := git.AddWorktree(ctx, m.repoPath, worktree, startRev); err != nil {
		// Atomic acquisition: no directory survives a failed acquire.
		_ = os.RemoveAll(dir)
		return nil, nixprerrors.Wrapf(err, "failed to check out '%s'", startRev)
	}

	ws := &Workspace{
		Name:     name,
		Dir:      dir,
		Worktree: worktree,
		RepoPath: m.repoPath,
		env: NewEnvScope(map[string]string{
			"NIX_PATH": "nixpkgs=" + worktree,
		}),
	}

	if err := ws.env.Apply(); err != nil {
		_ = git.RemoveWorktree(ctx, m.repoPath, worktree, m.logger)
		_ = os.RemoveAll(dir)
		return nil, nixprerrors.Wrap(err, "failed to apply environment override")
	}

	m.logger.Info().
		Str("workspace", name).
		Str("dir", dir).
		Str("rev", git.ShortRev(startRev)).
		Msg("workspace acquired")

	return ws, nil
}

// claimDir atomically checks and creates the build directory. The cache
// root lock closes the race between the existence check and the mkdir when
// two runs acquire at once.
func (m *Manager) claimDir(name string) (string, error) {
	release, err := flock.Acquire(filepath.Join(m.cacheRoot, ".lock"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", nixprerrors.ErrWorkspaceBusy, err)
	}
	defer release()

	dir := filepath.Join(m.cacheRoot, name)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf(
			"build directory '%s' exists, delete it or choose a different name: %w",
			dir, nixprerrors.ErrWorkspaceExists)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to inspect '%s': %w", dir, err)
	}

	if err := os.MkdirAll(dir, constants.DirPerm); err != nil {
		return "", fmt.Errorf("failed to create build directory '%s': %w", dir, err)
	}

	return dir, nil
}

// Release tears the workspace down: restore the prior environment, remove
// the worktree, prune stale registrations, remove the build directory.
// The whole sequence runs under a signal guard so an impatient interrupt
// cannot leave the worktree registry inconsistent: the interrupt is
// deferred with a visible warning and normal delivery resumes afterwards.
// Cleanup is attempted exactly once; if removal fails the error says so.
func (m *Manager) Release(ctx context.Context, ws *Workspace) error {
	if ws == nil {
		return nil
	}

	guard := signal.Begin(m.logger, "cleaning up workspace "+ws.Name)
	defer guard.End()

	ws.env.Restore()

	// Use a background-derived context for teardown: the caller's context
	// may already be canceled and cleanup must still run to completion.
	cleanupCtx := context.WithoutCancel(ctx)

	var firstErr error
	if err := git.RemoveWorktree(cleanupCtx, ws.RepoPath, ws.Worktree, m.logger); err != nil {
		firstErr = err
	}

	if err := os.RemoveAll(ws.Dir); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to remove '%s': %w: %w", ws.Dir, nixprerrors.ErrCleanupIncomplete, err)
		}
		m.logger.Warn().Err(err).Str("dir", ws.Dir).Msg("build directory removal failed")
	}

	if guard.Interrupted() {
		m.logger.Warn().Str("workspace", ws.Name).Msg("cleanup finished, honoring deferred interrupt")
	}
	if firstErr != nil {
		return firstErr
	}

	m.logger.Info().Str("workspace", ws.Name).Msg("workspace released")
	return nil
}

// KeepReport moves the report directory out of the workspace before release
// so results survive teardown. Returns the preserved path.
func (m *Manager) KeepReport(ws *Workspace, destRoot string) (string, error) {
	src := ws.ReportDir()
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: %w", nixprerrors.ErrReportNotFound, err)
	}

	if err := os.MkdirAll(destRoot, constants.DirPerm); err != nil {
		return "", fmt.Errorf("failed to create report root '%s': %w", destRoot, err)
	}

	dest := filepath.Join(destRoot, ws.Name)
	_ = os.RemoveAll(dest)
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("failed to preserve report: %w", err)
	}
	return dest, nil
}
