// Package git provides git operations for nixpr.
// This file implements worktree creation and removal for isolated checkouts.
package git

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// AddWorktree creates a detached worktree of the repository at repoPath,
// checked out at rev, rooted at path.
func AddWorktree(ctx context.Context, repoPath, path, rev string) error {
	_, err := RunCommand(ctx, repoPath, "worktree", "add", "--detach", path, rev)
	if err != nil {
		return fmt.Errorf("failed to create worktree at '%s': %w", path, err)
	}
	return nil
}

// RemoveWorktree removes the worktree directory and prunes the stale
// registration from the parent repository. Removal is best-effort in the
// sense that a failed rm still attempts the prune; the first error
// encountered is returned.
func RemoveWorktree(ctx context.Context, repoPath, path string, logger zerolog.Logger) error {
	var firstErr error

	if err := os.RemoveAll(path); err != nil {
		firstErr = fmt.Errorf("failed to remove worktree directory '%s': %w: %w", path, nixprerrors.ErrCleanupIncomplete, err)
		logger.Warn().Err(err).Str("path", path).Msg("worktree directory removal failed")
	}

	if _, err := RunCommand(ctx, repoPath, "worktree", "prune"); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to prune worktrees: %w", err)
		}
		logger.Warn().Err(err).Msg("worktree prune failed")
	}

	return firstErr
}

// Merge merges rev into the current HEAD of the worktree at path without
// creating a merge commit edit session. Identity variables are passed per
// invocation so the caller's git identity is never required or modified.
func Merge(ctx context.Context, path, rev string) error {
	env := []string{
		"GIT_AUTHOR_NAME=nixpr",
		"GIT_AUTHOR_EMAIL=nixpr@localhost",
		"GIT_COMMITTER_NAME=nixpr",
		"GIT_COMMITTER_EMAIL=nixpr@localhost",
	}
	_, err := RunCommandEnv(ctx, path, env, "merge", "--no-edit", rev)
	if err != nil {
		return fmt.Errorf("failed to merge %s: %w", ShortRev(rev), err)
	}
	return nil
}

// Checkout checks out rev in the worktree at path, detaching HEAD.
func Checkout(ctx context.Context, path, rev string) error {
	_, err := RunCommand(ctx, path, "checkout", "--detach", rev)
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w", ShortRev(rev), err)
	}
	return nil
}

// ApplyPatch applies a unified diff to the worktree at path.
func ApplyPatch(ctx context.Context, path, patchFile string) error {
	_, err := RunCommand(ctx, path, "apply", "--index", patchFile)
	if err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	return nil
}
