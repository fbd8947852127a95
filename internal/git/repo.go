// Package git provides git operations for nixpr.
// This file implements repository inspection helpers.
package git

import (
	"context"
	"fmt"
	"strings"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// DetectRepoRoot finds the root of the git repository containing path.
func DetectRepoRoot(ctx context.Context, path string) (string, error) {
	output, err := RunCommand(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%w: %w", nixprerrors.ErrNotGitRepo, err)
	}
	return output, nil
}

// ResolveRev resolves a revision expression to a full commit hash.
func ResolveRev(ctx context.Context, repoPath, rev string) (string, error) {
	output, err := RunCommand(ctx, repoPath, "rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("cannot resolve '%s': %w", rev, nixprerrors.ErrRefNotFound)
	}
	return output, nil
}

// HeadRev returns the full commit hash of HEAD.
func HeadRev(ctx context.Context, repoPath string) (string, error) {
	return RunCommand(ctx, repoPath, "rev-parse", "HEAD")
}

// IsDirty reports whether the working tree has uncommitted changes to
// tracked files.
func IsDirty(ctx context.Context, repoPath string) (bool, error) {
	output, err := RunCommand(ctx, repoPath, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return output != "", nil
}

// WorkingDiff returns the uncommitted diff of the working tree against HEAD.
// Staged and unstaged changes are both included.
func WorkingDiff(ctx context.Context, repoPath string) (string, error) {
	output, err := RunCommand(ctx, repoPath, "diff", "HEAD")
	if err != nil {
		return "", err
	}
	return output, nil
}

// ShortRev shortens a commit hash for display and workspace naming.
func ShortRev(rev string) string {
	const shortLen = 10
	rev = strings.TrimSpace(rev)
	if len(rev) <= shortLen {
		return rev
	}
	return rev[:shortLen]
}
