// Package git provides git operations for nixpr.
// This file provides shared git command execution utilities.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// RunCommand executes a git command in the specified directory and returns
// its trimmed stdout. All errors are wrapped with ErrGitOperation and include
// stderr for debugging.
func RunCommand(ctx context.Context, workDir string, args ...string) (string, error) {
	return RunCommandEnv(ctx, workDir, nil, args...)
}

// RunCommandEnv executes a git command with extra environment variables
// appended to the inherited environment. Identity variables for merge
// commits are passed this way instead of mutating the process environment.
func RunCommandEnv(ctx context.Context, workDir string, extraEnv []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir
	if len(extraEnv) > 0 {
		cmd.Env = append(cmd.Environ(), extraEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s failed: %s: %w", args[0], strings.TrimSpace(stderr.String()), nixprerrors.ErrGitOperation)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], nixprerrors.ErrGitOperation)
	}

	return strings.TrimSpace(stdout.String()), nil
}
