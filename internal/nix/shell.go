// Package nix drives the external nix tooling for nixpr.
// This file opens the interactive review shell over built attributes.
package nix

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Shell opens an interactive nix-shell in workDir with the given attributes
// available, so the reviewer can poke at the freshly built packages. The
// shell inherits the terminal; the call blocks until the reviewer exits.
func Shell(ctx context.Context, worktree, workDir string, env []string, attrs []string) error {
	args := []string{"-f", worktree}
	for _, attr := range attrs {
		args = append(args, "-p", attr)
	}

	cmd := exec.CommandContext(ctx, "nix-shell", args...) //#nosec G204 -- attrs come from the engine's own evaluation
	cmd.Dir = workDir
	cmd.Env = append(cmd.Environ(), env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A non-zero exit from the reviewer's shell session is not an
		// error in the review itself.
		if _, ok := err.(*exec.ExitError); ok {
			return nil
		}
		return fmt.Errorf("failed to start review shell: %w", err)
	}
	return nil
}
