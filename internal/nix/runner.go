// Package nix drives the external nix tooling for nixpr: package listing,
// attribute evaluation, batch builds, store queries and log capture.
// This file provides the command execution seam shared by the package.
package nix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// WaitFunc finalizes a streamed command. It must be called after the stream
// has been consumed and returns the command's exit error, if any.
type WaitFunc func() error

// Executor runs external commands. Implementations other than the default
// are used in tests.
type Executor interface {
	// Output runs a command to completion and returns its stdout.
	Output(ctx context.Context, workDir string, env []string, name string, args ...string) ([]byte, error)

	// OutputWithStderr runs a command to completion and returns stdout and
	// stderr separately. Used where stderr must be inspected even on a
	// non-zero exit, e.g. keep-going batch builds.
	OutputWithStderr(ctx context.Context, workDir string, env []string, name string, args ...string) ([]byte, []byte, error)

	// Stream starts a command and returns its stdout as a stream, for
	// output too large to hold in memory.
	Stream(ctx context.Context, workDir string, env []string, name string, args ...string) (io.ReadCloser, WaitFunc, error)
}

// defaultExecutor implements Executor using os/exec.
type defaultExecutor struct{}

// NewExecutor returns the default subprocess-backed Executor.
func NewExecutor() Executor {
	return &defaultExecutor{}
}

// Output runs a command and returns its stdout. On failure the error carries
// stderr and wraps ErrNixOperation while preserving the exec error chain, so
// callers can still distinguish a non-zero exit from a spawn failure.
func (e *defaultExecutor) Output(ctx context.Context, workDir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return stdout.Bytes(), commandError(name, args, stderr.String(), err)
	}

	return stdout.Bytes(), nil
}

// OutputWithStderr runs a command and returns stdout and stderr separately.
func (e *defaultExecutor) OutputWithStderr(ctx context.Context, workDir string, env []string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return stdout.Bytes(), stderr.Bytes(), commandError(name, args, stderr.String(), err)
	}

	return stdout.Bytes(), stderr.Bytes(), nil
}

// Stream starts a command and returns its stdout pipe. Stderr is collected
// and surfaced through the wait function's error.
func (e *defaultExecutor) Stream(ctx context.Context, workDir string, env []string, name string, args ...string) (io.ReadCloser, WaitFunc, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, commandError(name, args, stderr.String(), err)
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return commandError(name, args, stderr.String(), err)
		}
		return nil
	}

	return stdout, wait, nil
}

// commandError builds an error that includes stderr for debugging, wraps
// ErrNixOperation for categorization and keeps the original exec error in
// the chain.
func commandError(name string, args []string, stderr string, err error) error {
	verb := name
	if len(args) > 0 {
		verb = name + " " + args[0]
	}
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		// Truncate noisy build output; the interesting part is at the end.
		const maxStderr = 4096
		if len(stderr) > maxStderr {
			stderr = "..." + stderr[len(stderr)-maxStderr:]
		}
		return fmt.Errorf("%s failed: %s: %w: %w", verb, stderr, nixprerrors.ErrNixOperation, err)
	}
	return fmt.Errorf("%s failed: %w: %w", verb, nixprerrors.ErrNixOperation, err)
}
