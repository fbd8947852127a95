// Package nix drives the external nix tooling for nixpr.
// This file implements the batch build phase and result verification.
package nix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// Builder evaluates and builds attribute batches against a checkout.
type Builder struct {
	exec   Executor
	logger zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(exec Executor, logger zerolog.Logger) *Builder {
	return &Builder{exec: exec, logger: logger}
}

// BuildOptions configures one build pipeline run.
type BuildOptions struct {
	// Worktree is the isolated checkout of the package tree.
	Worktree string
	// WorkDir is the workspace build directory, where generated expression
	// files are placed.
	WorkDir string
	// Env is the workspace environment override, passed by value to every
	// subprocess.
	Env []string
	// Attrs are the attribute names to build.
	Attrs []string
	// System is the target platform identifier.
	System string
	// ExtraArgs are passed through to the build invocation verbatim.
	ExtraArgs []string
}

// buildExprTemplate enumerates the buildable attributes as a list of
// derivations for a single keep-going build invocation.
const buildExprTemplate = `let
  pkgs = import %s { system = %q; config = { allowBroken = true; checkMeta = false; }; };
  lib = pkgs.lib;
in map (n: lib.attrByPath (lib.splitString "." n) null pkgs) [
%s]
`

// Build runs the full pipeline: batched evaluation, alias collapsing, one
// keep-going batch build of the buildable subset, and stderr-based
// annotation of skipped and timed-out attributes.
//
// A non-zero exit from the build invocation is expected whenever any
// attribute fails and is swallowed here; per-attribute failures are
// discovered afterwards through WasBuilt. Only the inability to start the
// invocation at all is fatal.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) ([]*Attr, error) {
	attrs, err := b.Eval(ctx, opts.Worktree, opts.WorkDir, opts.Env, opts.Attrs, opts.System)
	if err != nil {
		return nil, err
	}

	buildable := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Exists && !attr.Broken && !attr.Blacklisted {
			buildable = append(buildable, attr.Name)
		}
	}
	if len(buildable) == 0 {
		b.logger.Info().Msg("nothing buildable after evaluation")
		return attrs, nil
	}

	exprFile, err := writeBuildExpr(opts.WorkDir, opts.Worktree, opts.System, buildable)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nixprerrors.ErrBuildInvocation, err)
	}

	args := []string{
		"build",
		"--file", exprFile,
		"--no-link",
		"--keep-going",
		"--option", "sandbox", sandboxOption(),
	}
	args = append(args, opts.ExtraArgs...)

	b.logger.Info().Int("attrs", len(buildable)).Msg("building changed attributes")

	_, stderr, err := b.exec.OutputWithStderr(ctx, opts.WorkDir, opts.Env, "nix", args...)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Not a build failure: the engine could not be invoked at all.
			return nil, fmt.Errorf("%w: %w", nixprerrors.ErrBuildInvocation, err)
		}
		b.logger.Debug().Err(err).Msg("batch build exited non-zero, classifying per attribute")
	}

	annotateEngineOutcomes(attrs, string(stderr))
	return attrs, nil
}

// writeBuildExpr renders the synthetic build expression into workDir.
func writeBuildExpr(workDir, worktree, system string, attrs []string) (string, error) {
	var list strings.Builder
	for _, attr := range attrs {
		fmt.Fprintf(&list, "  %q\n", attr)
	}

	expr := fmt.Sprintf(buildExprTemplate, worktree, system, list.String())
	path := filepath.Join(workDir, "build.nix")
	if err := os.WriteFile(path, []byte(expr), 0o600); err != nil {
		return "", fmt.Errorf("failed to write build expression: %w", err)
	}
	return path, nil
}

// sandboxOption returns the platform-appropriate sandbox setting for the
// batch build.
func sandboxOption() string {
	if runtime.GOOS == "darwin" {
		return "false"
	}
	return "relaxed"
}

// Engine report lines for timed-out and dependency-skipped derivations.
var (
	timedOutRe = regexp.MustCompile(`building of '([^']+)'.* timed out`)
	skippedRe  = regexp.MustCompile(`cannot build derivation '([^']+)': \d+ dependencies couldn't be built`)
)

// annotateEngineOutcomes marks attributes the engine itself reported as
// timed out or skipped, matching on derivation path.
func annotateEngineOutcomes(attrs []*Attr, stderr string) {
	timedOut := make(map[string]struct{})
	skipped := make(map[string]struct{})

	for _, m := range timedOutRe.FindAllStringSubmatch(stderr, -1) {
		timedOut[strings.TrimSuffix(m[1], "!")] = struct{}{}
	}
	for _, m := range skippedRe.FindAllStringSubmatch(stderr, -1) {
		skipped[m[1]] = struct{}{}
	}

	for _, attr := range attrs {
		if attr.DrvPath == "" {
			continue
		}
		if _, ok := timedOut[attr.DrvPath]; ok {
			attr.TimedOut = true
		}
		if _, ok := skipped[attr.DrvPath]; ok {
			attr.Skipped = true
		}
	}
}

// VerifyPath implements PathVerifier by asking the build store whether the
// path is present and valid.
func (b *Builder) VerifyPath(ctx context.Context, path string) bool {
	_, err := b.exec.Output(ctx, "", nil, "nix-store", "--verify-path", path)
	return err == nil
}

// BuildLog fetches the captured build log of an attribute from the engine's
// log store. Returns an error when the log is unavailable, e.g. already
// garbage-collected; callers treat that as best-effort.
func (b *Builder) BuildLog(ctx context.Context, attr *Attr) (string, error) {
	target := attr.DrvPath
	if target == "" {
		target = attr.Path
	}
	if target == "" {
		return "", fmt.Errorf("no derivation or output path for '%s': %w", attr.Name, nixprerrors.ErrNixOperation)
	}

	out, err := b.exec.Output(ctx, "", nil, "nix", "log", target)
	if err != nil {
		return "", fmt.Errorf("failed to fetch build log for '%s': %w", attr.Name, err)
	}
	return string(out), nil
}
