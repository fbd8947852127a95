// Package nix drives the external nix tooling for nixpr.
// This file implements the batched attribute evaluation phase.
package nix

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// evalResult mirrors the JSON the evaluation expression produces per
// attribute.
type evalResult struct {
	Exists  bool    `json:"exists"`
	Broken  bool    `json:"broken"`
	Path    *string `json:"path"`
	DrvPath *string `json:"drvPath"`
}

// evalExprTemplate resolves each requested attribute against the checkout
// and reports existence, brokenness and output/derivation paths without
// forcing a full evaluation of broken attributes.
const evalExprTemplate = `let
  pkgs = import %s { system = %q; config = { allowBroken = true; checkMeta = false; }; };
  lib = pkgs.lib;
  resolve = name:
    let
      value = lib.attrByPath (lib.splitString "." name) null pkgs;
      outPath = builtins.tryEval (toString (value.outPath or ""));
      drvPath = builtins.tryEval (toString (value.drvPath or ""));
    in
    if value == null then { exists = false; broken = false; path = null; drvPath = null; }
    else {
      exists = true;
      broken = (value.meta.broken or false) || !outPath.success;
      path = if outPath.success && outPath.value != "" then outPath.value else null;
      drvPath = if drvPath.success && drvPath.value != "" then drvPath.value else null;
    };
in builtins.listToAttrs (map (n: { name = n; value = resolve n; }) [
%s])
`

// Eval asks the build engine, in one batched call, which of the requested
// attributes exist, are broken, and what their paths are. Attributes whose
// output path collides with another are collapsed onto the preferred name,
// with the rest recorded as aliases. A failure to run or parse the
// evaluation is fatal for the current target.
func (b *Builder) Eval(ctx context.Context, worktree, workDir string, env []string, attrs []string, system string) ([]*Attr, error) {
	if len(attrs) == 0 {
		return nil, nil
	}

	exprFile, err := writeEvalExpr(workDir, worktree, system, attrs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nixprerrors.ErrEvalFailed, err)
	}

	out, err := b.exec.Output(ctx, workDir, env,
		"nix", "eval", "--json", "--impure", "--file", exprFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nixprerrors.ErrEvalFailed, err)
	}

	results := make(map[string]evalResult, len(attrs))
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("%w: unparseable engine output: %w", nixprerrors.ErrEvalFailed, err)
	}

	b.logger.Debug().Int("attrs", len(attrs)).Msg("evaluation complete")
	return collapseAliases(attrs, results), nil
}

// writeEvalExpr renders the evaluation expression for the attribute batch
// into workDir and returns its path.
func writeEvalExpr(workDir, worktree, system string, attrs []string) (string, error) {
	var list strings.Builder
	for _, attr := range attrs {
		fmt.Fprintf(&list, "  %q\n", attr)
	}

	expr := fmt.Sprintf(evalExprTemplate, worktree, system, list.String())
	path := filepath.Join(workDir, "eval.nix")
	if err := os.WriteFile(path, []byte(expr), 0o600); err != nil {
		return "", fmt.Errorf("failed to write evaluation expression: %w", err)
	}
	return path, nil
}

// collapseAliases converts raw evaluation results into Attrs, deduplicating
// by output path. When several names evaluate to the same path, the
// preferred name (shortest, lexicographic on equal length) becomes the
// canonical Attr and the rest are recorded as its aliases, so the same
// artifact is never built or reported twice.
func collapseAliases(requested []string, results map[string]evalResult) []*Attr {
	byPath := make(map[string][]string)
	var out []*Attr

	// First pass: attrs without a usable path are emitted directly; the
	// rest are grouped by output path.
	for _, name := range requested {
		res, ok := results[name]
		if !ok || res.Path == nil || *res.Path == "" {
			out = append(out, newAttr(name, res))
			continue
		}
		byPath[*res.Path] = append(byPath[*res.Path], name)
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		names := byPath[path]
		sort.Slice(names, func(i, j int) bool {
			if len(names[i]) != len(names[j]) {
				return len(names[i]) < len(names[j])
			}
			return names[i] < names[j]
		})

		attr := newAttr(names[0], results[names[0]])
		attr.Aliases = names[1:]
		out = append(out, attr)
	}

	return out
}

// newAttr builds an Attr from a raw evaluation result, applying the fixed
// blacklist.
func newAttr(name string, res evalResult) *Attr {
	attr := &Attr{
		Name:        name,
		Exists:      res.Exists,
		Broken:      res.Broken,
		Blacklisted: IsBlacklisted(name),
	}
	if res.Path != nil {
		attr.Path = *res.Path
	}
	if res.DrvPath != nil {
		attr.DrvPath = *res.DrvPath
	}
	return attr
}
