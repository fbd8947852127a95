// Package github provides the code-hosting operations nixpr needs.
// This file implements the CI evaluation gist lookup used to skip local
// evaluation of the before-snapshot when CI already computed the changed
// attribute set.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// ciEvalContext is the status context the package-tree CI posts when its
// evaluation finishes. Its target URL points at a gist listing changed
// attributes per platform.
const ciEvalContext = "ofborg-eval-check-meta"

// commitStatus is the subset of the combined-status response we read.
type commitStatus struct {
	Statuses []struct {
		Context   string `json:"context"`
		State     string `json:"state"`
		TargetURL string `json:"target_url"`
	} `json:"statuses"`
}

var gistURLRe = regexp.MustCompile(`gist\.github\.com/([a-f0-9]+)`)

// EvalGistAttrs fetches the precomputed changed-attribute list for the PR
// head and platform from the CI evaluation gist. Returns ErrGistNotFound
// when CI has not (yet) published one, which callers treat as "evaluate
// locally instead".
func (c *Client) EvalGistAttrs(ctx context.Context, headSHA, system string) ([]string, error) {
	out, err := c.cmdExec.Execute(ctx, "", "gh", "api",
		fmt.Sprintf("repos/%s/commits/%s/status", c.repo, headSHA))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nixprerrors.ErrGitHubOperation, err)
	}

	var status commitStatus
	if err := json.Unmarshal(out, &status); err != nil {
		return nil, fmt.Errorf("failed to parse commit status: %w: %w", nixprerrors.ErrGitHubOperation, err)
	}

	gistID := ""
	for _, s := range status.Statuses {
		if s.Context != ciEvalContext || s.State != "success" {
			continue
		}
		if m := gistURLRe.FindStringSubmatch(s.TargetURL); m != nil {
			gistID = m[1]
			break
		}
	}
	if gistID == "" {
		return nil, nixprerrors.ErrGistNotFound
	}

	return c.gistAttrs(ctx, gistID, system)
}

// gistAttrs downloads the gist and extracts the attribute list for the
// requested platform. The gist has one file per platform named after the
// system identifier, one attribute per line.
func (c *Client) gistAttrs(ctx context.Context, gistID, system string) ([]string, error) {
	out, err := c.cmdExec.Execute(ctx, "", "gh", "api", "gists/"+gistID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nixprerrors.ErrGitHubOperation, err)
	}

	var gist struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.Unmarshal(out, &gist); err != nil {
		return nil, fmt.Errorf("failed to parse gist: %w: %w", nixprerrors.ErrGitHubOperation, err)
	}

	file, ok := gist.Files[system]
	if !ok {
		return nil, fmt.Errorf("no attribute list for %s: %w", system, nixprerrors.ErrGistNotFound)
	}

	var attrs []string
	for _, line := range strings.Split(file.Content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			attrs = append(attrs, line)
		}
	}

	c.logger.Debug().Int("attrs", len(attrs)).Str("system", system).Msg("using ci evaluation gist")
	return attrs, nil
}
