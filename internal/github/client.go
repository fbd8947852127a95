// Package github provides the code-hosting operations nixpr needs: pull
// request metadata, CI evaluation gist lookup, result comments and failure
// log gists. Everything goes through the gh CLI so the user's existing
// authentication is reused.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// PullRequest is the subset of PR metadata a review needs.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Base   Ref    `json:"base"`
	Head   Ref    `json:"head"`
}

// Ref identifies one side of a pull request.
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// CommandExecutor executes shell commands. Used for testing.
type CommandExecutor interface {
	// Execute runs a command and returns its stdout.
	Execute(ctx context.Context, workDir, name string, args ...string) ([]byte, error)
}

// Client performs GitHub operations against one repository via the gh CLI.
type Client struct {
	repo    string // owner/name slug
	logger  zerolog.Logger
	cmdExec CommandExecutor
}

// Option configures a Client.
type Option func(*Client)

// WithCommandExecutor sets a custom command executor (for testing).
func WithCommandExecutor(exec CommandExecutor) Option {
	return func(c *Client) {
		c.cmdExec = exec
	}
}

// WithLogger sets the logger for GitHub operations.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the repository slug (e.g. "NixOS/nixpkgs").
func NewClient(repo string, opts ...Option) *Client {
	c := &Client{
		repo:    repo,
		logger:  zerolog.Nop(),
		cmdExec: &defaultCommandExecutor{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PR fetches pull request metadata.
func (c *Client) PR(ctx context.Context, number int) (*PullRequest, error) {
	out, err := c.cmdExec.Execute(ctx, "", "gh", "api",
		fmt.Sprintf("repos/%s/pulls/%d", c.repo, number))
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil, fmt.Errorf("pr %d in %s: %w", number, c.repo, nixprerrors.ErrPRNotFound)
		}
		return nil, fmt.Errorf("%w: %w", nixprerrors.ErrGitHubOperation, err)
	}

	var pr PullRequest
	if err := json.Unmarshal(out, &pr); err != nil {
		return nil, fmt.Errorf("failed to parse pr %d: %w: %w", number, nixprerrors.ErrGitHubOperation, err)
	}
	return &pr, nil
}

// Comment posts a result comment on the pull request.
func (c *Client) Comment(ctx context.Context, number int, body string) error {
	_, err := c.cmdExec.Execute(ctx, "", "gh", "api",
		fmt.Sprintf("repos/%s/issues/%d/comments", c.repo, number),
		"-f", "body="+body)
	if err != nil {
		return fmt.Errorf("failed to comment on pr %d: %w: %w", number, nixprerrors.ErrGitHubOperation, err)
	}

	c.logger.Info().Int("pr", number).Msg("posted result comment")
	return nil
}

// UploadGist uploads the given files as a secret gist and returns its URL.
// Callers treat failures (e.g. rate limiting) as best-effort.
func (c *Client) UploadGist(ctx context.Context, description string, files map[string]string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no files to upload: %w", nixprerrors.ErrEmptyValue)
	}

	// gh gist create takes file paths, so stage the contents in a temp dir.
	dir, err := os.MkdirTemp("", "nixpr-gist-")
	if err != nil {
		return "", fmt.Errorf("%w: %w", nixprerrors.ErrGitHubOperation, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	args := []string{"gist", "create", "--desc", description}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return "", fmt.Errorf("%w: %w", nixprerrors.ErrGitHubOperation, err)
		}
		args = append(args, path)
	}

	out, err := c.cmdExec.Execute(ctx, "", "gh", args...)
	if err != nil {
		return "", fmt.Errorf("gist upload failed: %w: %w", nixprerrors.ErrGitHubOperation, err)
	}

	url := strings.TrimSpace(string(out))
	c.logger.Info().Str("url", url).Msg("uploaded failure logs gist")
	return url, nil
}

// defaultCommandExecutor implements CommandExecutor using os/exec.
type defaultCommandExecutor struct{}

// Execute runs a command and returns its stdout. Stderr is included in the
// error for debugging.
func (e *defaultCommandExecutor) Execute(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s %s failed: %s: %w", name, args[0], strings.TrimSpace(stderr.String()), err)
		}
		return nil, fmt.Errorf("%s %s failed: %w", name, args[0], err)
	}

	return []byte(stdout.String()), nil
}
