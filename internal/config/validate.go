package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nixpr/nixpr/internal/errors"
)

// systemRe matches nix platform identifiers like "x86_64-linux".
var systemRe = regexp.MustCompile(`^[a-z0-9_]+-[a-z]+$`)

// repoSlugRe matches owner/name repository slugs.
var repoSlugRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Validate checks a loaded configuration for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if !systemRe.MatchString(cfg.Nix.System) {
		return fmt.Errorf("%w: system '%s' is not a platform identifier", errors.ErrConfigInvalidNix, cfg.Nix.System)
	}
	if cfg.Nix.BuildTimeout < 0 {
		return fmt.Errorf("%w: build_timeout must not be negative", errors.ErrConfigInvalidNix)
	}

	if strings.TrimSpace(cfg.Git.Remote) == "" {
		return fmt.Errorf("%w: git remote cannot be empty", errors.ErrConfigInvalidNix)
	}

	if !repoSlugRe.MatchString(cfg.GitHub.Repo) {
		return fmt.Errorf("%w: repo '%s' is not an owner/name slug", errors.ErrConfigInvalidGitHub, cfg.GitHub.Repo)
	}

	return nil
}
