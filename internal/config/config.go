// Package config provides configuration management for nixpr with layered
// precedence.
//
// Configuration sources are loaded in the following order (highest
// precedence first):
//  1. CLI flags
//  2. Environment variables (NIXPR_* prefix)
//  3. Checkout config (.nixpr.yaml in the nixpkgs checkout)
//  4. Global config (~/.nixpr/config.yaml)
//  5. Built-in defaults
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import other internal packages.
package config

import (
	"runtime"
	"time"
)

// Config is the root configuration structure for nixpr.
type Config struct {
	// Nix contains settings for the evaluation and build engine.
	Nix NixConfig `yaml:"nix" mapstructure:"nix"`

	// Git contains settings for the package tree repository.
	Git GitConfig `yaml:"git" mapstructure:"git"`

	// GitHub contains settings for the code-hosting integration.
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`

	// Cache contains settings for on-disk state.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// NixConfig contains settings for the evaluation and build engine.
type NixConfig struct {
	// System is the target platform identifier, e.g. "x86_64-linux".
	// Default: derived from the host.
	System string `yaml:"system" mapstructure:"system"`

	// BuildArgs are passed through to every build invocation verbatim.
	BuildArgs []string `yaml:"build_args" mapstructure:"build_args"`

	// BuildTimeout bounds one batch build invocation. Zero disables the
	// bound. Default: 0.
	BuildTimeout time.Duration `yaml:"build_timeout" mapstructure:"build_timeout"`
}

// GitConfig contains settings for the package tree repository.
type GitConfig struct {
	// Remote is the fetch remote for PR refs.
	// Default: "https://github.com/NixOS/nixpkgs".
	Remote string `yaml:"remote" mapstructure:"remote"`

	// BaseBranch is the branch PRs merge into. Default: "master".
	BaseBranch string `yaml:"base_branch" mapstructure:"base_branch"`
}

// GitHubConfig contains settings for the code-hosting integration.
type GitHubConfig struct {
	// Repo is the owner/name slug of the package collection.
	// Default: "NixOS/nixpkgs".
	Repo string `yaml:"repo" mapstructure:"repo"`

	// UseEvalGist enables skipping the before-snapshot when CI has
	// published a changed-attribute gist for the PR head. Default: true.
	UseEvalGist bool `yaml:"use_eval_gist" mapstructure:"use_eval_gist"`
}

// CacheConfig contains settings for on-disk state.
type CacheConfig struct {
	// Root overrides the workspace cache root. Default: the user cache
	// directory.
	Root string `yaml:"root" mapstructure:"root"`

	// Inventory enables the advisory compressed inventory cache.
	// Default: true.
	Inventory bool `yaml:"inventory" mapstructure:"inventory"`
}

// HostSystem derives the nix platform identifier for the host.
func HostSystem() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	}
	return arch + "-" + runtime.GOOS
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Nix: NixConfig{
			System: HostSystem(),
		},
		Git: GitConfig{
			Remote:     "https://github.com/NixOS/nixpkgs",
			BaseBranch: "master",
		},
		GitHub: GitHubConfig{
			Repo:        "NixOS/nixpkgs",
			UseEvalGist: true,
		},
		Cache: CacheConfig{
			Inventory: true,
		},
	}
}
