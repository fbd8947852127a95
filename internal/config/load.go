package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/nixpr/nixpr/internal/constants"
	"github.com/nixpr/nixpr/internal/errors"
)

// newViperInstance creates a Viper instance with standard nixpr settings:
// defaults, environment prefix (NIXPR_) and key replacer.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NIXPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers the built-in defaults with viper.
func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("nix.system", def.Nix.System)
	v.SetDefault("nix.build_args", def.Nix.BuildArgs)
	v.SetDefault("nix.build_timeout", def.Nix.BuildTimeout)
	v.SetDefault("git.remote", def.Git.Remote)
	v.SetDefault("git.base_branch", def.Git.BaseBranch)
	v.SetDefault("github.repo", def.GitHub.Repo)
	v.SetDefault("github.use_eval_gist", def.GitHub.UseEvalGist)
	v.SetDefault("cache.root", def.Cache.Root)
	v.SetDefault("cache.inventory", def.Cache.Inventory)
}

// viperDecoderOption enables string-to-duration and string-to-slice
// conversions during unmarshal.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// isConfigNotFoundError returns true if the error is a viper config file
// not found error. Missing config files are expected, not errors.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound) || os.IsNotExist(err)
}

// Load reads configuration from all available sources with proper
// precedence. checkoutPath is where the checkout-local config is searched;
// it may be empty.
func Load(checkoutPath string) (*Config, error) {
	v := newViperInstance()

	// Global config first (lower precedence).
	if path, ok := globalConfigPath(); ok {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read global config")
		}
	}

	// Checkout config merges over global.
	if checkoutPath != "" {
		path := filepath.Join(checkoutPath, constants.ProjectConfigName)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, errors.Wrap(err, "failed to read checkout config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// globalConfigPath returns the global config file path if it exists.
func globalConfigPath() (string, bool) {
	home, err := HomeDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(home, constants.GlobalConfigName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
