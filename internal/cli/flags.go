// Package cli provides the command-line interface for nixpr.
package cli

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nixpr/nixpr/internal/errors"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitError indicates a general error, including build failures in
	// non-interactive mode.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input.
	ExitInvalidInput = 2
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = "text"
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = "json"
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
}

// ReviewFlags holds flags shared by the review commands (pr, rev, wip).
type ReviewFlags struct {
	// System overrides the target platform identifier.
	System string
	// NoShell skips the interactive shell into successful results. Build
	// failures then become a non-zero exit.
	NoShell bool
	// Packages are exact attribute names to keep from the changed set.
	Packages []string
	// PackageRegexes are patterns whose matches are added to the kept set.
	PackageRegexes []string
	// SkipPackages are exact attribute names removed from the kept set.
	SkipPackages []string
	// SkipPackageRegexes are patterns whose matches are removed.
	SkipPackageRegexes []string
	// BuildArgs are extra arguments passed to every build invocation.
	BuildArgs []string
	// NoCache disables the advisory package inventory cache.
	NoCache bool
	// PostResult posts the markdown report as a PR comment after review.
	// Only meaningful for the pr command.
	PostResult bool
}

// AddGlobalFlags adds global flags to a command.
// These flags are available to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// AddReviewFlags adds the shared review flags to a command.
func AddReviewFlags(cmd *cobra.Command, flags *ReviewFlags) {
	cmd.Flags().StringVar(&flags.System, "system", "", "target platform, e.g. x86_64-linux (default: host)")
	cmd.Flags().BoolVar(&flags.NoShell, "no-shell", false, "skip the interactive shell; failures exit non-zero")
	cmd.Flags().StringSliceVarP(&flags.Packages, "package", "p", nil, "review only this attribute (repeatable)")
	cmd.Flags().StringSliceVar(&flags.PackageRegexes, "package-regex", nil, "also review attributes matching this pattern (repeatable)")
	cmd.Flags().StringSliceVar(&flags.SkipPackages, "skip-package", nil, "drop this attribute from the review (repeatable)")
	cmd.Flags().StringSliceVar(&flags.SkipPackageRegexes, "skip-package-regex", nil, "drop attributes matching this pattern (repeatable)")
	cmd.Flags().StringSliceVar(&flags.BuildArgs, "build-arg", nil, "extra argument for the build invocation (repeatable)")
	cmd.Flags().BoolVar(&flags.NoCache, "no-cache", false, "disable the package inventory cache")
}

// BindGlobalFlags binds global flags to Viper for configuration file and
// environment variable support. The NIXPR_ prefix is used for environment
// variables (e.g., NIXPR_OUTPUT, NIXPR_VERBOSE).
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Use Root().PersistentFlags() to find flags defined on the root command,
	// even when called from a subcommand's PersistentPreRunE.
	rootFlags := cmd.Root().PersistentFlags()

	if err := v.BindPFlag("output", rootFlags.Lookup("output")); err != nil {
		return err
	}
	if err := v.BindPFlag("verbose", rootFlags.Lookup("verbose")); err != nil {
		return err
	}
	if err := v.BindPFlag("quiet", rootFlags.Lookup("quiet")); err != nil {
		return err
	}

	v.SetEnvPrefix("NIXPR")
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	for _, valid := range ValidOutputFormats() {
		if format == valid {
			return true
		}
	}
	return false
}

// ExitCodeForError returns the appropriate exit code for the given error.
// Returns ExitSuccess (0) for nil errors, ExitInvalidInput (2) for user
// input errors (invalid flags, bad arguments, unknown attributes), and
// ExitError (1) for all other errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if stderrors.Is(err, errors.ErrInvalidOutputFormat) ||
		stderrors.Is(err, errors.ErrUnknownAttribute) ||
		stderrors.Is(err, errors.ErrInvalidRegex) {
		return ExitInvalidInput
	}

	// Cobra flag parsing errors (mutually exclusive flags, unknown flags, etc.)
	if isInvalidInputError(err.Error()) {
		return ExitInvalidInput
	}

	return ExitError
}

// isInvalidInputError checks if an error message indicates invalid user input.
// This catches Cobra's built-in flag validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
