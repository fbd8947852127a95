package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nixpr/nixpr/internal/errors"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger stores the initialized logger for use by subcommands.
// Set during PersistentPreRunE; access via GetLogger.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// GetLogger returns the initialized logger for use by subcommands.
//
// This function must only be called after the root command's
// PersistentPreRunE has executed; before that it returns a zero-value
// logger that discards all output. Safe for concurrent use.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// newRootCmd creates and returns the root command for the nixpr CLI.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "nixpr",
		Short: "nixpr - build review for nixpkgs changes",
		Long: `nixpr reviews nixpkgs changes by building exactly the packages a change
affects. It checks out the change in an isolated worktree, diffs the
package inventory before and after, builds the changed subset with a
keep-going batch build and reports every attribute's outcome.

Review targets:
  pr    one or more pull requests, fetched and merged into their base
  rev   a commit, reviewed against its parent
  wip   the uncommitted changes in your checkout`,
		Version: formatVersion(info),
		// Run displays help when invoked without subcommands, which still
		// exercises PersistentPreRunE for flag validation.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}

			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}

			globalLoggerMu.Lock()
			globalLogger = InitLogger(flags.Verbose, flags.Quiet)
			globalLoggerMu.Unlock()

			return nil
		},
		// We print our own error messages.
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, flags)

	AddInitCommand(cmd)
	AddPRCommand(cmd, flags)
	AddRevCommand(cmd, flags)
	AddWipCommand(cmd, flags)
	AddPostCommand(cmd)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info)
	return cmd.ExecuteContext(ctx)
}
