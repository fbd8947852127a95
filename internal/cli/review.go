package cli

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/nixpr/nixpr/internal/config"
	"github.com/nixpr/nixpr/internal/errors"
	"github.com/nixpr/nixpr/internal/filter"
	"github.com/nixpr/nixpr/internal/git"
	"github.com/nixpr/nixpr/internal/github"
	"github.com/nixpr/nixpr/internal/session"
	"github.com/nixpr/nixpr/internal/signal"
)

// runReview wires a session from configuration and flags and reviews the
// given targets. It is the shared body of the pr, rev and wip commands.
func runReview(cmd *cobra.Command, global *GlobalFlags, flags *ReviewFlags, targets []session.Target) error {
	logger := GetLogger()

	// Ctrl+C cancels the session context instead of killing the process,
	// so the deferred workspace release still runs (itself guarded against
	// a second interrupt).
	sigHandler := signal.NewHandler(cmd.Context())
	defer sigHandler.Stop()
	ctx := sigHandler.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to determine working directory")
	}
	repoPath, err := git.DetectRepoRoot(ctx, cwd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(repoPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, flags)

	var failed bool
	sess, err := session.New(session.Options{
		Config:   cfg,
		RepoPath: repoPath,
		Criteria: filter.Criteria{
			IncludeNames:   flags.Packages,
			IncludeRegexes: flags.PackageRegexes,
			ExcludeNames:   flags.SkipPackages,
			ExcludeRegexes: flags.SkipPackageRegexes,
		},
		NoShell: flags.NoShell,
		Logger:  logger,
		OnResult: func(ctx context.Context, res *session.Result) error {
			if res.Report.HasFailures() {
				failed = true
			}
			if err := displayResult(cmd, global, res); err != nil {
				return err
			}
			if flags.PostResult && res.Target.PR != 0 {
				return postResult(ctx, cfg, res)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}

	if err := sess.Run(ctx, targets); err != nil {
		if stderrors.Is(err, errors.ErrEmptyDiff) {
			logger.Info().Msg("working tree has no changes, nothing to review")
			return nil
		}
		if stderrors.Is(err, context.Canceled) {
			logger.Warn().Msg("review interrupted")
		}
		return err
	}

	// Without a shell there is no interactive inspection step, so build
	// failures must surface in the exit code.
	if flags.NoShell && failed {
		return errors.ErrAttrsFailed
	}
	return nil
}

// applyFlagOverrides layers command-line flags over the merged
// configuration. Flags always win.
func applyFlagOverrides(cfg *config.Config, flags *ReviewFlags) {
	if flags.System != "" {
		cfg.Nix.System = flags.System
	}
	if len(flags.BuildArgs) > 0 {
		cfg.Nix.BuildArgs = append(cfg.Nix.BuildArgs, flags.BuildArgs...)
	}
	if flags.NoCache {
		cfg.Cache.Inventory = false
	}
}

// postResult posts the markdown report as a comment on the reviewed PR,
// after an interactive confirmation.
func postResult(ctx context.Context, cfg *config.Config, res *session.Result) error {
	ok, err := confirmPost(res.Target.PR)
	if err != nil {
		return err
	}
	logger := GetLogger()
	if !ok {
		logger.Info().Msg("not posting the result")
		return nil
	}

	client := github.NewClient(cfg.GitHub.Repo, github.WithLogger(logger))
	if err := client.Comment(ctx, res.Target.PR, res.Report.Markdown()); err != nil {
		return err
	}
	logger.Info().Int("pr", res.Target.PR).Msg("posted review result")
	return nil
}
