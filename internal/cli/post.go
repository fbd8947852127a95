package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nixpr/nixpr/internal/config"
	"github.com/nixpr/nixpr/internal/constants"
	"github.com/nixpr/nixpr/internal/errors"
	"github.com/nixpr/nixpr/internal/git"
	"github.com/nixpr/nixpr/internal/github"
	"github.com/nixpr/nixpr/internal/workspace"
)

// AddPostCommand adds the post command to the root command.
func AddPostCommand(root *cobra.Command) {
	var withLogs bool

	cmd := &cobra.Command{
		Use:   "post <number>",
		Short: "Post a preserved review result to its pull request",
		Long: `Post the markdown report from an earlier "nixpr pr" run as a comment on
the pull request. With --with-logs the per-attribute build logs of the
failed packages are uploaded as a gist and linked from the comment.`,
		Example: `  nixpr post 12345
  nixpr post 12345 --with-logs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil || number <= 0 {
				return errors.Wrapf(errors.ErrEmptyValue, "invalid argument %q: pull request numbers must be positive integers", args[0])
			}
			return runPost(cmd, number, withLogs)
		},
	}

	cmd.Flags().BoolVar(&withLogs, "with-logs", false, "upload failed build logs as a gist and link them")

	root.AddCommand(cmd)
}

func runPost(cmd *cobra.Command, number int, withLogs bool) error {
	ctx := cmd.Context()
	logger := GetLogger()

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

	manager, err := workspace.NewManager(repoPath, cfg.Cache.Root, logger)
	if err != nil {
		return err
	}

	reportDir := filepath.Join(manager.CacheRoot(), constants.ReportDirName, fmt.Sprintf("pr-%d", number))
	body, err := os.ReadFile(filepath.Join(reportDir, constants.ReportMarkdownName))
	if err != nil {
		return errors.Wrapf(errors.ErrReportNotFound, "no preserved report for pr %d (run \"nixpr pr %d\" first): %v", number, number, err)
	}

	comment := string(body)
	client := github.NewClient(cfg.GitHub.Repo, github.WithLogger(logger))

	if withLogs {
		gistURL, gistErr := uploadFailureLogs(cmd, client, number, reportDir)
		switch {
		case gistErr != nil:
			logger.Warn().Err(gistErr).Msg("failed to upload build logs, posting without them")
		case gistURL != "":
			comment += "\n\nFull build logs: " + gistURL + "\n"
		}
	}

	ok, err := confirmPost(number)
	if err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return errors.ErrOperationCanceled
		}
		return err
	}
	if !ok {
		logger.Info().Msg("not posting the result")
		return nil
	}

	if err := client.Comment(ctx, number, comment); err != nil {
		return err
	}
	logger.Info().Int("pr", number).Msg("posted review result")
	return nil
}

// uploadFailureLogs bundles the preserved per-attribute build logs into a
// gist. Returns an empty URL when there are no logs to upload.
func uploadFailureLogs(cmd *cobra.Command, client *github.Client, number int, reportDir string) (string, error) {
	logsDir := filepath.Join(reportDir, constants.BuildLogsDirName)
	entries, err := os.ReadDir(logsDir)
	if err != nil || len(entries) == 0 {
		return "", nil
	}

	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, readErr := os.ReadFile(filepath.Join(logsDir, entry.Name()))
		if readErr != nil {
			continue
		}
		files[entry.Name()] = string(data)
	}
	if len(files) == 0 {
		return "", nil
	}

	return client.UploadGist(cmd.Context(), fmt.Sprintf("nixpr build logs for PR #%d", number), files)
}
