package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nixpr/nixpr/internal/errors"
	"github.com/nixpr/nixpr/internal/session"
)

// AddPRCommand adds the pr command to the root command.
func AddPRCommand(root *cobra.Command, global *GlobalFlags) {
	flags := &ReviewFlags{}

	cmd := &cobra.Command{
		Use:   "pr <number> [<number>...]",
		Short: "Review one or more pull requests",
		Long: `Review pull requests by building the packages they change.

Each PR is fetched, merged into its base branch in an isolated worktree
and the changed packages are built. When CI has already published the
evaluated change set for the PR head, the local inventory diff is skipped.

Multiple PRs are reviewed sequentially; a failing PR does not stop the
batch.`,
		Example: `  nixpr pr 12345
  nixpr pr 12345 67890 --no-shell
  nixpr pr 12345 -p hello --post-result`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]session.Target, 0, len(args))
			for _, arg := range args {
				number, err := strconv.Atoi(arg)
				if err != nil || number <= 0 {
					return errors.Wrapf(errors.ErrEmptyValue, "invalid argument %q: pull request numbers must be positive integers", arg)
				}
				targets = append(targets, session.Target{PR: number})
			}
			return runReview(cmd, global, flags, targets)
		},
	}

	AddReviewFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.PostResult, "post-result", false, "post the report as a PR comment after review")

	root.AddCommand(cmd)
}
