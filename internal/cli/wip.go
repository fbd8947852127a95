package cli

import (
	"github.com/spf13/cobra"

	"github.com/nixpr/nixpr/internal/session"
)

// AddWipCommand adds the wip command to the root command.
func AddWipCommand(root *cobra.Command, global *GlobalFlags) {
	flags := &ReviewFlags{}

	cmd := &cobra.Command{
		Use:   "wip",
		Short: "Review the uncommitted changes in your checkout",
		Long: `Review the uncommitted local diff by applying it to a clean worktree of
HEAD and building the packages it changes. Exits cleanly when the
working tree has no changes.`,
		Example: `  nixpr wip
  nixpr wip -p hello --no-shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReview(cmd, global, flags, []session.Target{{Wip: true}})
		},
	}

	AddReviewFlags(cmd, flags)

	root.AddCommand(cmd)
}
