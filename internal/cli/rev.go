package cli

import (
	"github.com/spf13/cobra"

	"github.com/nixpr/nixpr/internal/session"
)

// AddRevCommand adds the rev command to the root command.
func AddRevCommand(root *cobra.Command, global *GlobalFlags) {
	flags := &ReviewFlags{}

	cmd := &cobra.Command{
		Use:   "rev <commit>",
		Short: "Review a commit against its parent",
		Long: `Review a single commit by building the packages it changes relative to
its first parent. The commit may be given as any revision expression
your checkout can resolve (hash, branch, tag, HEAD~2, ...).`,
		Example: `  nixpr rev HEAD
  nixpr rev abc123f --system aarch64-linux`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, global, flags, []session.Target{{Rev: args[0]}})
		},
	}

	AddReviewFlags(cmd, flags)

	root.AddCommand(cmd)
}
