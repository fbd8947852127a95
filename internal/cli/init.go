package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nixpr/nixpr/internal/config"
	"github.com/nixpr/nixpr/internal/constants"
	"github.com/nixpr/nixpr/internal/errors"
)

// AddInitCommand adds the init command to the root command.
func AddInitCommand(root *cobra.Command) {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default global configuration",
		Long: `Write the default configuration to ~/.nixpr/config.yaml so it can be
edited. Settings in a checkout-local .nixpr.yaml override the global
file, and command-line flags override both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := config.HomeDir()
			if err != nil {
				return err
			}

			path := filepath.Join(home, constants.GlobalConfigName)
			if !force {
				if _, err := os.Stat(path); err == nil {
					return errors.Wrapf(errors.ErrConfigExists, "%s exists (use --force to overwrite)", path)
				}
			}

			if err := os.MkdirAll(home, constants.DirPerm); err != nil {
				return errors.Wrap(err, "failed to create nixpr home directory")
			}

			data, err := yaml.Marshal(config.Default())
			if err != nil {
				return errors.Wrap(err, "failed to encode default configuration")
			}
			if err := os.WriteFile(path, data, constants.FilePerm); err != nil {
				return errors.Wrap(err, "failed to write configuration")
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration")

	root.AddCommand(cmd)
}
