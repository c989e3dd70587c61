package app

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/datalab/internal/config"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show datalab configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(o))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default configuration as YAML",
		Example: `  datalab config init
  datalab config init ~/.datalab/config.yaml --force`,
		Args: cobra.MaximumNArgs(1),
		// 壊れた設定ファイルがあっても init は動く
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "datalab.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := yaml.Marshal(o.cfg)
			if err != nil {
				return errors.Wrap(err, "marshal yaml")
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
