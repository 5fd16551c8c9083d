package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	var validateOnly bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration the node would run with: the defaults overlaid with
the file given by --config. With --validate only the validation result is
reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				if validateOnly {
					return err
				}
				cmd.PrintErrf("WARNING: configuration is invalid:\n%s\n", err)
			}
			if validateOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
				return err
			}

			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&validateOnly, "validate", false, "Only validate the configuration")
	return cmd
}
