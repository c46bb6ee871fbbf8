package main

import (
	"github.com/spf13/cobra"

	"github.com/steamfiles/vdf/internal/logging"
)

func newRootCommand() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:           "vdf",
		Short:         "Inspect and convert Steam VDF files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbosity)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")

	rootCmd.AddCommand(newCatCommand())
	rootCmd.AddCommand(newAppinfoCommand())

	return rootCmd
}
