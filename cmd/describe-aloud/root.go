package main

import (
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile  string
	logLevel string
	mode     string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "describe-aloud",
		Short:         "Describe images and read the description aloud",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to .env file (default: .env)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.mode, "mode", "", "Vision mode: azure or dual")

	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newDescribeCommand(flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
