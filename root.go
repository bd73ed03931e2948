package main

import (
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by all commands.
type options struct {
	configPath string
	dryRun     bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "tweetcaster",
		Short:         "Post generated messages across multiple accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Log posts instead of sending them")

	rootCmd.AddCommand(newPostCommand(opts))
	rootCmd.AddCommand(newRetryCommand(opts))
	rootCmd.AddCommand(newStatsCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newAccountsCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))

	return rootCmd
}
