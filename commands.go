package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tweetcaster/config"
	"tweetcaster/poster"
	"tweetcaster/server"
)

func newRetryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Replay queued failed posts once, then clear the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false, true)
			if err != nil {
				return err
			}
			defer a.close()

			retried, report := a.poster.RetryFailed(ctx, a.registry)
			out := cmd.OutOrStdout()
			if !retried {
				fmt.Fprintln(out, "No failed posts queued")
				return nil
			}
			fmt.Fprintf(out, "Queued: %d, attempted: %d, succeeded: %d, skipped: %d\n",
				report.Queued, report.Attempted, report.Succeeded, report.Skipped)
			return nil
		},
	}
}

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-account results from the posting history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false, false)
			if err != nil {
				return err
			}
			defer a.close()

			history, err := a.history.Load(ctx)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(history) == 0 {
				fmt.Fprintln(out, "No posting history")
				return nil
			}
			fmt.Fprintf(out, "Runs recorded: %d\n", len(history))
			fmt.Fprintln(out, renderStats(poster.Summarize(history)))
			return nil
		},
	}
}

func renderStats(stats []poster.AccountStats) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		last := "-"
		switch {
		case s.LastError != "":
			last = s.LastError
		case s.LastTweetID != "":
			last = s.LastTweetID
		}
		rows = append(rows, []string{
			strconv.Itoa(s.AccountNumber),
			strconv.Itoa(s.Attempts),
			strconv.Itoa(s.Succeeded),
			fmt.Sprintf("%.0f%%", s.SuccessRate()*100),
			s.LastPostedAt.Format(time.DateTime),
			last,
			s.NextDelay.String(),
		})
	}
	return renderTable(
		[]string{"Account", "Attempts", "Succeeded", "Rate", "Last Run", "Last Result", "Next Delay"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight},
	)
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP endpoints that trigger posting and retry passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, true, true)
			if err != nil {
				return err
			}
			defer a.close()

			srv := server.New(&server.Config{
				Poster:   a.poster,
				Registry: a.registry,
				History:  a.history,
				Compose:  a.compose,
				Logger:   a.logger,
			})
			return srv.ListenAndServe(ctx, a.cfg.Server.Port)
		},
	}
}

func newAccountsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the accounts loaded from the credentials file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, false, false)
			if err != nil {
				return err
			}
			defer a.close()

			clients := a.registry.Clients()
			out := cmd.OutOrStdout()
			if len(clients) == 0 {
				fmt.Fprintf(out, "No accounts loaded from %s\n", a.cfg.Accounts.CredentialsFile)
				return nil
			}
			rows := make([][]string, 0, len(clients))
			for _, c := range clients {
				rows = append(rows, []string{
					strconv.Itoa(c.Number()),
					maskSecret(c.Account.AppKey),
					maskSecret(c.Account.AccessToken),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Account", "App Key", "Access Token"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

// maskSecret keeps only the last four characters of s.
func maskSecret(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

func newConfigCommand(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(opts))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = "tweetcaster.toml"
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit required_tags and export OPENAI_API_KEY before posting.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration valid")
			if cfg.Storage.Bucket != "" {
				fmt.Fprintf(out, "Storage: gs://%s\n", cfg.Storage.Bucket)
			} else {
				fmt.Fprintf(out, "Storage: %s\n", cfg.Storage.LocalPath)
			}
			fmt.Fprintf(out, "Credentials: %s\n", cfg.Accounts.CredentialsFile)
			return nil
		},
	}
}
