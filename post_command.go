package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tweetcaster/classify"
	"tweetcaster/pkg/broadcast"
	"tweetcaster/poster"
)

func newPostCommand(opts *options) *cobra.Command {
	var template string
	var text string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Generate a message and post it from every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false, true)
			if err != nil {
				return err
			}
			defer a.close()

			clients := a.registry.Clients()
			if len(clients) == 0 {
				return fmt.Errorf("no accounts loaded from %s", a.cfg.Accounts.CredentialsFile)
			}

			message := strings.TrimSpace(text)
			if message == "" {
				message, err = a.compose(ctx, template)
				if err != nil {
					return fmt.Errorf("generate message: %w", err)
				}
			}
			a.logger.Info("Posting message", "length", len([]rune(message)), "accounts", len(clients))

			results := a.poster.PostToAll(ctx, message, clients)
			printResults(cmd.OutOrStdout(), message, results)

			if ok, _ := poster.Tally(results); ok == 0 {
				return fmt.Errorf("no account posted successfully")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Theme passed to the text generator")
	cmd.Flags().StringVar(&text, "text", "", "Post this text instead of generating one")
	return cmd
}

func printResults(out io.Writer, message string, results []broadcast.PostResult) {
	fmt.Fprintf(out, "Message: %s\n", message)
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(out, "  account %d: posted %s\n", r.AccountNumber, r.TweetID)
			continue
		}
		var err error
		if r.Err != nil {
			err = r.Err
		}
		fmt.Fprintf(out, "  account %d: %s\n", r.AccountNumber, classify.Explain(err, r.AccountNumber))
	}
	ok, failed := poster.Tally(results)
	fmt.Fprintf(out, "Succeeded: %d, failed: %d\n", ok, failed)
}
