package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beekhof/gcal/internal/config"
	"github.com/beekhof/gcal/internal/logging"
)

// newLoginCmd authorizes gcal and stores the token, replacing any old one.
func newLoginCmd(root *rootOptions) *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize read-only access to Google Calendar",
		Long: `Runs the OAuth consent flow and saves the token.

By default a local server on 127.0.0.1:8080 receives the redirect, so that
address must be listed among the client's authorized redirect URIs. With
--no-browser the authorization code is pasted on standard input instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cmd.ErrOrStderr(), root.debug)
			defer logger.Sync()

			cfg, err := loadConfig(root, config.Overrides{})
			if err != nil {
				return err
			}
			flow, err := newFlow(cfg, cmd.ErrOrStderr(), logger)
			if err != nil {
				return err
			}
			if noBrowser {
				flow.In = os.Stdin
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Authenticating Google Calendar account...")
			if err := flow.Login(cmd.Context()); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.TokenPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Paste the authorization code instead of waiting for the redirect")
	return cmd
}
