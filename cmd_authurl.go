package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the authorization URL",
		Long: `Print the URL of the Google consent page. After granting access the browser
is redirected to the configured redirect URL with a code parameter; pass that
code to any other command with --code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := oauthSettings()
			fmt.Fprintln(cmd.OutOrStdout(), s.AuthCodeURL(uuid.NewString()))

			return nil
		},
	}
}
