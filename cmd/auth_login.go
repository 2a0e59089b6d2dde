package cmd

import (
	"github.com/spf13/cobra"
)

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser",
	Long: `Signs in to the identity provider using the OAuth 2.0 Authorization Code flow.

taskctl looks for client credentials in this order:
  1. clientId/clientSecret from config.yaml or TASKCTL_CLIENT_ID/TASKCTL_CLIENT_SECRET
  2. a client previously registered for the domain
  3. dynamic client registration with the provider

If the provider does not support registration you are asked to enter client
credentials, which are saved for later logins.

A local listener on the configured callback port receives the browser
redirect. Use --no-browser on machines without a browser and open the
printed URL elsewhere.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Print the sign-in URL instead of opening a browser")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	adapter, err := newAuthAdapter(cmd)
	if err != nil {
		return err
	}

	result, err := adapter.Login(cmd.Context())
	if err != nil {
		return err
	}

	authPrint(cmd, "Client: %s (%s, %s)\n", result.ClientID, result.ClientSource, result.Mode)
	authPrint(cmd, "Token expires: %s\n", result.Token.ExpiresAt().Local().Format("2006-01-02 15:04:05 MST"))
	return nil
}
