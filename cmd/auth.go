package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taskctl/internal/cli"
	"taskctl/internal/config"
)

var (
	authQuiet        bool
	authNoBrowser    bool
	authForgetClient bool
	authYes          bool
)

// configureAuthAdapter lets tests point the adapter at a fake provider.
var configureAuthAdapter = func(opts *cli.AuthAdapterOptions) {}

// authCmd is the parent command for authentication operations.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication with the identity provider",
	Long: `Manage OAuth authentication with your organization's identity provider.

taskctl registers itself as a client with the provider when it can, opens
your browser for sign-in, and stores the resulting access token locally.

Examples:
  taskctl auth login --domain acme.example
  taskctl auth status
  taskctl auth token
  taskctl auth whoami
  taskctl auth logout`,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Long: `Removes the stored access token.

With --forget-client the saved client registration for the domain is removed
as well, so the next login registers a new client.`,
	RunE: runAuthLogout,
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the access token",
	Long: `Prints the stored access token for use as a bearer credential:

  curl -H "Authorization: Bearer $(taskctl auth token)" https://tasks.example/api

Exits with code 2 when no valid token is available.`,
	Args: cobra.NoArgs,
	RunE: runAuthToken,
}

var authWhoAmICmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runAuthWhoAmI,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")

	authLogoutCmd.Flags().BoolVar(&authForgetClient, "forget-client", false, "Also remove the saved client registration")
	authLogoutCmd.Flags().BoolVarP(&authYes, "yes", "y", false, "Skip confirmation prompt for --forget-client")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authTokenCmd)
	authCmd.AddCommand(authWhoAmICmd)
}

// loadConfig resolves configuration from file, environment and flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if flagDomain != "" {
		cfg.Domain = flagDomain
	}
	return cfg, nil
}

// newAuthAdapter builds the adapter shared by all auth commands.
func newAuthAdapter(cmd *cobra.Command) (*cli.AuthAdapter, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := cli.AuthAdapterOptions{
		Config:    cfg,
		Quiet:     authQuiet,
		NoBrowser: authNoBrowser,
		Out:       cmd.ErrOrStderr(),
		Prompter: cli.ReadlinePrompter{
			Stdin:  os.Stdin,
			Stdout: cmd.ErrOrStderr(),
		},
	}
	configureAuthAdapter(&opts)

	return cli.NewAuthAdapter(opts), nil
}

// authPrint prints a message unless quiet mode is enabled.
func authPrint(cmd *cobra.Command, format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

// authPrintln prints a line unless quiet mode is enabled.
func authPrintln(cmd *cobra.Command, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintln(cmd.OutOrStdout(), args...)
	}
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	adapter, err := newAuthAdapter(cmd)
	if err != nil {
		return err
	}

	if authForgetClient && !authYes {
		if adapter.Domain() == "" {
			return fmt.Errorf("--forget-client needs a domain: pass --domain or set TASKCTL_DOMAIN")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "This will remove the saved client registration for %s. Continue? [y/N]: ", adapter.Domain())
		reader := bufio.NewReader(cmd.InOrStdin())
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			authPrintln(cmd, "Aborted.")
			return nil
		}
	}

	if err := adapter.Logout(); err != nil {
		return err
	}
	authPrintln(cmd, "Logged out.")

	if authForgetClient {
		if err := adapter.ForgetClient(); err != nil {
			return fmt.Errorf("failed to remove client registration: %w", err)
		}
		authPrint(cmd, "Removed client registration for %s.\n", adapter.Domain())
	}
	return nil
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	adapter, err := newAuthAdapter(cmd)
	if err != nil {
		return err
	}

	token, err := adapter.GetBearerToken()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runAuthWhoAmI(cmd *cobra.Command, args []string) error {
	adapter, err := newAuthAdapter(cmd)
	if err != nil {
		return err
	}

	identity, err := adapter.WhoAmI(cmd.Context())
	if err != nil {
		return err
	}

	tw := cli.NewPlainTableWriter(cmd.OutOrStdout(), "field", "value")
	tw.SetNoHeaders(true)
	tw.AppendRow("Domain:", identity.Domain)
	tw.AppendRow("Subject:", valueOrDash(identity.Subject))
	tw.AppendRow("Name:", valueOrDash(identity.Name))
	tw.AppendRow("Email:", valueOrDash(identity.Email))
	if identity.Issuer != "" {
		tw.AppendRow("Issuer:", identity.Issuer)
	}
	if identity.FromUserInfo {
		tw.AppendRow("Source:", "userinfo")
	} else {
		tw.AppendRow("Source:", "id_token (unverified)")
	}
	tw.Render()
	return nil
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
