package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"taskctl/internal/oauth"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the local authentication state: whether a valid token is stored,
when it expires, and which client is used for the domain.

Status only inspects local state and never contacts the provider.

Examples:
  taskctl auth status
  taskctl auth status --domain acme.example`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	adapter, err := newAuthAdapter(cmd)
	if err != nil {
		return err
	}

	status := adapter.Status()

	authPrintln(cmd, "Identity Provider")
	authPrint(cmd, "  Domain:    %s\n", valueOrDash(status.Domain))
	authPrint(cmd, "  Status:    %s\n", formatAuthStatus(status))

	if status.TokenDomain != "" {
		if status.TokenDomain != status.Domain && status.Domain != "" {
			authPrint(cmd, "  Token for: %s\n", status.TokenDomain)
		}
		authPrint(cmd, "  Expires:   %s\n", formatExpiry(status.ExpiresAt, time.Now()))
		if status.HasIDToken {
			authPrint(cmd, "  ID token:  %s\n", text.FgGreen.Sprint("Present"))
		}
	}

	if status.ClientID != "" {
		authPrint(cmd, "  Client ID: %s\n", status.ClientID)
	} else {
		authPrint(cmd, "  Client ID: %s\n", text.FgHiBlack.Sprint("none (registered on next login)"))
	}

	authPrintln(cmd)
	authPrint(cmd, "  Token file:   %s\n", status.TokenPath)
	authPrint(cmd, "  Client file:  %s\n", status.RegistryPath)
	return nil
}

func formatAuthStatus(status *oauth.Status) string {
	switch {
	case status.Authenticated:
		return text.FgGreen.Sprint("Authenticated")
	case status.TokenDomain != "":
		return text.FgYellow.Sprint("Signed in to a different domain")
	default:
		return text.FgYellow.Sprint("Not authenticated")
	}
}

// formatExpiry renders an absolute expiry with the remaining time.
func formatExpiry(expiresAt, now time.Time) string {
	remaining := expiresAt.Sub(now).Round(time.Second)
	stamp := expiresAt.Local().Format("2006-01-02 15:04:05 MST")
	if remaining <= 0 {
		return stamp + " " + text.FgRed.Sprint("(expired)")
	}
	return stamp + " (in " + remaining.String() + ")"
}
