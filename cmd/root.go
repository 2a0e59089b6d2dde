package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"taskctl/internal/cli"
	"taskctl/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags
var (
	flagConfigPath string
	flagDomain     string
	flagDebug      bool
	flagLogLevel   string
)

// rootCmd represents the base command for the taskctl application.
var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Command-line client for the task service",
	Long: `taskctl is the command-line client for the task service.

It signs you in through your organization's identity provider using the
OAuth 2.0 Authorization Code flow in your browser, and keeps the resulting
access token for other tools:

  taskctl auth login --domain acme.example
  curl -H "Authorization: Bearer $(taskctl auth token)" ...`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, ok := logging.ParseLevel(flagLogLevel)
		if !ok {
			return fmt.Errorf("invalid --log-level %q: use debug, info, warn or error", flagLogLevel)
		}
		if flagDebug {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
		return nil
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It exits the process with a semantic exit code on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "taskctl version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config-path", "", "Configuration directory (default ~/.config/taskctl)")
	rootCmd.PersistentFlags().StringVar(&flagDomain, "domain", "", "Identity provider domain (env: TASKCTL_DOMAIN)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
