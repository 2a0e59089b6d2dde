package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskctl/internal/cli"
	"taskctl/internal/oauth"
)

// executeCommand runs the root command with args and fresh flag values.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	flagConfigPath, flagDomain, flagDebug, flagLogLevel = "", "", false, "warn"
	authQuiet, authNoBrowser, authForgetClient, authYes = false, false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "taskctl", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"auth", "version", "self-update"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	authNames := make(map[string]bool)
	for _, c := range authCmd.Commands() {
		authNames[c.Name()] = true
	}
	for _, want := range []string{"login", "status", "logout", "token", "whoami"} {
		assert.True(t, authNames[want], "missing auth subcommand %s", want)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitCodeSuccess},
		{"generic", errors.New("boom"), ExitCodeError},
		{"auth required", &cli.AuthRequiredError{Domain: "acme.example"}, ExitCodeAuthRequired},
		{"wrapped auth required", fmt.Errorf("token: %w", &cli.AuthRequiredError{}), ExitCodeAuthRequired},
		{"auth failed", &cli.AuthFailedError{Domain: "acme.example", Reason: oauth.ErrStateMismatch}, ExitCodeAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	original := GetVersion()
	defer SetVersion(original)

	SetVersion("1.2.3")
	out, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "taskctl version 1.2.3\n", out)
}

func TestLogLevelFlag(t *testing.T) {
	_, err := executeCommand(t, "", "version", "--log-level", "debug")
	require.NoError(t, err)

	_, err = executeCommand(t, "", "version", "--log-level", "verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --log-level "verbose"`)
}

func TestSelfUpdate_DevelopmentVersion(t *testing.T) {
	original := GetVersion()
	defer SetVersion(original)

	for _, v := range []string{"", "dev"} {
		SetVersion(v)
		err := runSelfUpdate(nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot self-update a development version")
	}
}
