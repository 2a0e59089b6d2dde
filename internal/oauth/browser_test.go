package oauth

import (
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
	}{
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
		{"darwin", "open"},
		{"windows", "rundll32"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "https://acme.example/authorize")
			require.NoError(t, err)
			assert.Contains(t, cmd.Path, tt.name)
			assert.Equal(t, "https://acme.example/authorize", cmd.Args[len(cmd.Args)-1])
		})
	}

	_, err := browserCommand("plan9", "https://acme.example")
	assert.ErrorContains(t, err, "unsupported platform")
}

func TestOpenBrowser(t *testing.T) {
	original := browserLauncher
	t.Cleanup(func() { browserLauncher = original })

	var launched []string
	browserLauncher = func(cmd *exec.Cmd) error {
		launched = append(launched, cmd.Args[len(cmd.Args)-1])
		return nil
	}

	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"empty", "", "cannot be empty"},
		{"file scheme", "file:///etc/passwd", "scheme"},
		{"javascript scheme", "javascript:alert(1)", "scheme"},
		{"unparsable", "http://[::1", "invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, OpenBrowser(tt.url), tt.wantErr)
		})
	}
	assert.Empty(t, launched)

	if _, err := browserCommand(runtime.GOOS, ""); err != nil {
		t.Skipf("browser not supported on this platform: %v", err)
	}
	require.NoError(t, OpenBrowser("https://acme.example/authorize"))
	assert.Equal(t, []string{"https://acme.example/authorize"}, launched)

	browserLauncher = func(*exec.Cmd) error { return errors.New("exec: not found") }
	assert.ErrorContains(t, OpenBrowser("https://acme.example"), "failed to open browser")
}
