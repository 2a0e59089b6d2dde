package oauth

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// BrowserOpener opens a URL for the user.
type BrowserOpener func(url string) error

// browserLauncher starts the command; replaced in tests.
var browserLauncher = func(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// browserCommand returns the command that opens target on goos.
func browserCommand(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", target), nil
	case "darwin":
		return exec.Command("open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens an http or https URL in the default web browser without
// waiting for it.
func OpenBrowser(target string) error {
	if target == "" {
		return errors.New("URL cannot be empty")
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open URL with scheme %q", u.Scheme)
	}

	cmd, err := browserCommand(runtime.GOOS, target)
	if err != nil {
		return err
	}
	if err := browserLauncher(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
