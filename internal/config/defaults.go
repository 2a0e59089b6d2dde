package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	userConfigDir  = ".config/taskctl"
	configFileName = "config.yaml"

	// DefaultClientName is the client_name used for dynamic registration.
	DefaultClientName = "taskctl"

	// DefaultCallbackPort is the loopback port of the redirect URI.
	DefaultCallbackPort = 3000

	// DefaultCallbackTimeout is how long login waits for the browser.
	DefaultCallbackTimeout = 5 * time.Minute
)

// DefaultConfigDir returns ~/.config/taskctl.
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// Default returns the built-in configuration for configDir.
func Default(configDir string) Config {
	return Config{
		ClientName:      DefaultClientName,
		CallbackPort:    DefaultCallbackPort,
		CallbackTimeout: DefaultCallbackTimeout,
		StateDir:        configDir,
	}
}
