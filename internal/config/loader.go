package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"taskctl/pkg/logging"
)

// Load reads config.yaml from configDir and applies TASKCTL_* environment
// overrides. An empty configDir means DefaultConfigDir.
func Load(configDir string) (Config, error) {
	return load(configDir, env.Options{})
}

// LoadWithEnvironment is Load with an explicit environment instead of the
// process environment.
func LoadWithEnvironment(configDir string, environment map[string]string) (Config, error) {
	return load(configDir, env.Options{Environment: environment})
}

func load(configDir string, opts env.Options) (Config, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return Config{}, err
		}
		configDir = dir
	}

	cfg := Default(configDir)

	configFilePath := filepath.Join(configDir, configFileName)
	// #nosec G304 -- the path comes from the user's own --config-path
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("Config", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, fmt.Errorf("failed to read %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Debug("Config", "Loaded configuration from %s", configFilePath)
	}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.CallbackPort < 1 || c.CallbackPort > 65535 {
		return fmt.Errorf("callbackPort must be between 1 and 65535, got %d", c.CallbackPort)
	}
	if c.CallbackTimeout <= 0 {
		return fmt.Errorf("callbackTimeout must be positive, got %s", c.CallbackTimeout)
	}
	if c.StateDir == "" {
		return errors.New("stateDir must not be empty")
	}
	return nil
}
