package config

import "time"

// Config is the resolved taskctl configuration.
type Config struct {
	// Domain is the identity provider host, e.g. "acme.example".
	Domain string `yaml:"domain,omitempty" env:"TASKCTL_DOMAIN"`

	// ClientID and ClientSecret are operator-supplied client credentials.
	// When ClientID is set, registration is skipped.
	ClientID     string `yaml:"clientId,omitempty" env:"TASKCTL_CLIENT_ID"`
	ClientSecret string `yaml:"clientSecret,omitempty" env:"TASKCTL_CLIENT_SECRET"`

	// PreferPKCE uses PKCE even when a client secret is configured.
	PreferPKCE bool `yaml:"preferPKCE,omitempty" env:"TASKCTL_PREFER_PKCE"`

	// ClientName is sent when registering a new client.
	ClientName string `yaml:"clientName,omitempty" env:"TASKCTL_CLIENT_NAME"`

	// CallbackPort is the loopback port of the redirect URI.
	CallbackPort int `yaml:"callbackPort,omitempty" env:"TASKCTL_CALLBACK_PORT"`

	// CallbackTimeout bounds how long login waits for the browser.
	CallbackTimeout time.Duration `yaml:"callbackTimeout,omitempty" env:"TASKCTL_CALLBACK_TIMEOUT"`

	// StateDir holds token.json and clients.yaml.
	StateDir string `yaml:"stateDir,omitempty" env:"TASKCTL_STATE_DIR"`
}
