// Package config loads taskctl configuration.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults (see Default)
//  2. the YAML file, ~/.config/taskctl/config.yaml unless --config-path is given
//  3. TASKCTL_* environment variables
//
// Command-line flags are applied on top by the cmd package. A missing file
// means defaults; a malformed file is an error.
//
// Example config.yaml:
//
//	domain: acme.example
//	clientName: taskctl
//	callbackPort: 3000
//	callbackTimeout: 5m
//
// Client secrets may be placed in the file, but TASKCTL_CLIENT_SECRET is
// preferred so they stay out of shared configuration.
package config
