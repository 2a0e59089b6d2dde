// Package cli holds the terminal-facing side of taskctl's login flow.
//
// AuthAdapter wraps the login engine from internal/oauth for cobra
// commands: it prints the authorization URL, shows a spinner while the
// browser round trip is pending, prompts for client credentials when the
// provider cannot register clients, and turns engine errors into the typed
// errors the root command maps to exit codes:
//
//   - AuthRequiredError: no valid token (exit code 2)
//   - AuthFailedError: the login flow failed (exit code 3)
//
// PlainTableWriter renders kubectl-style aligned output for status and
// identity commands.
package cli
