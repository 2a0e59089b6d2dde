// Package logging provides the structured logger used across taskctl.
//
// It is a thin layer over log/slog that tags every entry with a subsystem
// and keeps printf-style call sites short:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Login", "Opening browser for %s", domain)
//	logging.Debug("Discovery", "Cache hit for %s", domain)
//	logging.Warn("Discovery", "Falling back to conventional endpoints for %s", domain)
//	logging.Error("TokenStore", err, "Failed to persist token")
//
// # Subsystems
//
//   - Config: configuration loading
//   - Discovery: provider metadata resolution
//   - Provisioner: client credential resolution and dynamic registration
//   - Callback: the local redirect listener
//   - Exchange: code-for-token exchange
//   - TokenStore: local token persistence
//   - Login: flow orchestration
//
// # Audit Logging
//
// Security-relevant events (token stored or cleared, rejected callbacks,
// client registrations) go through Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "token_stored",
//	    Outcome: "success",
//	    Domain:  domain,
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix. Token,
// secret, verifier and state values are never logged.
package logging
