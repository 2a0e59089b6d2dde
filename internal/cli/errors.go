package cli

import (
	"errors"
	"fmt"

	"taskctl/internal/oauth"
	textutil "taskctl/pkg/strings"
)

// AuthRequiredError indicates a command needs a token that is not available.
type AuthRequiredError struct {
	// Domain is the identity provider domain.
	Domain string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	if e.Domain == "" {
		return `Authentication required

To authenticate, run:
  taskctl auth login --domain <domain>`
	}
	return fmt.Sprintf(`Authentication required for %s

To authenticate, run:
  taskctl auth login --domain %s

To check current authentication status:
  taskctl auth status`, e.Domain, e.Domain)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthFailedError indicates the login flow failed.
type AuthFailedError struct {
	// Domain is the identity provider domain.
	Domain string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Authentication failed for %s: %s

To retry authentication, run:
  taskctl auth login --domain %s`, e.Domain, Explain(e.Reason), e.Domain)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// Explain turns a login engine error into a short sentence for the terminal.
func Explain(err error) string {
	if err == nil {
		return ""
	}

	var authErr *oauth.AuthorizationError
	var providerErr *oauth.ProviderError
	switch {
	case errors.As(err, &authErr):
		if authErr.Description != "" {
			return fmt.Sprintf("the provider refused the request (%s: %s)", authErr.Code, authErr.Description)
		}
		return fmt.Sprintf("the provider refused the request (%s)", authErr.Code)
	case errors.Is(err, oauth.ErrStateMismatch):
		return "the browser response did not belong to this login attempt; start a new login"
	case errors.Is(err, oauth.ErrMissingCode):
		return "the browser response carried no authorization code"
	case errors.Is(err, oauth.ErrCallbackTimeout):
		return "no browser response arrived in time"
	case errors.Is(err, oauth.ErrRegistrationUnsupported):
		return "the provider does not support client registration; configure a client ID"
	case errors.As(err, &providerErr):
		return fmt.Sprintf("%s was rejected (HTTP %d): %s", providerErr.Operation, providerErr.StatusCode, textutil.TruncateLine(providerErr.Body, textutil.DefaultLineMaxLen))
	default:
		return err.Error()
	}
}
