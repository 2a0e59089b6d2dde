package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch is returned when a callback's state is absent or does
	// not match the one issued for the attempt. It carries neither value.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrMissingCode is returned when a callback has a valid state but no code.
	ErrMissingCode = errors.New("callback did not include an authorization code")

	// ErrCallbackTimeout is returned when no callback arrives before the deadline.
	ErrCallbackTimeout = errors.New("timed out waiting for the authorization callback")

	// ErrRegistrationUnsupported is returned when the provider has no
	// registration endpoint; callers fall back to manual credential entry.
	ErrRegistrationUnsupported = errors.New("provider does not support dynamic client registration")

	// ErrNoToken is returned when no valid token is stored.
	ErrNoToken = errors.New("no valid token")
)

// AuthorizationError is a denial reported by the provider through the
// callback's error parameter.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// Operations reported in ProviderError.
const (
	OperationRegistration  = "client registration"
	OperationTokenExchange = "token exchange"
)

// ProviderError is a non-2xx answer from a provider endpoint. Body is the
// provider's response body, verbatim.
type ProviderError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}
