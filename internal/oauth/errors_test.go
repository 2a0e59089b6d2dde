package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizationError_Error(t *testing.T) {
	assert.Equal(t, "authorization failed: access_denied",
		(&AuthorizationError{Code: "access_denied"}).Error())
	assert.Equal(t, "authorization failed: access_denied - user cancelled",
		(&AuthorizationError{Code: "access_denied", Description: "user cancelled"}).Error())
}

func TestProviderError_Error(t *testing.T) {
	err := &ProviderError{Operation: "token exchange", StatusCode: 400, Body: `{"error":"invalid_grant"}`}
	assert.Equal(t, `token exchange failed with status 400: {"error":"invalid_grant"}`, err.Error())
}
