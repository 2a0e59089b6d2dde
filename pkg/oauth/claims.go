package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims holds the identity claims extracted from an ID token.
// They are for display only: the token signature is NOT verified.
type IDTokenClaims struct {
	Subject   string
	Email     string
	Name      string
	Issuer    string
	ExpiresAt time.Time
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// ParseIDTokenClaims decodes the payload of an ID token without verifying it.
func ParseIDTokenClaims(idToken string) (*IDTokenClaims, error) {
	if idToken == "" {
		return nil, errors.New("empty id token")
	}

	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token: %w", err)
	}

	out := &IDTokenClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Issuer:  claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
