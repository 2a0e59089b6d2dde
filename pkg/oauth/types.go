package oauth

import (
	"errors"
	"slices"
	"time"
)

// DefaultScope is requested on every authorization request and registration.
const DefaultScope = "openid profile email"

// DefaultMetadataCacheTTL is how long discovered provider metadata is reused.
const DefaultMetadataCacheTTL = 24 * time.Hour

// CodeChallengeMethodS256 is the only PKCE method taskctl uses.
const CodeChallengeMethodS256 = "S256"

// Metadata represents OpenID Provider metadata as served from
// /.well-known/openid-configuration.
//
// A Metadata value is immutable once returned by a Resolver: callers must not
// mutate it, and a refresh replaces the cached value instead of updating it.
type Metadata struct {
	// Issuer is the provider's issuer identifier.
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is the URL of the authorization endpoint.
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	// TokenEndpoint is the URL of the token endpoint.
	TokenEndpoint string `json:"token_endpoint"`

	// UserinfoEndpoint is the URL of the userinfo endpoint.
	UserinfoEndpoint string `json:"userinfo_endpoint"`

	// JwksURI is the URL of the JSON Web Key Set.
	JwksURI string `json:"jwks_uri,omitempty"`

	// RegistrationEndpoint is the URL for dynamic client registration (RFC 7591).
	RegistrationEndpoint string `json:"registration_endpoint,omitempty"`

	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported               []string `json:"grant_types_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`

	// Fallback is true when the value was synthesized from conventional
	// paths because discovery failed. It is never read from the wire.
	Fallback bool `json:"-"`
}

// errMissingRequiredField is wrapped by Validate for every absent required field.
var errMissingRequiredField = errors.New("missing required metadata field")

// Validate checks the fields every consumer of Metadata relies on.
func (m *Metadata) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"issuer", m.Issuer},
		{"authorization_endpoint", m.AuthorizationEndpoint},
		{"token_endpoint", m.TokenEndpoint},
		{"userinfo_endpoint", m.UserinfoEndpoint},
	}
	for _, f := range required {
		if f.value == "" {
			return &MetadataFieldError{Field: f.name}
		}
	}
	return nil
}

// MetadataFieldError reports a required field missing from a discovery document.
type MetadataFieldError struct {
	Field string
}

func (e *MetadataFieldError) Error() string {
	return errMissingRequiredField.Error() + ": " + e.Field
}

func (e *MetadataFieldError) Unwrap() error {
	return errMissingRequiredField
}

// SupportsPKCE returns true if the provider supports S256 PKCE.
func (m *Metadata) SupportsPKCE() bool {
	// If not specified, assume S256 is supported (OAuth 2.1 requirement)
	if len(m.CodeChallengeMethodsSupported) == 0 {
		return true
	}
	return slices.Contains(m.CodeChallengeMethodsSupported, CodeChallengeMethodS256)
}

// SupportsRegistration returns true if the provider advertises dynamic client registration.
func (m *Metadata) SupportsRegistration() bool {
	return m.RegistrationEndpoint != ""
}

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) pair.
type PKCEChallenge struct {
	// CodeVerifier is the cryptographically random string (32 bytes, base64url-encoded).
	// It only leaves the process inside the token exchange request body.
	CodeVerifier string

	// CodeChallenge is the SHA256 hash of the verifier (base64url-encoded).
	// This is sent in the authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// ClientRegistrationRequest is the RFC 7591 body taskctl sends to a
// provider's registration endpoint.
type ClientRegistrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	ApplicationType         string   `json:"application_type"`
	Scope                   string   `json:"scope"`
}

// ClientRegistrationResponse is the provider's answer to a registration request.
type ClientRegistrationResponse struct {
	ClientID                string   `json:"client_id" yaml:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at,omitempty" yaml:"client_id_issued_at,omitempty"`
	RedirectURIs            []string `json:"redirect_uris,omitempty" yaml:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty" yaml:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty" yaml:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty" yaml:"token_endpoint_auth_method,omitempty"`
	ApplicationType         string   `json:"application_type,omitempty" yaml:"application_type,omitempty"`
}

// NewNativeRegistrationRequest builds the fixed registration body for a
// native, secretless client with a single loopback redirect URI.
func NewNativeRegistrationRequest(clientName, redirectURI string) ClientRegistrationRequest {
	return ClientRegistrationRequest{
		ClientName:              clientName,
		RedirectURIs:            []string{redirectURI},
		GrantTypes:              []string{"authorization_code"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
		ApplicationType:         "native",
		Scope:                   DefaultScope,
	}
}
