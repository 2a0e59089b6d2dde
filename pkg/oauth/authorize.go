package oauth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// ClientAuth is how a client proves itself at the token endpoint for one
// login attempt: either a ConfidentialClient or a PublicClient, never both.
type ClientAuth interface {
	isClientAuth()
}

// ConfidentialClient authenticates with a client secret sent in the token
// request body. No PKCE parameters are used.
type ConfidentialClient struct {
	Secret string
}

// PublicClient has no secret and binds the exchange to the authorization
// request with a PKCE pair generated for this attempt.
type PublicClient struct {
	PKCE *PKCEChallenge
}

func (ConfidentialClient) isClientAuth() {}
func (PublicClient) isClientAuth()       {}

// NewClientAuth picks the mode for one attempt. A secret selects
// confidential mode unless preferPKCE is set; otherwise a fresh PKCE pair
// is generated.
func NewClientAuth(secret string, preferPKCE bool) ClientAuth {
	if secret != "" && !preferPKCE {
		return ConfidentialClient{Secret: secret}
	}
	return PublicClient{PKCE: GeneratePKCE()}
}

// ModeName returns a short label for logs and status output.
func ModeName(auth ClientAuth) string {
	switch auth.(type) {
	case ConfidentialClient:
		return "confidential"
	case PublicClient:
		return "pkce"
	default:
		return "unknown"
	}
}

// AuthorizationRequest holds everything needed to build the authorization URL.
type AuthorizationRequest struct {
	ClientID    string
	RedirectURI string
	State       string
	Auth        ClientAuth
}

// Config builds the golang.org/x/oauth2 configuration for a client against
// a provider. Client credentials are always sent in the request body.
func Config(metadata *Metadata, clientID, redirectURI string, auth ClientAuth) *oauth2.Config {
	cfg := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      strings.Fields(DefaultScope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   metadata.AuthorizationEndpoint,
			TokenURL:  metadata.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if c, ok := auth.(ConfidentialClient); ok {
		cfg.ClientSecret = c.Secret
	}
	return cfg
}

// BuildAuthorizationURL constructs the provider authorization URL.
// PKCE parameters are added only for a PublicClient.
func BuildAuthorizationURL(metadata *Metadata, req AuthorizationRequest) (string, error) {
	if _, err := url.Parse(metadata.AuthorizationEndpoint); err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}
	if req.ClientID == "" {
		return "", errors.New("client_id is required")
	}
	if req.State == "" {
		return "", errors.New("state is required")
	}

	cfg := Config(metadata, req.ClientID, req.RedirectURI, req.Auth)

	var opts []oauth2.AuthCodeOption
	switch a := req.Auth.(type) {
	case PublicClient:
		if a.PKCE == nil {
			return "", errors.New("public client requires a PKCE pair")
		}
		opts = append(opts, oauth2.S256ChallengeOption(a.PKCE.CodeVerifier))
	case ConfidentialClient:
	default:
		return "", fmt.Errorf("unsupported client auth mode %T", req.Auth)
	}

	return cfg.AuthCodeURL(req.State, opts...), nil
}
