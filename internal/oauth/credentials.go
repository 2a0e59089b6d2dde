package oauth

import (
	"context"
	"errors"
	"fmt"

	"taskctl/pkg/logging"
	pkgoauth "taskctl/pkg/oauth"
)

// Credential sources, in the order the Provisioner consults them.
const (
	SourceConfig       = "config"
	SourceRegistry     = "registry"
	SourceRegistration = "registration"
	SourceManual       = "manual"
)

// ClientCredentials identify the client for one login. A secret selects the
// confidential mode unless PreferPKCE is set.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	PreferPKCE   bool

	// Source names the strategy that produced the credentials.
	Source string
}

// Auth returns the client authentication mode for a new login attempt. A
// public client gets a fresh PKCE pair on every call.
func (c *ClientCredentials) Auth() pkgoauth.ClientAuth {
	return pkgoauth.NewClientAuth(c.ClientSecret, c.PreferPKCE)
}

// credentialsFromRegistration normalizes a registration record.
func credentialsFromRegistration(reg *pkgoauth.ClientRegistrationResponse, source string) *ClientCredentials {
	return &ClientCredentials{
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		Source:       source,
	}
}

// ProvisionRequest describes the client a login needs.
type ProvisionRequest struct {
	Domain      string
	ClientName  string
	RedirectURI string

	// Metadata is the provider metadata already resolved for this login.
	// When nil, sources that need it resolve it themselves.
	Metadata *pkgoauth.Metadata
}

// CredentialSource is one strategy for obtaining client credentials. It
// returns ok=false when it does not apply to the request.
type CredentialSource interface {
	Name() string
	Credentials(ctx context.Context, req ProvisionRequest) (creds *ClientCredentials, ok bool, err error)
}

// StaticSource returns operator-supplied credentials, typically from the
// config file or TASKCTL_CLIENT_ID / TASKCTL_CLIENT_SECRET.
type StaticSource struct {
	ClientID     string
	ClientSecret string
	PreferPKCE   bool
}

// Name implements CredentialSource.
func (s StaticSource) Name() string { return SourceConfig }

// Credentials implements CredentialSource.
func (s StaticSource) Credentials(_ context.Context, _ ProvisionRequest) (*ClientCredentials, bool, error) {
	if s.ClientID == "" {
		return nil, false, nil
	}
	return &ClientCredentials{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		PreferPKCE:   s.PreferPKCE,
		Source:       SourceConfig,
	}, true, nil
}

// RegistrySource returns a registration saved by a previous invocation.
type RegistrySource struct {
	Store *RegistryStore
}

// Name implements CredentialSource.
func (s RegistrySource) Name() string { return SourceRegistry }

// Credentials implements CredentialSource.
func (s RegistrySource) Credentials(_ context.Context, req ProvisionRequest) (*ClientCredentials, bool, error) {
	reg := s.Store.Get(req.Domain)
	if reg == nil {
		return nil, false, nil
	}
	return credentialsFromRegistration(reg, SourceRegistry), true, nil
}

// Provisioner evaluates credential sources in order; the first that applies
// wins.
type Provisioner struct {
	sources  []CredentialSource
	registry *RegistryStore
}

// NewProvisioner creates a Provisioner. The registry receives manually
// entered credentials.
func NewProvisioner(registry *RegistryStore, sources ...CredentialSource) *Provisioner {
	return &Provisioner{sources: sources, registry: registry}
}

// NewDefaultProvisioner wires the standard chain: static credentials, the
// saved registration, then dynamic registration.
func NewDefaultProvisioner(static StaticSource, registry *RegistryStore, registrar *DynamicRegistrar) *Provisioner {
	sources := []CredentialSource{static, RegistrySource{Store: registry}}
	if registrar != nil {
		sources = append(sources, registrar)
	}
	return NewProvisioner(registry, sources...)
}

// Provision returns client credentials for req.Domain. When no source
// applies and registration is unsupported the error wraps
// ErrRegistrationUnsupported, and the caller may fall back to SaveManual.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*ClientCredentials, error) {
	for _, source := range p.sources {
		creds, ok, err := source.Credentials(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s credentials for %s: %w", source.Name(), req.Domain, err)
		}
		if !ok {
			continue
		}
		if creds.ClientID == "" {
			return nil, fmt.Errorf("%s credentials for %s have no client_id", source.Name(), req.Domain)
		}
		logging.Debug("Provisioner", "Using %s client credentials for %s", creds.Source, req.Domain)
		return creds, nil
	}
	return nil, fmt.Errorf("no client credentials for %s: %w", req.Domain, ErrRegistrationUnsupported)
}

// SaveManual stores credentials typed in by the user so later logins find
// them in the registry.
func (p *Provisioner) SaveManual(domain, clientID, clientSecret string) (*ClientCredentials, error) {
	if clientID == "" {
		return nil, errors.New("client ID must not be empty")
	}
	reg := &pkgoauth.ClientRegistrationResponse{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	if p.registry != nil {
		if err := p.registry.Put(domain, reg); err != nil {
			return nil, err
		}
	}
	logging.Info("Provisioner", "Saved manually entered client credentials for %s", domain)
	return credentialsFromRegistration(reg, SourceManual), nil
}

// Forget removes any saved registration for domain.
func (p *Provisioner) Forget(domain string) error {
	if p.registry == nil {
		return nil
	}
	return p.registry.Delete(domain)
}
