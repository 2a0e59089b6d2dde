package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskctl/pkg/logging"
	pkgoauth "taskctl/pkg/oauth"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// StateDir holds token.json and clients.yaml.
	StateDir string

	// ClientName is sent when registering a new client.
	ClientName string

	// CallbackPort is the loopback port for the redirect URI.
	CallbackPort int

	// RedirectURI overrides the redirect URI built from CallbackPort.
	RedirectURI string

	// CallbackTimeout bounds how long Login waits for the browser.
	CallbackTimeout time.Duration

	// Static holds operator-supplied client credentials, if any.
	Static StaticSource

	// HTTPClient is used for every provider request.
	HTTPClient *http.Client

	// Resolver overrides the default metadata resolver.
	Resolver *pkgoauth.Resolver

	// Now overrides the clock used for token expiry.
	Now func() time.Time

	// OpenBrowser overrides the default browser opener.
	OpenBrowser BrowserOpener
}

// Client runs the login flow and owns the local credential state.
type Client struct {
	cfg         ClientConfig
	resolver    *pkgoauth.Resolver
	registry    *RegistryStore
	provisioner *Provisioner
	exchanger   *Exchanger
	store       *TokenStore

	// loginMu serializes logins; the state files are read-modify-written.
	loginMu sync.Mutex
}

// NewClient creates a Client from cfg, filling in defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: pkgoauth.DefaultHTTPTimeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = RedirectURIForPort(cfg.CallbackPort)
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = DefaultCallbackTimeout
	}
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultClientName
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = pkgoauth.NewResolver(pkgoauth.WithHTTPClient(cfg.HTTPClient))
	}

	registry := NewRegistryStore(cfg.StateDir)
	registrar := NewDynamicRegistrar(resolver, registry, cfg.HTTPClient)

	return &Client{
		cfg:         cfg,
		resolver:    resolver,
		registry:    registry,
		provisioner: NewDefaultProvisioner(cfg.Static, registry, registrar),
		exchanger:   NewExchanger(cfg.HTTPClient, cfg.Now),
		store:       NewTokenStore(cfg.StateDir, cfg.Now),
	}
}

// Provisioner returns the client credential provisioner.
func (c *Client) Provisioner() *Provisioner {
	return c.provisioner
}

// RedirectURI returns the configured redirect URI.
func (c *Client) RedirectURI() string {
	return c.cfg.RedirectURI
}

// LoginOptions control one login attempt.
type LoginOptions struct {
	Domain string

	// Credentials skips provisioning when set.
	Credentials *ClientCredentials

	// OpenBrowser launches the authorization URL in the user's browser.
	OpenBrowser bool

	// OnAuthURL is called with the authorization URL once the callback
	// listener is ready.
	OnAuthURL func(authURL string)
}

// LoginResult describes a completed login.
type LoginResult struct {
	AttemptID    string
	Domain       string
	Token        *TokenRecord
	ClientID     string
	ClientSource string
	Mode         string
	Metadata     *pkgoauth.Metadata

	// SaveErr is set when the token could not be written to disk. The token
	// is still held in memory for this process.
	SaveErr error
}

// Login runs one Authorization Code flow for opts.Domain and blocks until
// the callback arrives, the callback timeout passes, or ctx is done.
// Nothing is retried.
func (c *Client) Login(ctx context.Context, opts LoginOptions) (*LoginResult, error) {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	domain := pkgoauth.NormalizeDomain(opts.Domain)
	if domain == "" {
		return nil, errors.New("domain is required")
	}

	attemptID := uuid.NewString()
	result, err := c.login(ctx, attemptID, domain, opts)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "login",
			Outcome: "failure",
			Domain:  domain,
			Attempt: attemptID,
			Detail:  err.Error(),
		})
		return nil, err
	}

	logging.Audit(logging.AuditEvent{
		Action:  "login",
		Outcome: "success",
		Domain:  domain,
		Attempt: attemptID,
		Detail:  "mode=" + result.Mode,
	})
	return result, nil
}

func (c *Client) login(ctx context.Context, attemptID, domain string, opts LoginOptions) (*LoginResult, error) {
	metadata := c.resolver.Resolve(ctx, domain)
	if metadata.Fallback {
		logging.Warn("Login", "Using conventional endpoints for %s (attempt %s)", domain, attemptID)
	}

	creds := opts.Credentials
	if creds == nil {
		var err error
		creds, err = c.provisioner.Provision(ctx, ProvisionRequest{
			Domain:      domain,
			ClientName:  c.cfg.ClientName,
			RedirectURI: c.cfg.RedirectURI,
			Metadata:    metadata,
		})
		if err != nil {
			return nil, err
		}
	}

	state, err := pkgoauth.GenerateState()
	if err != nil {
		return nil, err
	}
	auth := creds.Auth()
	if _, public := auth.(pkgoauth.PublicClient); public && !metadata.SupportsPKCE() {
		logging.Warn("Login", "%s does not advertise S256 PKCE; the provider may reject the login (attempt %s)", domain, attemptID)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.CallbackTimeout)
	defer cancel()

	server, err := NewCallbackServer(c.cfg.RedirectURI, state)
	if err != nil {
		return nil, err
	}
	if err := server.Start(waitCtx); err != nil {
		return nil, err
	}
	defer server.Stop()

	redirectURI := server.RedirectURI()
	authURL, err := pkgoauth.BuildAuthorizationURL(metadata, pkgoauth.AuthorizationRequest{
		ClientID:    creds.ClientID,
		RedirectURI: redirectURI,
		State:       state,
		Auth:        auth,
	})
	if err != nil {
		return nil, err
	}

	logging.Debug("Login", "Attempt %s: waiting for callback on %s (client source=%s, mode=%s)",
		attemptID, redirectURI, creds.Source, pkgoauth.ModeName(auth))

	if opts.OnAuthURL != nil {
		opts.OnAuthURL(authURL)
	}
	if opts.OpenBrowser {
		if err := c.cfg.OpenBrowser(authURL); err != nil {
			logging.WarnErr("Login", err, "Could not open a browser; open the URL manually")
		}
	}

	code, err := server.Wait(waitCtx)
	if err != nil {
		return nil, err
	}

	token, err := c.exchanger.Exchange(ctx, ExchangeRequest{
		Metadata:    metadata,
		ClientID:    creds.ClientID,
		RedirectURI: redirectURI,
		Code:        code,
		Auth:        auth,
	})
	if err != nil {
		return nil, err
	}
	token.Domain = domain

	result := &LoginResult{
		AttemptID:    attemptID,
		Domain:       domain,
		Token:        token,
		ClientID:     creds.ClientID,
		ClientSource: creds.Source,
		Mode:         pkgoauth.ModeName(auth),
		Metadata:     metadata,
	}

	if err := c.store.Save(domain, token); err != nil {
		logging.Error("Login", err, "Token obtained but not saved; it is valid for this process only")
		result.SaveErr = err
	}

	return result, nil
}

// Token returns the current valid token. An empty domain matches any.
func (c *Client) Token(domain string) (*TokenRecord, error) {
	token := c.store.Load()
	if token == nil {
		return nil, ErrNoToken
	}
	if domain != "" && token.Domain != pkgoauth.NormalizeDomain(domain) {
		return nil, fmt.Errorf("%w for %s", ErrNoToken, domain)
	}
	return token, nil
}

// Logout removes the stored token.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// UserInfo fetches the profile of the logged-in user from the provider.
func (c *Client) UserInfo(ctx context.Context, domain string) (pkgoauth.UserInfo, error) {
	token, err := c.Token(domain)
	if err != nil {
		return nil, err
	}
	metadata := c.resolver.Resolve(ctx, token.Domain)
	return pkgoauth.FetchUserInfo(ctx, c.cfg.HTTPClient, metadata.UserinfoEndpoint, token.AccessToken)
}

// Status summarizes the local credential state for a domain.
type Status struct {
	Domain        string
	Authenticated bool
	TokenDomain   string
	ExpiresAt     time.Time
	HasIDToken    bool
	ClientID      string
	TokenPath     string
	RegistryPath  string
}

// Status reports the token and client registration state for domain.
func (c *Client) Status(domain string) *Status {
	domain = pkgoauth.NormalizeDomain(domain)
	status := &Status{
		Domain:       domain,
		TokenPath:    c.store.Path(),
		RegistryPath: c.registry.Path(),
	}

	if token := c.store.Load(); token != nil {
		status.Authenticated = domain == "" || token.Domain == domain
		status.TokenDomain = token.Domain
		status.ExpiresAt = token.ExpiresAt()
		status.HasIDToken = token.IDToken != ""
	}

	if c.cfg.Static.ClientID != "" {
		status.ClientID = c.cfg.Static.ClientID
	} else if reg := c.registry.Get(domain); reg != nil {
		status.ClientID = reg.ClientID
	}

	return status
}
