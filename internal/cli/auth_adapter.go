package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"taskctl/internal/config"
	"taskctl/internal/oauth"
	pkgoauth "taskctl/pkg/oauth"
)

// AuthAdapterOptions configure an AuthAdapter.
type AuthAdapterOptions struct {
	Config config.Config

	// Quiet suppresses progress output. The authorization URL is always
	// printed so a headless user can finish the login.
	Quiet bool

	// NoBrowser prints the URL without launching a browser.
	NoBrowser bool

	// Out receives progress output. Defaults to os.Stderr.
	Out io.Writer

	// Prompter asks for client credentials when registration is
	// unsupported. Nil disables the manual fallback.
	Prompter CredentialPrompter

	// HTTPClient, Resolver and OpenBrowser override the engine defaults.
	HTTPClient  *http.Client
	Resolver    *pkgoauth.Resolver
	OpenBrowser oauth.BrowserOpener
}

// AuthAdapter connects cobra commands to the login engine.
type AuthAdapter struct {
	client    *oauth.Client
	domain    string
	out       io.Writer
	quiet     bool
	noBrowser bool
	prompter  CredentialPrompter
}

// NewAuthAdapter creates an adapter for the configured domain.
func NewAuthAdapter(opts AuthAdapterOptions) *AuthAdapter {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	cfg := opts.Config
	client := oauth.NewClient(oauth.ClientConfig{
		StateDir:        cfg.StateDir,
		ClientName:      cfg.ClientName,
		CallbackPort:    cfg.CallbackPort,
		CallbackTimeout: cfg.CallbackTimeout,
		Static: oauth.StaticSource{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			PreferPKCE:   cfg.PreferPKCE,
		},
		HTTPClient:  opts.HTTPClient,
		Resolver:    opts.Resolver,
		OpenBrowser: opts.OpenBrowser,
	})

	return &AuthAdapter{
		client:    client,
		domain:    pkgoauth.NormalizeDomain(cfg.Domain),
		out:       out,
		quiet:     opts.Quiet,
		noBrowser: opts.NoBrowser,
		prompter:  opts.Prompter,
	}
}

// Domain returns the identity provider domain commands operate on.
func (a *AuthAdapter) Domain() string {
	return a.domain
}

// Client returns the underlying login engine.
func (a *AuthAdapter) Client() *oauth.Client {
	return a.client
}

func (a *AuthAdapter) printf(format string, args ...interface{}) {
	if !a.quiet {
		fmt.Fprintf(a.out, format, args...)
	}
}

func (a *AuthAdapter) requireDomain() error {
	if a.domain == "" {
		return errors.New("no domain configured: pass --domain or set TASKCTL_DOMAIN")
	}
	return nil
}

// Login runs the browser login. When the provider cannot register clients
// and a prompter is available, the user is asked for credentials once and
// the login continues with them.
func (a *AuthAdapter) Login(ctx context.Context) (*oauth.LoginResult, error) {
	if err := a.requireDomain(); err != nil {
		return nil, err
	}

	result, err := a.login(ctx, nil)
	if registrationFailed(err) && a.prompter != nil {
		var creds *oauth.ClientCredentials
		creds, err = a.promptCredentials()
		if err == nil {
			result, err = a.login(ctx, creds)
		}
	}
	if err != nil {
		return nil, &AuthFailedError{Domain: a.domain, Reason: err}
	}

	a.printf("%s\n", text.FgGreen.Sprintf("Successfully authenticated to %s", a.domain))
	if result.SaveErr != nil {
		fmt.Fprintf(a.out, "%s\n", text.FgYellow.Sprintf("Warning: token could not be saved and will not be available to later commands: %v", result.SaveErr))
	}
	return result, nil
}

// registrationFailed reports whether err means no client could be
// registered, which manual credentials can stand in for.
func registrationFailed(err error) bool {
	if errors.Is(err, oauth.ErrRegistrationUnsupported) {
		return true
	}
	var providerErr *oauth.ProviderError
	return errors.As(err, &providerErr) && providerErr.Operation == oauth.OperationRegistration
}

func (a *AuthAdapter) promptCredentials() (*oauth.ClientCredentials, error) {
	clientID, clientSecret, err := a.prompter.PromptClientCredentials(a.domain)
	if err != nil {
		return nil, err
	}
	return a.client.Provisioner().SaveManual(a.domain, clientID, clientSecret)
}

func (a *AuthAdapter) login(ctx context.Context, creds *oauth.ClientCredentials) (*oauth.LoginResult, error) {
	var s *spinner.Spinner

	onAuthURL := func(authURL string) {
		if a.noBrowser {
			fmt.Fprintf(a.out, "Open this URL in your browser to sign in:\n  %s\n\n", authURL)
		} else {
			a.printf("Opening browser for authentication...\n")
			fmt.Fprintf(a.out, "If the browser doesn't open, visit:\n  %s\n\n", authURL)
		}
		if !a.quiet {
			s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.out))
			s.Suffix = " Waiting for authentication to complete..."
			s.Start()
		}
	}

	result, err := a.client.Login(ctx, oauth.LoginOptions{
		Domain:      a.domain,
		Credentials: creds,
		OpenBrowser: !a.noBrowser,
		OnAuthURL:   onAuthURL,
	})

	if s != nil {
		s.Stop()
	}
	return result, err
}

// GetBearerToken returns the stored access token for the configured domain.
func (a *AuthAdapter) GetBearerToken() (string, error) {
	token, err := a.client.Token(a.domain)
	if err != nil {
		return "", &AuthRequiredError{Domain: a.domain}
	}
	return token.AccessToken, nil
}

// Logout removes the stored token.
func (a *AuthAdapter) Logout() error {
	if err := a.client.Logout(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// ForgetClient removes the saved client registration for the domain.
func (a *AuthAdapter) ForgetClient() error {
	if err := a.requireDomain(); err != nil {
		return err
	}
	return a.client.Provisioner().Forget(a.domain)
}

// Status reports the local credential state.
func (a *AuthAdapter) Status() *oauth.Status {
	return a.client.Status(a.domain)
}

// Identity is what taskctl knows about the signed-in user.
type Identity struct {
	Domain    string
	Subject   string
	Email     string
	Name      string
	Issuer    string
	ExpiresAt time.Time

	// FromUserInfo is true when the provider's userinfo endpoint answered.
	FromUserInfo bool
}

// WhoAmI describes the signed-in user. It asks the provider's userinfo
// endpoint and falls back to the unverified ID token claims.
func (a *AuthAdapter) WhoAmI(ctx context.Context) (*Identity, error) {
	token, err := a.client.Token(a.domain)
	if err != nil {
		return nil, &AuthRequiredError{Domain: a.domain}
	}

	identity := &Identity{Domain: token.Domain, ExpiresAt: token.ExpiresAt()}

	if token.IDToken != "" {
		if claims, err := pkgoauth.ParseIDTokenClaims(token.IDToken); err == nil {
			identity.Subject = claims.Subject
			identity.Email = claims.Email
			identity.Name = claims.Name
			identity.Issuer = claims.Issuer
		}
	}

	info, err := a.client.UserInfo(ctx, token.Domain)
	if err != nil {
		if identity.Subject == "" {
			return nil, fmt.Errorf("failed to fetch user info: %w", err)
		}
		return identity, nil
	}

	identity.FromUserInfo = true
	if v := info.Subject(); v != "" {
		identity.Subject = v
	}
	if v := info.Email(); v != "" {
		identity.Email = v
	}
	if v := info.Name(); v != "" {
		identity.Name = v
	}
	return identity, nil
}
