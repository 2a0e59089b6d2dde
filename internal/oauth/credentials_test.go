package oauth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgoauth "taskctl/pkg/oauth"
)

func newTestProvisioner(t *testing.T, provider *fakeProvider, static StaticSource) (*Provisioner, *RegistryStore) {
	t.Helper()
	registry := NewRegistryStore(t.TempDir())
	registrar := NewDynamicRegistrar(provider.resolver(), registry, provider.server.Client())
	return NewDefaultProvisioner(static, registry, registrar), registry
}

func provisionRequest(provider *fakeProvider) ProvisionRequest {
	return ProvisionRequest{
		Domain:      provider.domain,
		ClientName:  "taskctl-test",
		RedirectURI: "http://localhost:3000/callback",
	}
}

func TestProvisioner_RegistrationUsesSuppliedMetadata(t *testing.T) {
	provider := newFakeProvider(t, nil)
	provisioner, _ := newTestProvisioner(t, provider, StaticSource{})

	metadata := provider.metadata()
	metadata.RegistrationEndpoint = provider.server.URL + "/register"
	req := provisionRequest(provider)
	req.Metadata = metadata

	creds, err := provisioner.Provision(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "registered-client", creds.ClientID)
	assert.Zero(t, provider.discoveryCount())
}

func TestProvisioner_StaticCredentialsBypassRegistration(t *testing.T) {
	provider := newFakeProvider(t, nil)
	provisioner, registry := newTestProvisioner(t, provider, StaticSource{ClientID: "env-client", ClientSecret: "env-secret"})
	require.NoError(t, registry.Put(provider.domain, &pkgoauth.ClientRegistrationResponse{ClientID: "saved-client"}))

	creds, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	require.NoError(t, err)

	assert.Equal(t, "env-client", creds.ClientID)
	assert.Equal(t, "env-secret", creds.ClientSecret)
	assert.Equal(t, SourceConfig, creds.Source)
	assert.Zero(t, provider.registrationCount())
}

func TestProvisioner_SavedRegistrationIsReused(t *testing.T) {
	provider := newFakeProvider(t, nil)
	provisioner, registry := newTestProvisioner(t, provider, StaticSource{})
	require.NoError(t, registry.Put(provider.domain, &pkgoauth.ClientRegistrationResponse{ClientID: "saved-client"}))

	creds, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	require.NoError(t, err)

	assert.Equal(t, "saved-client", creds.ClientID)
	assert.Empty(t, creds.ClientSecret)
	assert.Equal(t, SourceRegistry, creds.Source)
	assert.Zero(t, provider.registrationCount())
}

func TestProvisioner_DynamicRegistration(t *testing.T) {
	provider := newFakeProvider(t, nil)
	provisioner, registry := newTestProvisioner(t, provider, StaticSource{})

	creds, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	require.NoError(t, err)
	assert.Equal(t, "registered-client", creds.ClientID)
	assert.Equal(t, SourceRegistration, creds.Source)
	_, isPublic := creds.Auth().(pkgoauth.PublicClient)
	assert.True(t, isPublic, "registered native clients have no secret and use PKCE")

	require.Equal(t, 1, provider.registrationCount())
	body := provider.registration(0)
	assert.Equal(t, "taskctl-test", body["client_name"])
	assert.Equal(t, []interface{}{"http://localhost:3000/callback"}, body["redirect_uris"])
	assert.Equal(t, []interface{}{"authorization_code"}, body["grant_types"])
	assert.Equal(t, []interface{}{"code"}, body["response_types"])
	assert.Equal(t, "none", body["token_endpoint_auth_method"])
	assert.Equal(t, "native", body["application_type"])
	assert.Equal(t, "openid profile email", body["scope"])

	saved := registry.Get(provider.domain)
	require.NotNil(t, saved)
	assert.Equal(t, "registered-client", saved.ClientID)
	assert.Equal(t, int64(1767225600), saved.ClientIDIssuedAt)

	info, err := os.Stat(registry.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	require.NoError(t, err)
	assert.Equal(t, SourceRegistry, again.Source)
	assert.Equal(t, 1, provider.registrationCount(), "a saved registration must not be registered again")
}

func TestProvisioner_RegistrationUnsupported(t *testing.T) {
	provider := newFakeProvider(t, func(p *fakeProvider) { p.withoutRegistration = true })
	provisioner, _ := newTestProvisioner(t, provider, StaticSource{})

	creds, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	assert.Nil(t, creds)
	assert.ErrorIs(t, err, ErrRegistrationUnsupported)
	assert.Zero(t, provider.registrationCount())
}

func TestProvisioner_RegistrationRejected(t *testing.T) {
	body := `{"error":"invalid_redirect_uri","error_description":"loopback not allowed"}`
	provider := newFakeProvider(t, func(p *fakeProvider) {
		p.registerStatus = http.StatusBadRequest
		p.registerBody = body
	})
	provisioner, registry := newTestProvisioner(t, provider, StaticSource{})

	_, err := provisioner.Provision(context.Background(), provisionRequest(provider))

	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusBadRequest, providerErr.StatusCode)
	assert.Equal(t, body, providerErr.Body)
	assert.Nil(t, registry.Get(provider.domain))
}

func TestProvisioner_RegistrationWithoutClientID(t *testing.T) {
	provider := newFakeProvider(t, func(p *fakeProvider) { p.registerBody = `{"client_secret":"x"}` })
	provisioner, _ := newTestProvisioner(t, provider, StaticSource{})

	_, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	assert.Error(t, err)
}

func TestProvisioner_CorruptRegistryIsEmpty(t *testing.T) {
	provider := newFakeProvider(t, nil)
	provisioner, registry := newTestProvisioner(t, provider, StaticSource{})
	require.NoError(t, os.WriteFile(registry.Path(), []byte("clients: [unterminated"), 0600))

	creds, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	require.NoError(t, err)
	assert.Equal(t, SourceRegistration, creds.Source)
	assert.Equal(t, 1, provider.registrationCount())
}

func TestProvisioner_SaveManual(t *testing.T) {
	provider := newFakeProvider(t, func(p *fakeProvider) { p.withoutRegistration = true })
	provisioner, registry := newTestProvisioner(t, provider, StaticSource{})

	creds, err := provisioner.SaveManual(provider.domain, "typed-client", "typed-secret")
	require.NoError(t, err)
	assert.Equal(t, SourceManual, creds.Source)
	_, isConfidential := creds.Auth().(pkgoauth.ConfidentialClient)
	assert.True(t, isConfidential)

	saved := registry.Get(provider.domain)
	require.NotNil(t, saved)
	assert.Equal(t, "typed-secret", saved.ClientSecret)

	next, err := provisioner.Provision(context.Background(), provisionRequest(provider))
	require.NoError(t, err)
	assert.Equal(t, "typed-client", next.ClientID)
	assert.Equal(t, SourceRegistry, next.Source)

	_, err = provisioner.SaveManual(provider.domain, "", "")
	assert.Error(t, err)

	require.NoError(t, provisioner.Forget(provider.domain))
	assert.Nil(t, registry.Get(provider.domain))
}

func TestClientCredentials_Auth(t *testing.T) {
	confidential := &ClientCredentials{ClientID: "c", ClientSecret: "s"}
	assert.Equal(t, pkgoauth.ConfidentialClient{Secret: "s"}, confidential.Auth())

	preferPKCE := &ClientCredentials{ClientID: "c", ClientSecret: "s", PreferPKCE: true}
	public, ok := preferPKCE.Auth().(pkgoauth.PublicClient)
	require.True(t, ok)
	require.NotNil(t, public.PKCE)

	first := (&ClientCredentials{ClientID: "c"}).Auth().(pkgoauth.PublicClient)
	second := (&ClientCredentials{ClientID: "c"}).Auth().(pkgoauth.PublicClient)
	assert.NotEqual(t, first.PKCE.CodeVerifier, second.PKCE.CodeVerifier)
}

func TestRegistryStore_DomainsAreIndependent(t *testing.T) {
	registry := NewRegistryStore(filepath.Join(t.TempDir(), "nested"))

	require.NoError(t, registry.Put("One.Example", &pkgoauth.ClientRegistrationResponse{ClientID: "one"}))
	require.NoError(t, registry.Put("two.example", &pkgoauth.ClientRegistrationResponse{ClientID: "two"}))

	assert.Equal(t, "one", registry.Get("one.example").ClientID)
	assert.Equal(t, "two", registry.Get("https://two.example/").ClientID)
	assert.Nil(t, registry.Get("three.example"))

	require.NoError(t, registry.Delete("one.example"))
	assert.Nil(t, registry.Get("one.example"))
	assert.NotNil(t, registry.Get("two.example"))

	assert.Error(t, registry.Put("x.example", &pkgoauth.ClientRegistrationResponse{}))
}
