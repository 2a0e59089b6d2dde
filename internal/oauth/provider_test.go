package oauth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	pkgoauth "taskctl/pkg/oauth"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeProvider is an identity provider serving discovery, registration,
// token and userinfo endpoints, recording what it receives.
type fakeProvider struct {
	server *httptest.Server
	domain string

	withoutRegistration bool
	discoveryDown       bool
	registerStatus      int
	registerBody        string
	tokenStatus         int
	tokenBody           string

	mu             sync.Mutex
	discoveryHits  int
	registrations  []map[string]interface{}
	tokenForms     []url.Values
}

func newFakeProvider(t *testing.T, configure func(*fakeProvider)) *fakeProvider {
	t.Helper()

	p := &fakeProvider{
		registerStatus: http.StatusCreated,
		registerBody:   `{"client_id":"registered-client","client_id_issued_at":1767225600,"redirect_uris":["http://localhost:3000/callback"],"grant_types":["authorization_code"],"response_types":["code"],"token_endpoint_auth_method":"none","application_type":"native"}`,
		tokenStatus:    http.StatusOK,
		tokenBody:      `{"access_token":"access-123","id_token":"id-456","token_type":"Bearer","expires_in":3600}`,
	}
	if configure != nil {
		configure(p)
	}

	p.server = httptest.NewServer(http.HandlerFunc(p.serveHTTP))
	t.Cleanup(p.server.Close)
	p.domain = strings.TrimPrefix(p.server.URL, "http://")
	return p
}

func (p *fakeProvider) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/.well-known/openid-configuration":
		p.mu.Lock()
		p.discoveryHits++
		p.mu.Unlock()
		if p.discoveryDown {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		doc := map[string]interface{}{
			"issuer":                           p.server.URL,
			"authorization_endpoint":           p.server.URL + "/authorize",
			"token_endpoint":                   p.server.URL + "/token",
			"userinfo_endpoint":                p.server.URL + "/userinfo",
			"jwks_uri":                         p.server.URL + "/jwks",
			"code_challenge_methods_supported": []string{"S256"},
		}
		if !p.withoutRegistration {
			doc["registration_endpoint"] = p.server.URL + "/register"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)

	case "/register", "/oauth/register":
		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		_ = json.Unmarshal(body, &req)
		p.mu.Lock()
		p.registrations = append(p.registrations, req)
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.registerStatus)
		_, _ = io.WriteString(w, p.registerBody)

	case "/token", "/oauth/token":
		_ = r.ParseForm()
		p.mu.Lock()
		p.tokenForms = append(p.tokenForms, r.PostForm)
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.tokenStatus)
		_, _ = io.WriteString(w, p.tokenBody)

	case "/userinfo":
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"sub":"user-1","email":"ada@example.com","name":"Ada"}`)

	default:
		http.NotFound(w, r)
	}
}

func (p *fakeProvider) resolver() *pkgoauth.Resolver {
	return pkgoauth.NewResolver(pkgoauth.WithScheme("http"), pkgoauth.WithHTTPClient(p.server.Client()))
}

func (p *fakeProvider) metadata() *pkgoauth.Metadata {
	return &pkgoauth.Metadata{
		Issuer:                p.server.URL,
		AuthorizationEndpoint: p.server.URL + "/authorize",
		TokenEndpoint:         p.server.URL + "/token",
		UserinfoEndpoint:      p.server.URL + "/userinfo",
	}
}

func (p *fakeProvider) discoveryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discoveryHits
}

func (p *fakeProvider) registrationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.registrations)
}

func (p *fakeProvider) tokenRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.tokenForms...)
}

func (p *fakeProvider) registration(i int) map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registrations[i]
}
