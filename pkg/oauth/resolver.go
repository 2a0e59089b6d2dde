package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"taskctl/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for provider HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// discoveryPath is where providers publish their OpenID configuration.
const discoveryPath = "/.well-known/openid-configuration"

// maxMetadataBytes bounds how much of a discovery response is read.
const maxMetadataBytes = 1 << 20

// metadataCacheEntry holds cached provider metadata with its fetch timestamp.
type metadataCacheEntry struct {
	metadata  *Metadata
	fetchedAt time.Time
}

// Resolver discovers and caches provider metadata per domain.
//
// Resolve never fails: when discovery is impossible it returns metadata built
// from conventional endpoint paths. Only live results are cached, so a domain
// that fell back is re-discovered on the next call.
type Resolver struct {
	httpClient *http.Client
	scheme     string
	ttl        time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	cache map[string]*metadataCacheEntry

	// group collapses concurrent fetches for the same domain
	group singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ResolverOption {
	return func(r *Resolver) {
		if httpClient != nil {
			r.httpClient = httpClient
		}
	}
}

// WithMetadataCacheTTL sets the metadata cache TTL.
func WithMetadataCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithClock replaces time.Now for cache age calculations.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithScheme sets the URL scheme used to reach a domain. Production code
// always uses https; tests point it at plain-HTTP httptest servers.
func WithScheme(scheme string) ResolverOption {
	return func(r *Resolver) {
		if scheme != "" {
			r.scheme = scheme
		}
	}
}

// NewResolver creates a new metadata resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		scheme:     "https",
		ttl:        DefaultMetadataCacheTTL,
		now:        time.Now,
		cache:      make(map[string]*metadataCacheEntry),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// NormalizeDomain strips a URL scheme, path and trailing slashes from a
// user-supplied domain so "https://acme.example/" and "acme.example" share
// one cache entry, one registration and one token.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if i := strings.Index(domain, "://"); i >= 0 {
		domain = domain[i+3:]
	}
	if i := strings.IndexByte(domain, '/'); i >= 0 {
		domain = domain[:i]
	}
	return strings.ToLower(domain)
}

// Resolve returns provider metadata for domain.
// A cached entry younger than the TTL is returned without a network call.
func (r *Resolver) Resolve(ctx context.Context, domain string) *Metadata {
	domain = NormalizeDomain(domain)

	if m := r.cached(domain); m != nil {
		logging.Debug("Discovery", "Using cached metadata for %s", domain)
		return m
	}

	result, _, _ := r.group.Do(domain, func() (interface{}, error) {
		// Double-check cache after acquiring singleflight slot
		if m := r.cached(domain); m != nil {
			return m, nil
		}

		metadata, err := r.fetch(ctx, domain)
		if err != nil {
			logging.WarnErr("Discovery", err, "Discovery failed for %s, using conventional endpoints", domain)
			return FallbackMetadata(r.scheme, domain), nil
		}

		r.store(domain, metadata)
		return metadata, nil
	})

	return result.(*Metadata)
}

// Invalidate drops the cached metadata for one domain.
func (r *Resolver) Invalidate(domain string) {
	r.mu.Lock()
	delete(r.cache, NormalizeDomain(domain))
	r.mu.Unlock()
}

// Clear drops every cached entry.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.cache = make(map[string]*metadataCacheEntry)
	r.mu.Unlock()
}

func (r *Resolver) cached(domain string) *Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[domain]
	if !ok {
		return nil
	}
	if r.now().Sub(entry.fetchedAt) >= r.ttl {
		return nil
	}
	return entry.metadata
}

func (r *Resolver) store(domain string, metadata *Metadata) {
	r.mu.Lock()
	r.cache[domain] = &metadataCacheEntry{
		metadata:  metadata,
		fetchedAt: r.now(),
	}
	r.mu.Unlock()

	logging.Debug("Discovery", "Cached metadata for %s (authorization_endpoint=%s, token_endpoint=%s)",
		domain, metadata.AuthorizationEndpoint, metadata.TokenEndpoint)
}

// fetch performs exactly one discovery request.
func (r *Resolver) fetch(ctx context.Context, domain string) (*Metadata, error) {
	discoveryURL := r.scheme + "://" + domain + discoveryPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("metadata request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if err := metadata.Validate(); err != nil {
		return nil, err
	}

	return &metadata, nil
}

// FallbackMetadata builds the deterministic metadata used when discovery
// fails, from conventional paths under scheme://domain.
func FallbackMetadata(scheme, domain string) *Metadata {
	base := scheme + "://" + domain
	return &Metadata{
		Issuer:                            base,
		AuthorizationEndpoint:             base + "/oauth/authorize",
		TokenEndpoint:                     base + "/oauth/token",
		UserinfoEndpoint:                  base + "/oauth/userinfo",
		JwksURI:                           base + "/.well-known/jwks.json",
		RegistrationEndpoint:              base + "/oauth/register",
		ScopesSupported:                   []string{"openid", "profile", "email"},
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "none"},
		CodeChallengeMethodsSupported:     []string{CodeChallengeMethodS256},
		Fallback:                          true,
	}
}
