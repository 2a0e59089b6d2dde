package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"taskctl/pkg/logging"
	pkgoauth "taskctl/pkg/oauth"
)

// DefaultClientName is the client_name sent when registering.
const DefaultClientName = "taskctl"

// maxRegistrationBody bounds how much of a registration response is read.
const maxRegistrationBody = 1 << 20

// DynamicRegistrar registers a native client with the provider (RFC 7591)
// and saves the result in the registry.
type DynamicRegistrar struct {
	resolver   *pkgoauth.Resolver
	registry   *RegistryStore
	httpClient *http.Client
}

// NewDynamicRegistrar creates a registrar. A nil httpClient uses a client
// with DefaultHTTPTimeout.
func NewDynamicRegistrar(resolver *pkgoauth.Resolver, registry *RegistryStore, httpClient *http.Client) *DynamicRegistrar {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: pkgoauth.DefaultHTTPTimeout}
	}
	return &DynamicRegistrar{resolver: resolver, registry: registry, httpClient: httpClient}
}

// Name implements CredentialSource.
func (r *DynamicRegistrar) Name() string { return SourceRegistration }

// Credentials implements CredentialSource. It always applies: it either
// registers or fails.
func (r *DynamicRegistrar) Credentials(ctx context.Context, req ProvisionRequest) (*ClientCredentials, bool, error) {
	reg, err := r.Register(ctx, req)
	if err != nil {
		return nil, true, err
	}
	return credentialsFromRegistration(reg, SourceRegistration), true, nil
}

// Register performs the registration request and persists the response.
// It returns ErrRegistrationUnsupported when the provider advertises no
// registration endpoint.
func (r *DynamicRegistrar) Register(ctx context.Context, req ProvisionRequest) (*pkgoauth.ClientRegistrationResponse, error) {
	metadata := req.Metadata
	if metadata == nil {
		metadata = r.resolver.Resolve(ctx, req.Domain)
	}
	if !metadata.SupportsRegistration() {
		return nil, ErrRegistrationUnsupported
	}

	clientName := req.ClientName
	if clientName == "" {
		clientName = DefaultClientName
	}

	body, err := json.Marshal(pkgoauth.NewNativeRegistrationRequest(clientName, req.RedirectURI))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registration request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, metadata.RegistrationEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create registration request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	logging.Debug("Provisioner", "Registering client %q at %s", clientName, metadata.RegistrationEndpoint)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("client registration request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxRegistrationBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read registration response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Operation:  OperationRegistration,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var reg pkgoauth.ClientRegistrationResponse
	if err := json.Unmarshal(respBody, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registration response: %w", err)
	}
	if reg.ClientID == "" {
		return nil, errors.New("registration response has no client_id")
	}

	if r.registry != nil {
		if err := r.registry.Put(req.Domain, &reg); err != nil {
			logging.WarnErr("Provisioner", err, "Registered client for %s could not be saved", req.Domain)
		}
	}

	logging.Info("Provisioner", "Registered client %s for %s", reg.ClientID, req.Domain)
	return &reg, nil
}
