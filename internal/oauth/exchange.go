package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"taskctl/pkg/logging"
	pkgoauth "taskctl/pkg/oauth"
)

// DefaultExpiresIn is assumed when a token response has no usable expires_in.
const DefaultExpiresIn int64 = 3600

// ExchangeRequest is one authorization-code-for-token exchange.
type ExchangeRequest struct {
	Metadata    *pkgoauth.Metadata
	ClientID    string
	RedirectURI string
	Code        string
	Auth        pkgoauth.ClientAuth
}

// Exchanger trades authorization codes for tokens at the provider's token
// endpoint.
type Exchanger struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewExchanger creates an Exchanger. A nil httpClient uses a client with
// DefaultHTTPTimeout; a nil clock uses time.Now.
func NewExchanger(httpClient *http.Client, now func() time.Time) *Exchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: pkgoauth.DefaultHTTPTimeout}
	}
	if now == nil {
		now = time.Now
	}
	return &Exchanger{httpClient: httpClient, now: now}
}

// Exchange posts the code to the token endpoint. Exactly one of
// client_secret or code_verifier is sent, depending on the client mode.
func (e *Exchanger) Exchange(ctx context.Context, req ExchangeRequest) (*TokenRecord, error) {
	if req.Metadata == nil {
		return nil, errors.New("provider metadata is required")
	}
	if req.Code == "" {
		return nil, ErrMissingCode
	}

	var opts []oauth2.AuthCodeOption
	switch a := req.Auth.(type) {
	case pkgoauth.PublicClient:
		if a.PKCE == nil {
			return nil, errors.New("public client requires a PKCE pair")
		}
		opts = append(opts, oauth2.VerifierOption(a.PKCE.CodeVerifier))
	case pkgoauth.ConfidentialClient:
		if a.Secret == "" {
			return nil, errors.New("confidential client requires a secret")
		}
	default:
		return nil, fmt.Errorf("unsupported client auth mode %T", req.Auth)
	}

	cfg := pkgoauth.Config(req.Metadata, req.ClientID, req.RedirectURI, req.Auth)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	logging.Debug("Exchange", "Exchanging authorization code at %s (mode=%s)",
		req.Metadata.TokenEndpoint, pkgoauth.ModeName(req.Auth))

	token, err := cfg.Exchange(ctx, req.Code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &ProviderError{
				Operation:  OperationTokenExchange,
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	record := &TokenRecord{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   expiresIn(token),
		StoredAt:    e.now(),
	}
	if record.TokenType == "" {
		record.TokenType = "Bearer"
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		record.IDToken = idToken
	}

	return record, nil
}

// expiresIn reads the lifetime the provider granted, in seconds.
func expiresIn(token *oauth2.Token) int64 {
	if token.ExpiresIn > 0 {
		return token.ExpiresIn
	}

	switch v := token.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return int64(v)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultExpiresIn
}
