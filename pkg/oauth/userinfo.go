package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// UserInfo holds the claims returned by a provider's userinfo endpoint.
type UserInfo map[string]interface{}

// Subject returns the "sub" claim, or "" when absent.
func (u UserInfo) Subject() string {
	return u.stringClaim("sub")
}

// Email returns the "email" claim, or "" when absent.
func (u UserInfo) Email() string {
	return u.stringClaim("email")
}

// Name returns the "name" claim, or "" when absent.
func (u UserInfo) Name() string {
	return u.stringClaim("name")
}

func (u UserInfo) stringClaim(key string) string {
	if v, ok := u[key].(string); ok {
		return v
	}
	return ""
}

// FetchUserInfo calls the userinfo endpoint with the access token as a
// Bearer credential.
func FetchUserInfo(ctx context.Context, httpClient *http.Client, endpoint, accessToken string) (UserInfo, error) {
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}

	return info, nil
}
