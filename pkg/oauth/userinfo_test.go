package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sub":   "user-1",
			"email": "dev@acme.example",
			"name":  "Dev",
		})
	}))
	defer server.Close()

	info, err := FetchUserInfo(context.Background(), server.Client(), server.URL, "access-123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", info.Subject())
	assert.Equal(t, "dev@acme.example", info.Email())
	assert.Equal(t, "Dev", info.Name())

	_, err = FetchUserInfo(context.Background(), server.Client(), server.URL, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid_token")
}

func TestParseIDTokenClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"email": "dev@acme.example",
		"name":  "Dev",
		"iss":   "https://acme.example",
		"exp":   exp.Unix(),
	}).SignedString([]byte("not-verified"))
	require.NoError(t, err)

	claims, err := ParseIDTokenClaims(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "dev@acme.example", claims.Email)
	assert.Equal(t, "Dev", claims.Name)
	assert.Equal(t, "https://acme.example", claims.Issuer)
	assert.True(t, exp.Equal(claims.ExpiresAt))
}

func TestParseIDTokenClaims_Invalid(t *testing.T) {
	_, err := ParseIDTokenClaims("")
	assert.Error(t, err)

	_, err = ParseIDTokenClaims("not-a-jwt")
	assert.Error(t, err)
}
