package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// stateBytes is the number of random bytes for the OAuth state parameter.
// 32 bytes encodes to 43 base64url characters.
const stateBytes = 32

// GeneratePKCE generates a new PKCE code verifier and challenge.
// The code verifier is 32 random bytes (256 bits), base64url-encoded without padding.
// The code challenge is the S256 (SHA256) hash of the verifier string.
func GeneratePKCE() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeFor(verifier),
		CodeChallengeMethod: CodeChallengeMethodS256,
	}
}

// ChallengeFor derives the S256 challenge for a verifier:
// base64url_nopad(sha256(verifier)).
func ChallengeFor(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// GenerateState generates a random state parameter for OAuth.
// The state is used to prevent CSRF attacks and link the authorization
// response back to the original request.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
