// Package oauth provides the protocol-level pieces of taskctl's login:
// provider discovery, PKCE and state generation, authorization URL
// construction, and the userinfo boundary.
//
// # Core Components
//
//   - Resolver: fetches /.well-known/openid-configuration per domain, caches
//     it for 24 hours, and falls back to conventional endpoint paths
//   - GeneratePKCE / ChallengeFor: RFC 7636 S256 pairs
//   - GenerateState: unpredictable anti-forgery state values
//   - ClientAuth: ConfidentialClient (secret) or PublicClient (PKCE) for one attempt
//   - BuildAuthorizationURL: provider-bound authorization URL
//   - FetchUserInfo / ParseIDTokenClaims: identity display helpers
//
// # Usage
//
//	resolver := oauth.NewResolver()
//	metadata := resolver.Resolve(ctx, "acme.example")
//
//	auth := oauth.NewClientAuth(secret, false)
//	authURL, err := oauth.BuildAuthorizationURL(metadata, oauth.AuthorizationRequest{
//	    ClientID:    clientID,
//	    RedirectURI: redirectURI,
//	    State:       state,
//	    Auth:        auth,
//	})
//
// The flow itself (client provisioning, callback listener, exchange and
// token persistence) lives in internal/oauth.
package oauth
