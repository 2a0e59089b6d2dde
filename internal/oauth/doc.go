// Package oauth implements the interactive login flow of taskctl.
//
// A Client ties together the pieces of one OAuth 2.0 Authorization Code
// login against an identity provider:
//
//   - Provisioner: finds client credentials, first from operator
//     configuration, then from clients.yaml, and finally by dynamic client
//     registration (RFC 7591) via DynamicRegistrar.
//   - CallbackServer: a single-use loopback HTTP listener that receives the
//     browser redirect, checks the state parameter, and shuts down.
//   - Exchanger: trades the authorization code for a token, sending either
//     the client secret or the PKCE verifier.
//   - TokenStore: keeps the single active token in token.json and drops it
//     once it has expired.
//
// Provider discovery, PKCE and authorization URL construction live in
// taskctl/pkg/oauth.
//
// # Security
//
// State files are written with 0600 permissions in a 0700 directory and
// are not encrypted. Token values and the state parameter are never logged.
package oauth
