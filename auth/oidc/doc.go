// Package oidc verifies bearer tokens issued by an OpenID Connect provider.
//
// A Verifier discovers the provider's configuration, caches its signing
// keys and follows key rotation. It implements auth.TokenValidator, so it
// plugs straight into the auth middleware:
//
//	v, err := oidc.NewVerifier(ctx, "https://accounts.google.com", oidc.VerifierConfig{
//	    ClientID: "my-client-id",
//	})
//	layer, err := middleware.NewAuthLayer(v, auth.DefaultValidation())
//
// Key fetches are collapsed so that concurrent requests trigger at most one
// download, retried with backoff behind a circuit breaker. A token whose key
// ID is unknown forces a refresh, at most once per UnknownKIDRefreshInterval.
// When a refresh fails the previous keys keep serving.
package oidc
