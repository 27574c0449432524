// Package resilience guards calls to the identity provider.
//
//   - CircuitBreaker fails fast while discovery or JWKS endpoints are down.
//   - Retry re-attempts transient fetch failures with exponential backoff.
//   - RateLimiter throttles key-set refreshes triggered by unknown key IDs,
//     so a stream of forged tokens cannot hammer the provider.
//
// The OIDC verifier composes them as:
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    _, err := resilience.Retry(ctx, retryCfg, fetch)
//	    return err
//	})
package resilience
