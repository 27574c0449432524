package oidc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/oidcauth/errors"
	"github.com/kbukum/oidcauth/resilience"
)

const providerService = "identity provider"

// discover fetches the issuer's OpenID configuration.
func discover(ctx context.Context, issuer string, cfg *VerifierConfig, cb *resilience.CircuitBreaker) (*discoveryDoc, error) {
	wellKnown := strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration"

	var doc discoveryDoc
	err := guarded(ctx, cb, cfg.Retry, func(ctx context.Context) error {
		doc = discoveryDoc{}
		return fetchJSON(ctx, cfg.HTTPClient, wellKnown, cfg.UserAgent, &doc)
	})
	if err != nil {
		return nil, err
	}

	if doc.JWKSUri == "" {
		return nil, errors.ExternalServiceError(providerService, stderrors.New("discovery document missing jwks_uri")).
			WithDetail("issuer", issuer)
	}
	if !cfg.SkipIssuerCheck && doc.Issuer != "" && strings.TrimRight(doc.Issuer, "/") != strings.TrimRight(issuer, "/") {
		return nil, errors.ExternalServiceError(providerService,
			fmt.Errorf("discovery issuer %q does not match %q", doc.Issuer, issuer))
	}
	return &doc, nil
}

// guarded runs fn with retries inside the circuit breaker. One exhausted
// retry sequence counts as a single breaker failure.
func guarded(ctx context.Context, cb *resilience.CircuitBreaker, retry resilience.RetryConfig, fn func(context.Context) error) error {
	err := cb.Execute(ctx, func(ctx context.Context) error {
		return resilience.RetryFunc(ctx, retry, fn)
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return errors.ServiceUnavailable(providerService).WithCause(err)
	}
	return err
}

// fetchJSON GETs url and decodes the body into out. Transport failures and
// 5xx/429 responses are retryable; other statuses and bad bodies are not.
func fetchJSON(ctx context.Context, client *http.Client, url, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return errors.Internal(fmt.Errorf("create request for %s: %w", url, err))
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.ServiceUnavailable(providerService).WithCause(err)
	}
	defer resp.Body.Close() //nolint:errcheck // Error on close is safe to ignore for read operations

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		appErr := errors.ExternalServiceError(providerService,
			fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))).
			WithDetail("status", resp.StatusCode)
		appErr.Retryable = resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return appErr
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		appErr := errors.ExternalServiceError(providerService, fmt.Errorf("decode %s: %w", url, err))
		appErr.Retryable = false
		return appErr
	}
	return nil
}
