package oidc

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kbukum/oidcauth/errors"
	"github.com/kbukum/oidcauth/logger"
	"github.com/kbukum/oidcauth/observability"
	"github.com/kbukum/oidcauth/resilience"
)

// keySet caches the provider's signing keys. Refreshes are collapsed with
// singleflight; refreshes for unknown key IDs are rate limited.
type keySet struct {
	uri       string
	issuer    string
	client    *http.Client
	ttl       time.Duration
	userAgent string
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
	limiter   *resilience.RateLimiter
	metrics   *observability.AuthMetrics
	log       *logger.Logger
	now       func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]crypto.PublicKey
	fetchedAt time.Time
	gen       uint64
}

// jwk represents a JSON Web Key.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`

	// RSA fields
	N string `json:"n"`
	E string `json:"e"`

	// EC fields
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

type jwksDoc struct {
	Keys []jwk `json:"keys"`
}

// key returns the public key for kid, refreshing the set when it is empty,
// expired, or does not know kid.
func (s *keySet) key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	keys, gen, fresh := s.snapshot()
	if k, ok := lookup(keys, kid); ok && fresh {
		return k, nil
	}
	if fresh && !s.limiter.Allow() {
		return nil, errors.InvalidToken(fmt.Errorf("signing key %q not found", kid))
	}

	latest, err := s.refresh(ctx, gen)
	if err != nil {
		if k, ok := lookup(keys, kid); ok {
			s.log.WithContext(ctx).Warn("Using stale signing keys", logger.MergeWithError(
				logger.Fields(observability.AttrKeyID, kid), err))
			return k, nil
		}
		return nil, err
	}
	if k, ok := lookup(latest, kid); ok {
		return k, nil
	}
	return nil, errors.InvalidToken(fmt.Errorf("signing key %q not found", kid))
}

// snapshot returns the cached keys, their generation and whether they are
// still within the TTL.
func (s *keySet) snapshot() (map[string]crypto.PublicKey, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fresh := s.keys != nil && s.now().Sub(s.fetchedAt) < s.ttl
	return s.keys, s.gen, fresh
}

// refresh fetches the key set unless another caller already replaced the
// generation seen. Each caller waits only as long as its own ctx allows;
// the fetch itself is detached from any single caller.
func (s *keySet) refresh(ctx context.Context, seen uint64) (map[string]crypto.PublicKey, error) {
	ch := s.group.DoChan("jwks", func() (any, error) {
		s.mu.RLock()
		if s.gen != seen {
			keys := s.keys
			s.mu.RUnlock()
			return keys, nil
		}
		s.mu.RUnlock()

		fctx := context.WithoutCancel(ctx)
		keys, err := s.fetch(fctx)
		s.metrics.RecordKeyRefresh(fctx, s.issuer, err)
		if err != nil {
			s.log.Warn("Signing key refresh failed", logger.MergeWithError(logger.Fields("jwks_uri", s.uri), err))
			return nil, err
		}

		s.mu.Lock()
		s.keys = keys
		s.fetchedAt = s.now()
		s.gen++
		s.mu.Unlock()

		s.log.Debug("Signing keys refreshed", logger.Fields("jwks_uri", s.uri, "keys", len(keys)))
		return keys, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]crypto.PublicKey), nil
	}
}

func (s *keySet) fetch(ctx context.Context) (map[string]crypto.PublicKey, error) {
	ctx, span := observability.StartSpan(ctx, "oidc.jwks.fetch")
	defer span.End()

	var doc jwksDoc
	err := guarded(ctx, s.breaker, s.retry, func(ctx context.Context) error {
		doc = jwksDoc{}
		return fetchJSON(ctx, s.client, s.uri, s.userAgent, &doc)
	})
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}

	keys := make(map[string]crypto.PublicKey, len(doc.Keys))
	for i := range doc.Keys {
		k := &doc.Keys[i]
		if k.Use != "sig" && k.Use != "" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			s.log.Debug("Skipping unusable key", logger.MergeWithError(logger.Fields(observability.AttrKeyID, k.Kid), err))
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		appErr := errors.ExternalServiceError(providerService, stderrors.New("key set contains no usable signing keys"))
		appErr.Retryable = false
		observability.SetSpanError(span, appErr)
		return nil, appErr
	}
	return keys, nil
}

// lastFetched reports when keys were last loaded, zero if never.
func (s *keySet) lastFetched() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// lookup finds kid. A token without a kid matches a set holding one key.
func lookup(keys map[string]crypto.PublicKey, kid string) (crypto.PublicKey, bool) {
	if k, ok := keys[kid]; ok {
		return k, true
	}
	if kid == "" && len(keys) == 1 {
		for _, k := range keys {
			return k, true
		}
	}
	return nil, false
}

// publicKey converts a JWK to a Go crypto.PublicKey.
func (k *jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		return k.rsaPublicKey()
	case "EC":
		return k.ecPublicKey()
	default:
		return nil, fmt.Errorf("unsupported key type: %s", k.Kty)
	}
}

func (k *jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode RSA N: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode RSA E: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 {
		return nil, stderrors.New("RSA key missing modulus or exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

func (k *jwk) ecPublicKey() (*ecdsa.PublicKey, error) {
	xBytes, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decode EC X: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decode EC Y: %w", err)
	}

	var curve elliptic.Curve
	switch k.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", k.Crv)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
