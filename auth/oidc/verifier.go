package oidc

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/oidcauth/auth"
	"github.com/kbukum/oidcauth/errors"
	"github.com/kbukum/oidcauth/logger"
	"github.com/kbukum/oidcauth/observability"
	"github.com/kbukum/oidcauth/resilience"
	"github.com/kbukum/oidcauth/version"
)

// Verifier validates OIDC tokens using discovery and a cached, rotating
// JWKS. It implements auth.TokenValidator and is safe for concurrent use.
type Verifier struct {
	issuer  string
	config  VerifierConfig
	disco   *discoveryDoc
	keys    *keySet
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
	now     func() time.Time
}

var _ auth.TokenValidator = (*Verifier)(nil)

// VerifierConfig configures the OIDC token verifier.
type VerifierConfig struct {
	// ClientID is the expected "aud" claim when the validation policy names
	// no audience (required).
	ClientID string

	// SkipExpiryCheck skips time-based claim checks (for testing only).
	SkipExpiryCheck bool

	// SkipIssuerCheck skips the issuer validation.
	SkipIssuerCheck bool

	// SupportedSigningAlgs restricts allowed signing algorithms when the
	// validation policy names none. Default: ["RS256"].
	SupportedSigningAlgs []string

	// HTTPClient is an optional HTTP client for discovery and JWKS requests.
	HTTPClient *http.Client

	// HTTPTimeout is used when HTTPClient is nil (default: 10s).
	HTTPTimeout time.Duration

	// JWKSCacheDuration controls how long keys are cached (default: 1h).
	JWKSCacheDuration time.Duration

	// UnknownKIDRefreshInterval limits refreshes triggered by unknown key
	// IDs (default: 10s).
	UnknownKIDRefreshInterval time.Duration

	// Retry and Breaker guard every call to the provider.
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig

	// UserAgent is sent on provider requests (default: version.UserAgent).
	UserAgent string

	// Logger defaults to the registered "oidc" component logger.
	Logger *logger.Logger

	// Metrics, when set, counts key refreshes.
	Metrics *observability.AuthMetrics
}

func (c *VerifierConfig) applyDefaults() {
	if len(c.SupportedSigningAlgs) == 0 {
		c.SupportedSigningAlgs = []string{"RS256"}
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.HTTPTimeout}
	}
	if c.JWKSCacheDuration == 0 {
		c.JWKSCacheDuration = time.Hour
	}
	if c.UnknownKIDRefreshInterval == 0 {
		c.UnknownKIDRefreshInterval = 10 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = resilience.DefaultRetryConfig()
	}
	if c.Breaker.Name == "" {
		c.Breaker = resilience.DefaultCircuitBreakerConfig("oidc")
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent("")
	}
	if c.Logger == nil {
		c.Logger = logger.Get(logger.ComponentOIDC)
	}
}

// NewVerifier creates a verifier for issuer. It performs discovery; the key
// set is fetched lazily on the first token.
func NewVerifier(ctx context.Context, issuer string, cfg VerifierConfig) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.Validation("oidc: client ID is required")
	}
	cfg.applyDefaults()

	log := cfg.Logger
	breakerCfg := cfg.Breaker
	onChange := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Circuit breaker state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
		if onChange != nil {
			onChange(name, from, to)
		}
	}
	breaker := resilience.NewCircuitBreaker(breakerCfg)

	issuer = strings.TrimRight(issuer, "/")
	doc, err := discover(ctx, issuer, &cfg, breaker)
	if err != nil {
		return nil, fmt.Errorf("oidc: discovery failed for %s: %w", issuer, err)
	}

	v := &Verifier{
		issuer:  issuer,
		config:  cfg,
		disco:   doc,
		breaker: breaker,
		log:     log,
		now:     time.Now,
	}
	v.keys = &keySet{
		uri:       doc.JWKSUri,
		issuer:    issuer,
		client:    cfg.HTTPClient,
		ttl:       cfg.JWKSCacheDuration,
		userAgent: cfg.UserAgent,
		retry:     cfg.Retry,
		breaker:   breaker,
		limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "oidc-unknown-kid",
			Rate:  1 / cfg.UnknownKIDRefreshInterval.Seconds(),
			Burst: 1,
		}),
		metrics: cfg.Metrics,
		log:     log,
		now:     func() time.Time { return v.now() },
	}

	log.Info("OIDC verifier ready", logger.Fields(observability.AttrIssuer, issuer, "jwks_uri", doc.JWKSUri))
	return v, nil
}

// Issuer returns the issuer expected in tokens, as discovered.
func (v *Verifier) Issuer() string {
	if v.disco != nil && v.disco.Issuer != "" {
		return v.disco.Issuer
	}
	return v.issuer
}

// ValidateToken implements auth.TokenValidator. The policy's issuer,
// audience and methods override the verifier's own; audience falls back to
// the client ID and issuer to the discovered one.
func (v *Verifier) ValidateToken(ctx context.Context, token string, policy auth.Validation) (auth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, err
	}

	parser := gojwt.NewParser(v.parserOptions(policy)...)
	claims := gojwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *gojwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.key(ctx, kid)
	})
	if err != nil {
		return auth.Identity{}, v.translate(ctx, err)
	}

	id := auth.Identity{Claims: claims}
	if parts := strings.Split(token, "."); len(parts) == 3 {
		if raw, err := parser.DecodeSegment(parts[1]); err == nil {
			id.Raw = raw
		}
	}

	check := auth.Validation{
		Issuer:         v.expectedIssuer(policy),
		Audience:       policy.Audience,
		RequiredClaims: policy.RequiredClaims,
	}
	if len(check.Audience) == 0 {
		check.Audience = []string{v.config.ClientID}
	}
	if err := check.Check(id); err != nil {
		return auth.Identity{}, err
	}
	return id, nil
}

// Verify validates a raw ID token against the verifier's own settings.
func (v *Verifier) Verify(ctx context.Context, rawIDToken string) (*IDToken, error) {
	id, err := v.ValidateToken(ctx, rawIDToken, auth.Validation{})
	if err != nil {
		return nil, err
	}
	return newIDToken(id), nil
}

// DiscoveryEndpoints returns the discovered OAuth2/OIDC endpoints.
func (v *Verifier) DiscoveryEndpoints() DiscoveryEndpoints {
	if v.disco == nil {
		return DiscoveryEndpoints{}
	}
	return DiscoveryEndpoints{
		Authorization: v.disco.AuthorizationEndpoint,
		Token:         v.disco.TokenEndpoint,
		UserInfo:      v.disco.UserInfoEndpoint,
		JWKS:          v.disco.JWKSUri,
	}
}

// CheckHealth implements observability.HealthChecker. An open breaker is
// down; a half-open breaker or an expired key set is degraded.
func (v *Verifier) CheckHealth(_ context.Context) observability.Health {
	h := observability.Health{
		Name:   "oidc",
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"issuer":  v.Issuer(),
			"breaker": v.breaker.State().String(),
		},
	}

	fetched := v.keys.lastFetched()
	if !fetched.IsZero() {
		h.Details["keys_fetched_at"] = fetched.UTC().Format(time.RFC3339)
	}

	switch v.breaker.State() {
	case resilience.StateOpen:
		h.Status = observability.HealthStatusDown
		h.Message = "identity provider circuit is open"
	case resilience.StateHalfOpen:
		h.Status = observability.HealthStatusDegraded
		h.Message = "identity provider circuit is probing"
	default:
		if !fetched.IsZero() && v.now().Sub(fetched) >= v.config.JWKSCacheDuration {
			h.Status = observability.HealthStatusDegraded
			h.Message = "signing keys are stale"
		}
	}
	return h
}

func (v *Verifier) parserOptions(policy auth.Validation) []gojwt.ParserOption {
	algs := policy.ValidMethods
	if len(algs) == 0 {
		algs = v.config.SupportedSigningAlgs
	}
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods(algs),
		gojwt.WithTimeFunc(v.now),
	}
	if policy.Leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(policy.Leeway))
	}
	if policy.SkipExpiry || v.config.SkipExpiryCheck {
		opts = append(opts, gojwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, gojwt.WithIssuedAt(), gojwt.WithExpirationRequired())
	}
	return opts
}

func (v *Verifier) expectedIssuer(policy auth.Validation) string {
	switch {
	case policy.Issuer != "":
		return policy.Issuer
	case v.config.SkipIssuerCheck:
		return ""
	default:
		return v.Issuer()
	}
}

// translate keeps context errors and provider AppErrors from the key lookup
// and maps everything else onto token errors.
func (v *Verifier) translate(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, gojwt.ErrTokenExpired) {
		return errors.TokenExpired().WithCause(err)
	}
	return errors.InvalidToken(err)
}
