package setup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kbukum/oidcauth/auth"
	"github.com/kbukum/oidcauth/auth/jwt"
	"github.com/kbukum/oidcauth/auth/oidc"
	"github.com/kbukum/oidcauth/logger"
	"github.com/kbukum/oidcauth/observability"
)

// Registry names used by Build.
const (
	ModeOIDC = "oidc"
	ModeJWT  = "jwt"
)

// Validators is the result of Build.
type Validators struct {
	// Registry holds every validator built, with the active one as default.
	Registry *auth.Registry
	// OIDC is nil unless the OIDC provider is enabled.
	OIDC *oidc.Verifier
	// Tokens is nil unless local JWT key material is configured.
	Tokens *jwt.Service[*jwt.StandardClaims]
}

// Default returns the validator selected by the config.
func (v *Validators) Default() auth.TokenValidator {
	d, _ := v.Registry.Default()
	return d
}

// HealthCheckers returns the validators that report health.
func (v *Validators) HealthCheckers() []observability.HealthChecker {
	var out []observability.HealthChecker
	if v.OIDC != nil {
		out = append(out, v.OIDC)
	}
	return out
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	httpClient *http.Client
	metrics    *observability.AuthMetrics
	log        *logger.Logger
}

// WithHTTPClient sets the client used for OIDC discovery and key fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) { o.httpClient = c }
}

// WithMetrics records key refreshes on m.
func WithMetrics(m *observability.AuthMetrics) Option {
	return func(o *buildOptions) { o.metrics = m }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *buildOptions) { o.log = l }
}

// Build creates the validators named by cfg. cfg must already have defaults
// applied and be valid. The OIDC verifier is the default when enabled;
// otherwise the local JWT service is.
func Build(ctx context.Context, cfg *Config, opts ...Option) (*Validators, error) {
	o := buildOptions{log: logger.Get(logger.ComponentAuth)}
	for _, opt := range opts {
		opt(&o)
	}

	out := &Validators{Registry: auth.NewRegistry()}

	if cfg.OIDC.Enabled {
		vc := cfg.OIDC.ToVerifierConfig()
		vc.HTTPClient = o.httpClient
		if vc.HTTPClient == nil {
			client, err := cfg.OIDC.HTTPClient()
			if err != nil {
				return nil, err
			}
			vc.HTTPClient = client
		}
		vc.Metrics = o.metrics
		v, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer, vc)
		if err != nil {
			return nil, err
		}
		out.OIDC = v
		out.Registry.Register(ModeOIDC, v)
	}

	if hasKeyMaterial(&cfg.JWT) {
		svc, err := jwt.NewService(&cfg.JWT, func() *jwt.StandardClaims { return &jwt.StandardClaims{} })
		if err != nil {
			return nil, fmt.Errorf("auth.jwt: %w", err)
		}
		out.Tokens = svc
		out.Registry.Register(ModeJWT, svc)
	}

	if err := out.Registry.SetDefault(cfg.Mode()); err != nil {
		return nil, fmt.Errorf("auth: no %s validator configured", cfg.Mode())
	}

	o.log.Info("Token validators ready", logger.Fields(
		"default", cfg.Mode(),
		"registered", out.Registry.Names(),
	))
	return out, nil
}

func hasKeyMaterial(c *jwt.Config) bool {
	return c.Secret != "" || c.PrivateKeyFile != "" || c.PrivateKey != nil || c.PublicKey != nil
}
