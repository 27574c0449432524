package oidc

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/oidcauth/security"
	"github.com/kbukum/oidcauth/validation"
)

// Config configures OIDC token verification.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Enabled controls whether OIDC verification is active.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Issuer is the provider's issuer URL (e.g., "https://accounts.google.com").
	// Used for discovery of the JWKS endpoint.
	Issuer string `yaml:"issuer" mapstructure:"issuer" validate:"required,url"`

	// ClientID is the OAuth2 client ID, the default expected "aud" claim.
	ClientID string `yaml:"client_id" mapstructure:"client_id" validate:"required"`

	// SupportedSigningAlgs restricts allowed signing algorithms (default: ["RS256"]).
	SupportedSigningAlgs []string `yaml:"supported_signing_algs" mapstructure:"supported_signing_algs" validate:"dive,oneof=RS256 RS384 RS512 ES256 ES384 ES512 PS256 PS384 PS512"`

	// JWKSCacheDuration controls how long keys are cached (default: "1h").
	JWKSCacheDuration time.Duration `yaml:"jwks_cache_duration" mapstructure:"jwks_cache_duration" validate:"gte=0"`

	// HTTPTimeout bounds each discovery and JWKS request (default: "10s").
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout" validate:"gte=0"`

	// UnknownKIDRefreshInterval is the minimum gap between refreshes caused
	// by a token whose key ID is not in the cached set (default: "10s").
	UnknownKIDRefreshInterval time.Duration `yaml:"unknown_kid_refresh_interval" mapstructure:"unknown_kid_refresh_interval" validate:"gte=0"`

	// SkipIssuerCheck skips issuer validation (for testing only).
	SkipIssuerCheck bool `yaml:"skip_issuer_check" mapstructure:"skip_issuer_check"`

	// TLS customises the connection to the provider.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.SupportedSigningAlgs) == 0 {
		c.SupportedSigningAlgs = []string{"RS256"}
	}
	if c.JWKSCacheDuration == 0 {
		c.JWKSCacheDuration = time.Hour
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.UnknownKIDRefreshInterval == 0 {
		c.UnknownKIDRefreshInterval = 10 * time.Second
	}
}

// Validate checks required fields when the provider is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.TLS.Validate()
}

// HTTPClient returns a client honouring the TLS settings, or nil when none
// are set.
func (c *Config) HTTPClient() (*http.Client, error) {
	client, err := c.TLS.HTTPClient(c.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("oidc: %w", err)
	}
	return client, nil
}

// ToVerifierConfig converts to a VerifierConfig for creating a Verifier.
func (c *Config) ToVerifierConfig() VerifierConfig {
	return VerifierConfig{
		ClientID:                  c.ClientID,
		SupportedSigningAlgs:      append([]string(nil), c.SupportedSigningAlgs...),
		JWKSCacheDuration:         c.JWKSCacheDuration,
		HTTPTimeout:               c.HTTPTimeout,
		UnknownKIDRefreshInterval: c.UnknownKIDRefreshInterval,
		SkipIssuerCheck:           c.SkipIssuerCheck,
	}
}
