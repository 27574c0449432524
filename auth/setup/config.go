package setup

import (
	"fmt"
	"time"

	"github.com/kbukum/oidcauth/auth"
	"github.com/kbukum/oidcauth/auth/jwt"
	"github.com/kbukum/oidcauth/auth/oidc"
)

// Config composes everything needed to build a validator and an auth layer.
//
//	auth:
//	  enabled: true
//	  skip_paths: ["/health"]
//	  validation:
//	    audience: ["my-api"]
//	  oidc:
//	    enabled: true
//	    issuer: https://accounts.google.com
//	    client_id: my-client-id
//	  jwt:
//	    secret: ${AUTH_JWT_SECRET}
type Config struct {
	// Enabled controls whether the auth layer is attached at all.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SkipPaths are path prefixes forwarded without an authentication attempt.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
	// Validation is the policy handed to the validator on every request.
	Validation auth.Validation `yaml:"validation" mapstructure:"validation"`
	// OIDC configures the provider-backed validator. Takes precedence over JWT.
	OIDC oidc.Config `yaml:"oidc" mapstructure:"oidc"`
	// JWT configures the local token service.
	JWT jwt.Config `yaml:"jwt" mapstructure:"jwt"`
}

// ApplyDefaults fills in sub-config defaults. When no methods are listed the
// policy accepts what the active validator signs with.
func (c *Config) ApplyDefaults() {
	c.OIDC.ApplyDefaults()
	c.JWT.ApplyDefaults()
	if len(c.Validation.ValidMethods) == 0 {
		if c.OIDC.Enabled {
			c.Validation.ValidMethods = append([]string(nil), c.OIDC.SupportedSigningAlgs...)
		} else {
			c.Validation.ValidMethods = []string{string(c.JWT.Method)}
		}
	}
	if c.Validation.Leeway == 0 {
		c.Validation.Leeway = auth.DefaultValidation().Leeway
	}
}

// Validate checks the policy and the active validator's config.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("auth.validation: %w", err)
	}
	if c.OIDC.Enabled {
		if err := c.OIDC.Validate(); err != nil {
			return fmt.Errorf("auth.oidc: %w", err)
		}
		return nil
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth.jwt: %w", err)
	}
	return nil
}

// Mode names the validator Build will make the default.
func (c *Config) Mode() string {
	if c.OIDC.Enabled {
		return ModeOIDC
	}
	return ModeJWT
}

// Describe returns a one-line summary safe to log.
func (c *Config) Describe() string {
	if !c.Enabled {
		return "auth disabled"
	}
	if c.OIDC.Enabled {
		return fmt.Sprintf("oidc issuer=%s client_id=%s methods=%v", c.OIDC.Issuer, c.OIDC.ClientID, c.Validation.ValidMethods)
	}
	return fmt.Sprintf("jwt method=%s ttl=%s methods=%v", c.JWT.Method, c.JWT.AccessTokenTTL.Round(time.Second), c.Validation.ValidMethods)
}
