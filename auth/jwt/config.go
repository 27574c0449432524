package jwt

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines supported JWT signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	RS384 SigningMethod = "RS384"
	RS512 SigningMethod = "RS512"
	ES256 SigningMethod = "ES256"
	ES384 SigningMethod = "ES384"
	ES512 SigningMethod = "ES512"
)

func (m SigningMethod) family() string {
	if len(m) < 2 {
		return ""
	}
	return string(m[:2])
}

// Config configures the token service.
type Config struct {
	// Secret is the HMAC key for HS* methods.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `yaml:"method" mapstructure:"method"`
	// PrivateKeyFile is a PEM file with the RSA or ECDSA signing key.
	PrivateKeyFile string `yaml:"private_key_file" mapstructure:"private_key_file"`
	// Issuer is written to "iss" when generating tokens.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	// Audience is written to "aud" when generating tokens.
	Audience []string `yaml:"audience" mapstructure:"audience"`
	// AccessTokenTTL is the lifetime of access tokens (default: 15m).
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" mapstructure:"access_token_ttl"`

	// PrivateKey takes precedence over PrivateKeyFile.
	PrivateKey any `yaml:"-" mapstructure:"-"`
	// PublicKey verifies tokens. Derived from PrivateKey when unset.
	PublicKey any `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
}

// Validate checks the key material required by the signing method.
func (c *Config) Validate() error {
	switch c.Method.family() {
	case "HS":
		if c.Secret == "" {
			return errors.New("jwt: secret is required for HMAC signing methods")
		}
		if len(c.Secret) < 32 {
			return errors.New("jwt: secret must be at least 32 bytes")
		}
	case "RS":
		if c.PrivateKey == nil && c.PublicKey == nil && c.PrivateKeyFile == "" {
			return errors.New("jwt: a private key or key file is required for RSA signing methods")
		}
		if c.PrivateKey != nil {
			if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
				return errors.New("jwt: private key must be *rsa.PrivateKey for RSA signing methods")
			}
		}
	case "ES":
		if c.PrivateKey == nil && c.PublicKey == nil && c.PrivateKeyFile == "" {
			return errors.New("jwt: a private key or key file is required for ECDSA signing methods")
		}
		if c.PrivateKey != nil {
			if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
				return errors.New("jwt: private key must be *ecdsa.PrivateKey for ECDSA signing methods")
			}
		}
	default:
		return fmt.Errorf("jwt: unsupported signing method: %s", c.Method)
	}
	if c.AccessTokenTTL < 0 {
		return errors.New("jwt: access_token_ttl must not be negative")
	}
	return nil
}

// loadKeys reads PrivateKeyFile into PrivateKey when no key was given.
func (c *Config) loadKeys() error {
	if c.PrivateKey != nil || c.PrivateKeyFile == "" {
		return nil
	}
	pem, err := os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("jwt: read private key: %w", err)
	}
	switch c.Method.family() {
	case "RS":
		c.PrivateKey, err = gojwt.ParseRSAPrivateKeyFromPEM(pem)
	case "ES":
		c.PrivateKey, err = gojwt.ParseECPrivateKeyFromPEM(pem)
	default:
		return fmt.Errorf("jwt: private_key_file is not used with %s", c.Method)
	}
	if err != nil {
		return fmt.Errorf("jwt: parse private key: %w", err)
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	if m := gojwt.GetSigningMethod(string(c.Method)); m != nil {
		return m
	}
	return gojwt.SigningMethodHS256
}

func (c *Config) signKey() any {
	if c.Method.family() == "HS" {
		return []byte(c.Secret)
	}
	return c.PrivateKey
}

func (c *Config) verifyKey() any {
	if c.Method.family() == "HS" {
		return []byte(c.Secret)
	}
	if c.PublicKey != nil {
		return c.PublicKey
	}
	switch pk := c.PrivateKey.(type) {
	case *rsa.PrivateKey:
		return &pk.PublicKey
	case *ecdsa.PrivateKey:
		return &pk.PublicKey
	default:
		return c.PrivateKey
	}
}
