package jwt

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Defaulter is implemented by claims types that accept standard claims
// before signing. Embedding StandardClaims provides it.
type Defaulter interface {
	SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string)
}

// StandardClaims wraps the registered claims and fills them in on
// GenerateAccess. Embed it in custom claims types.
type StandardClaims struct {
	gojwt.RegisteredClaims
}

// SetDefaults sets iat, nbf, exp, iss, aud and jti where they are empty.
func (c *StandardClaims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.NotBefore == nil {
		c.NotBefore = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil && ttl > 0 {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && len(audience) > 0 {
		c.Audience = gojwt.ClaimStrings(audience)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
}
