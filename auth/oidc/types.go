package oidc

import (
	"time"

	"github.com/kbukum/oidcauth/auth"
)

// IDToken represents a parsed and verified OIDC ID token.
type IDToken struct {
	// Issuer is the "iss" claim.
	Issuer string

	// Subject is the "sub" claim (provider's unique user ID).
	Subject string

	// Audience is the "aud" claim.
	Audience []string

	// ExpiresAt is the "exp" claim.
	ExpiresAt time.Time

	// IssuedAt is the "iat" claim.
	IssuedAt time.Time

	// Nonce is the "nonce" claim.
	Nonce string

	// Claims holds all token claims for project-specific extraction.
	Claims map[string]any
}

func newIDToken(id auth.Identity) *IDToken {
	t := &IDToken{
		Issuer:   id.Issuer(),
		Subject:  id.Subject(),
		Audience: id.Audience(),
		Nonce:    getString(id.Claims, "nonce"),
		Claims:   id.Claims,
	}
	if exp, ok := getFloat64(id.Claims, "exp"); ok {
		t.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iat, ok := getFloat64(id.Claims, "iat"); ok {
		t.IssuedAt = time.Unix(int64(iat), 0)
	}
	return t
}

// ToUserInfo extracts standard OIDC UserInfo claims from the ID token.
func (t *IDToken) ToUserInfo() *UserInfo {
	return &UserInfo{
		Subject:       t.Subject,
		Email:         getString(t.Claims, "email"),
		EmailVerified: getBool(t.Claims, "email_verified"),
		Name:          getString(t.Claims, "name"),
		GivenName:     getString(t.Claims, "given_name"),
		FamilyName:    getString(t.Claims, "family_name"),
		Picture:       getString(t.Claims, "picture"),
		Locale:        getString(t.Claims, "locale"),
		Raw:           t.Claims,
	}
}

// UserInfo represents the standard OIDC UserInfo claims.
type UserInfo struct {
	Subject       string         `json:"sub"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified,omitempty"`
	Name          string         `json:"name,omitempty"`
	GivenName     string         `json:"given_name,omitempty"`
	FamilyName    string         `json:"family_name,omitempty"`
	Picture       string         `json:"picture,omitempty"`
	Locale        string         `json:"locale,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// DiscoveryEndpoints holds the discovered OIDC endpoints.
type DiscoveryEndpoints struct {
	Authorization string
	Token         string
	UserInfo      string
	JWKS          string
}

type discoveryDoc struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	UserInfoEndpoint      string   `json:"userinfo_endpoint"`
	JWKSUri               string   `json:"jwks_uri"`
	SupportedAlgs         []string `json:"id_token_signing_alg_values_supported"`
}

func getString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func getBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func getFloat64(m map[string]any, key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}
