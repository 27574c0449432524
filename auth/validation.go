package auth

import (
	"fmt"
	"slices"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/oidcauth/errors"
	"github.com/kbukum/oidcauth/validation"
)

// Validation is the per-layer validation policy handed to the validator on
// every call. A layer owns its copy; use Clone before sharing one.
type Validation struct {
	// Issuer, when set, must equal the "iss" claim.
	Issuer string `yaml:"issuer" mapstructure:"issuer" validate:"omitempty,url"`
	// Audience, when set, must intersect the "aud" claim.
	Audience []string `yaml:"audience" mapstructure:"audience"`
	// ValidMethods restricts the accepted signing algorithms.
	ValidMethods []string `yaml:"valid_methods" mapstructure:"valid_methods" validate:"dive,oneof=HS256 HS384 HS512 RS256 RS384 RS512 ES256 ES384 ES512 PS256 PS384 PS512 EdDSA"`
	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration `yaml:"leeway" mapstructure:"leeway" validate:"gte=0"`
	// RequiredClaims must all be present and non-null.
	RequiredClaims []string `yaml:"required_claims" mapstructure:"required_claims"`
	// SkipExpiry disables time-based claim checks. Only for tests and tooling.
	SkipExpiry bool `yaml:"skip_expiry" mapstructure:"skip_expiry"`
}

// DefaultValidation returns the policy used when none is configured.
func DefaultValidation() Validation {
	return Validation{
		ValidMethods: []string{"RS256"},
		Leeway:       30 * time.Second,
	}
}

// Validate checks the policy's own fields.
func (v Validation) Validate() error {
	return validation.Validate(v)
}

// Clone returns a deep copy.
func (v Validation) Clone() Validation {
	v.Audience = slices.Clone(v.Audience)
	v.ValidMethods = slices.Clone(v.ValidMethods)
	v.RequiredClaims = slices.Clone(v.RequiredClaims)
	return v
}

// ParserOptions maps the policy onto golang-jwt parser options. Audience and
// required claims are not expressible there; call Check on the result.
func (v Validation) ParserOptions() []gojwt.ParserOption {
	var opts []gojwt.ParserOption
	if len(v.ValidMethods) > 0 {
		opts = append(opts, gojwt.WithValidMethods(v.ValidMethods))
	}
	if v.Leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(v.Leeway))
	}
	if v.SkipExpiry {
		opts = append(opts, gojwt.WithoutClaimsValidation())
		return opts
	}
	opts = append(opts, gojwt.WithIssuedAt())
	if v.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.Issuer))
	}
	return opts
}

// Check applies the issuer, audience and required-claim rules to a verified
// identity.
func (v Validation) Check(id Identity) error {
	if v.Issuer != "" && id.Issuer() != v.Issuer {
		return errors.InvalidToken(fmt.Errorf("issuer %q not accepted", id.Issuer()))
	}
	if len(v.Audience) > 0 && !v.audienceMatches(id.Audience()) {
		return errors.InvalidToken(fmt.Errorf("audience %v not accepted", id.Audience()))
	}
	return v.CheckRequired(id)
}

// CheckRequired verifies that every RequiredClaims entry is present.
func (v Validation) CheckRequired(id Identity) error {
	var missing []string
	for _, name := range v.RequiredClaims {
		if !id.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.InvalidClaims("required claims are missing", nil).
			WithDetail("missing", missing)
	}
	return nil
}

func (v Validation) audienceMatches(aud []string) bool {
	for _, want := range v.Audience {
		if slices.Contains(aud, want) {
			return true
		}
	}
	return false
}
