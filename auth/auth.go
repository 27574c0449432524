package auth

import (
	"context"
	"encoding/json"
)

// TokenValidator verifies a bearer token and returns the identity it
// carries. Implementations must be safe for concurrent use and must honour
// ctx cancellation. Returned errors should be *errors.AppError so callers
// can log a code, but callers must not depend on it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string, v Validation) (Identity, error)
}

// TokenValidatorFunc adapts an ordinary function to the TokenValidator interface.
//
//	validator := auth.TokenValidatorFunc(func(ctx context.Context, token string, v auth.Validation) (auth.Identity, error) {
//	    return lookupAPIKey(ctx, token)
//	})
type TokenValidatorFunc func(ctx context.Context, token string, v Validation) (Identity, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(ctx context.Context, token string, v Validation) (Identity, error) {
	return f(ctx, token, v)
}

// Identity is the verified claim set of a token.
type Identity struct {
	// Claims holds the decoded claims.
	Claims map[string]any
	// Raw is the original JSON payload, when the validator has it. Decode
	// prefers it over Claims so numbers keep their exact representation.
	Raw json.RawMessage
}

// NewIdentity builds an Identity from a claim map.
func NewIdentity(claims map[string]any) Identity {
	return Identity{Claims: claims}
}

// IsZero reports whether the identity carries no claims at all.
func (i Identity) IsZero() bool {
	return len(i.Claims) == 0 && len(i.Raw) == 0
}

// Subject returns the "sub" claim, or "" if absent.
func (i Identity) Subject() string {
	return i.stringClaim("sub")
}

// Issuer returns the "iss" claim, or "" if absent.
func (i Identity) Issuer() string {
	return i.stringClaim("iss")
}

// Audience returns the "aud" claim as a list. A single string audience is
// returned as a one-element list.
func (i Identity) Audience() []string {
	switch aud := i.Claims["aud"].(type) {
	case string:
		if aud == "" {
			return nil
		}
		return []string{aud}
	case []string:
		return aud
	case []any:
		out := make([]string, 0, len(aud))
		for _, a := range aud {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Has reports whether the named claim is present and non-null.
func (i Identity) Has(name string) bool {
	v, ok := i.Claims[name]
	return ok && v != nil
}

func (i Identity) stringClaim(name string) string {
	s, _ := i.Claims[name].(string)
	return s
}
