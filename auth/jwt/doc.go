// Package jwt issues and verifies locally signed JWTs.
//
// It serves two roles: a TokenValidator for deployments without an external
// identity provider, and a token minting service for tests and development.
// The service is parameterized by the claims type used when parsing and
// generating; ValidateToken returns the untyped auth.Identity like every
// other validator.
//
//	type MyClaims struct {
//	    jwt.StandardClaims
//	    Email string `json:"email"`
//	}
//
//	svc, err := jwt.NewService(&cfg, func() *MyClaims { return &MyClaims{} })
//	token, err := svc.GenerateAccess(&MyClaims{Email: "a@b.com"})
//	id, err := svc.ValidateToken(ctx, token, auth.Validation{})
package jwt
