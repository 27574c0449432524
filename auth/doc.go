// Package auth defines the contract between the authentication middleware
// and the services that verify bearer tokens.
//
// Subpackages:
//
//   - auth/authctx  per-request claims storage keyed by claims type
//   - auth/oidc     discovery and JWKS-backed validator for OIDC providers
//   - auth/jwt      local HMAC/RSA/ECDSA token service and validator
//   - auth/setup    builds a validator from configuration
//
// A validator returns an Identity, the verified claim set in untyped form.
// Callers convert it into their own claims type with Decode:
//
//	id, err := validator.ValidateToken(ctx, token, validation)
//	claims, err := auth.Decode[*MyClaims](id)
//
// Validators are registered by name in a Registry so one process can serve
// several providers:
//
//	reg := auth.NewRegistry()
//	reg.Register("oidc", verifier)
//	v, _ := reg.Default()
package auth
