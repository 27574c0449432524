package jwt

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/oidcauth/auth"
	"github.com/kbukum/oidcauth/errors"
)

// Service generates and verifies tokens for claims type T. T must implement
// gojwt.Claims, typically by embedding StandardClaims.
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
	now      func() time.Time
}

var _ auth.TokenValidator = (*Service[*StandardClaims])(nil)

// NewService creates a token service. newEmpty returns a fresh T for Parse.
func NewService[T gojwt.Claims](cfg *Config, newEmpty func() T) (*Service[T], error) {
	c := *cfg
	c.Audience = append([]string(nil), cfg.Audience...)
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := c.loadKeys(); err != nil {
		return nil, err
	}
	return &Service[T]{cfg: c, newEmpty: newEmpty, now: time.Now}, nil
}

// Method returns the configured signing method.
func (s *Service[T]) Method() SigningMethod { return s.cfg.Method }

// Generate signs claims as given.
func (s *Service[T]) Generate(claims T) (string, error) {
	if s.cfg.signKey() == nil {
		return "", fmt.Errorf("jwt: no signing key configured for %s", s.cfg.Method)
	}
	token := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := token.SignedString(s.cfg.signKey())
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// GenerateAccess fills in standard claims with AccessTokenTTL, then signs.
func (s *Service[T]) GenerateAccess(claims T) (string, error) {
	if d, ok := any(claims).(Defaulter); ok {
		d.SetDefaults(s.now(), s.cfg.AccessTokenTTL, s.cfg.Issuer, s.cfg.Audience)
	}
	return s.Generate(claims)
}

// Parse verifies tokenString and decodes it into a fresh T. The configured
// issuer is enforced; expiry is always checked.
func (s *Service[T]) Parse(tokenString string) (T, error) {
	var zero T
	claims := s.newEmpty()
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{string(s.cfg.Method)}),
		gojwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, opts...)
	if err != nil {
		return zero, translate(err)
	}
	parsed, ok := token.Claims.(T)
	if !ok {
		return zero, errors.InvalidClaims("unexpected claims type", nil)
	}
	return parsed, nil
}

// ValidateToken implements auth.TokenValidator. The per-call policy decides
// issuer, audience, leeway and required claims; the signing method is always
// limited to the configured one.
func (s *Service[T]) ValidateToken(ctx context.Context, token string, v auth.Validation) (auth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, err
	}

	method := string(s.cfg.Method)
	if len(v.ValidMethods) > 0 && !slices.Contains(v.ValidMethods, method) {
		return auth.Identity{}, errors.InvalidToken(fmt.Errorf("signing method %s not accepted", method))
	}

	opts := append(v.ParserOptions(),
		gojwt.WithValidMethods([]string{method}),
		gojwt.WithTimeFunc(s.now),
	)
	parser := gojwt.NewParser(opts...)

	claims := gojwt.MapClaims{}
	if _, err := parser.ParseWithClaims(token, claims, s.keyFunc); err != nil {
		return auth.Identity{}, translate(err)
	}

	id := auth.Identity{Claims: claims}
	if parts := strings.Split(token, "."); len(parts) == 3 {
		if raw, err := parser.DecodeSegment(parts[1]); err == nil {
			id.Raw = raw
		}
	}
	if err := v.Check(id); err != nil {
		return auth.Identity{}, err
	}
	return id, nil
}

func (s *Service[T]) keyFunc(token *gojwt.Token) (any, error) {
	if token.Method.Alg() != string(s.cfg.Method) {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	return s.cfg.verifyKey(), nil
}

// translate maps golang-jwt errors onto application error codes.
func translate(err error) error {
	if stderrors.Is(err, gojwt.ErrTokenExpired) {
		return errors.TokenExpired().WithCause(err)
	}
	return errors.InvalidToken(err)
}
