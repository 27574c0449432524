package jwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/oidcauth/auth"
	"github.com/kbukum/oidcauth/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type userClaims struct {
	StandardClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func newUserClaims() *userClaims { return &userClaims{} }

func newHMACService(t *testing.T, cfg Config) *Service[*userClaims] {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	svc, err := NewService(&cfg, newUserClaims)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{Secret: testSecret}
	cfg.ApplyDefaults()
	if cfg.Method != HS256 || cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	rsaKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{"missing secret", Config{Method: HS256}, "secret is required"},
		{"short secret", Config{Method: HS256, Secret: "short"}, "at least 32 bytes"},
		{"missing rsa key", Config{Method: RS256}, "required for RSA"},
		{"wrong key type", Config{Method: ES256, PrivateKey: rsaKey}, "*ecdsa.PrivateKey"},
		{"unknown method", Config{Method: "none"}, "unsupported signing method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestNewServiceDoesNotMutateConfig(t *testing.T) {
	cfg := Config{Secret: testSecret}
	if _, err := NewService(&cfg, newUserClaims); err != nil {
		t.Fatal(err)
	}
	if cfg.Method != "" {
		t.Error("NewService must work on a copy of the config")
	}
}

// ---------------------------------------------------------------------------
// Generate / Parse
// ---------------------------------------------------------------------------

func TestGenerateAccessAndParse(t *testing.T) {
	svc := newHMACService(t, Config{Issuer: "https://local", Audience: []string{"api"}})

	token, err := svc.GenerateAccess(&userClaims{
		StandardClaims: StandardClaims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "u1"}},
		Email:          "a@b.com",
	})
	if err != nil {
		t.Fatalf("GenerateAccess failed: %v", err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "a@b.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != "https://local" || len(claims.Audience) != 1 {
		t.Errorf("standard claims not filled: %+v", claims.RegisteredClaims)
	}
	if claims.ID == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Errorf("expected jti, exp and iat: %+v", claims.RegisteredClaims)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	svc := newHMACService(t, Config{})
	other := newHMACService(t, Config{Secret: strings.Repeat("x", 32)})

	token, _ := other.GenerateAccess(&userClaims{Email: "a@b.com"})
	_, err := svc.Parse(token)
	if errors.CodeOf(err) != errors.ErrCodeInvalidToken {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestParseExpired(t *testing.T) {
	svc := newHMACService(t, Config{AccessTokenTTL: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _ := svc.GenerateAccess(&userClaims{})
	svc.now = time.Now

	_, err := svc.Parse(token)
	if errors.CodeOf(err) != errors.ErrCodeTokenExpired {
		t.Errorf("expected TOKEN_EXPIRED, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ValidateToken
// ---------------------------------------------------------------------------

func TestValidateTokenReturnsIdentity(t *testing.T) {
	svc := newHMACService(t, Config{Issuer: "https://local", Audience: []string{"api"}})
	token, _ := svc.GenerateAccess(&userClaims{
		StandardClaims: StandardClaims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "u1"}},
		Email:          "a@b.com",
	})

	id, err := svc.ValidateToken(context.Background(), token, auth.Validation{
		Issuer:         "https://local",
		Audience:       []string{"web", "api"},
		RequiredClaims: []string{"email"},
	})
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if id.Subject() != "u1" {
		t.Errorf("Subject() = %q", id.Subject())
	}
	if len(id.Raw) == 0 {
		t.Error("expected raw payload")
	}

	decoded, err := auth.Decode[*userClaims](id)
	if err != nil || decoded.Email != "a@b.com" {
		t.Errorf("Decode = %+v, %v", decoded, err)
	}
}

func TestValidateTokenPolicy(t *testing.T) {
	svc := newHMACService(t, Config{Issuer: "https://local", Audience: []string{"api"}})
	token, _ := svc.GenerateAccess(&userClaims{Email: "a@b.com"})

	tests := []struct {
		name     string
		v        auth.Validation
		wantCode errors.ErrorCode
	}{
		{"issuer mismatch", auth.Validation{Issuer: "https://other"}, errors.ErrCodeInvalidToken},
		{"audience mismatch", auth.Validation{Audience: []string{"web"}}, errors.ErrCodeInvalidToken},
		{"missing claim", auth.Validation{RequiredClaims: []string{"name"}}, errors.ErrCodeInvalidClaims},
		{"method not allowed", auth.Validation{ValidMethods: []string{"RS256"}}, errors.ErrCodeInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(context.Background(), token, tt.v)
			if got := errors.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %q, want %q (err=%v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestValidateTokenLeewayAndSkipExpiry(t *testing.T) {
	svc := newHMACService(t, Config{AccessTokenTTL: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-90 * time.Second) }
	token, _ := svc.GenerateAccess(&userClaims{})
	svc.now = time.Now

	ctx := context.Background()
	if _, err := svc.ValidateToken(ctx, token, auth.Validation{}); errors.CodeOf(err) != errors.ErrCodeTokenExpired {
		t.Errorf("expected TOKEN_EXPIRED without leeway, got %v", err)
	}
	if _, err := svc.ValidateToken(ctx, token, auth.Validation{Leeway: time.Minute}); err != nil {
		t.Errorf("expected leeway to accept token, got %v", err)
	}
	if _, err := svc.ValidateToken(ctx, token, auth.Validation{SkipExpiry: true}); err != nil {
		t.Errorf("expected SkipExpiry to accept token, got %v", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newHMACService(t, Config{})
	_, err := svc.ValidateToken(context.Background(), "invalid.jwt.token", auth.Validation{})
	if errors.CodeOf(err) != errors.ErrCodeInvalidToken {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestValidateTokenCanceledContext(t *testing.T) {
	svc := newHMACService(t, Config{})
	token, _ := svc.GenerateAccess(&userClaims{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ValidateToken(ctx, token, auth.Validation{}); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Asymmetric keys
// ---------------------------------------------------------------------------

func TestRSAFromKeyFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "key.pem")
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}

	svc, err := NewService(&Config{Method: RS256, PrivateKeyFile: path}, newUserClaims)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	token, err := svc.GenerateAccess(&userClaims{Email: "rsa@b.com"})
	if err != nil {
		t.Fatalf("GenerateAccess failed: %v", err)
	}

	verifier, err := NewService(&Config{Method: RS256, PublicKey: &key.PublicKey}, newUserClaims)
	if err != nil {
		t.Fatalf("verify-only service failed: %v", err)
	}
	claims, err := verifier.Parse(token)
	if err != nil || claims.Email != "rsa@b.com" {
		t.Errorf("Parse = %+v, %v", claims, err)
	}
	if _, err := verifier.Generate(&userClaims{}); err == nil {
		t.Error("verify-only service must not sign")
	}
}

func TestECDSARoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(&Config{Method: ES256, PrivateKey: key}, newUserClaims)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if svc.Method() != ES256 {
		t.Errorf("Method() = %s", svc.Method())
	}
	token, _ := svc.GenerateAccess(&userClaims{Email: "ec@b.com"})
	id, err := svc.ValidateToken(context.Background(), token, auth.Validation{ValidMethods: []string{"ES256"}})
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if id.Claims["email"] != "ec@b.com" {
		t.Errorf("claims = %v", id.Claims)
	}
}
