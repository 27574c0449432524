package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/oidcauth/auth"
	"github.com/kbukum/oidcauth/auth/authctx"
	"github.com/kbukum/oidcauth/auth/jwt"
	"github.com/kbukum/oidcauth/errors"
	"github.com/kbukum/oidcauth/logger"
	"github.com/kbukum/oidcauth/observability"
	"github.com/kbukum/oidcauth/server/middleware"
)

type CustomClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type AdminClaims struct {
	Sub   string   `json:"sub"`
	Roles []string `json:"roles"`
}

// fakeValidator accepts the tokens in its table and rejects everything else.
type fakeValidator struct {
	tokens map[string]map[string]any
	calls  atomic.Int32

	mu      sync.Mutex
	lastTok string
	lastPol auth.Validation
}

func newFakeValidator() *fakeValidator {
	return &fakeValidator{tokens: map[string]map[string]any{
		"good-token":  {"sub": "u1", "email": "a@b.com"},
		"admin-token": {"sub": "root", "email": "root@b.com", "roles": []any{"admin"}},
		"bad-shape":   {"sub": 42},
	}}
}

func (f *fakeValidator) ValidateToken(_ context.Context, token string, v auth.Validation) (auth.Identity, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastTok, f.lastPol = token, v
	f.mu.Unlock()
	claims, ok := f.tokens[token]
	if !ok {
		return auth.Identity{}, errors.InvalidToken(fmt.Errorf("unknown token %q", token))
	}
	return auth.NewIdentity(claims), nil
}

func (f *fakeValidator) last() (string, auth.Validation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTok, f.lastPol
}

func newLayer(t *testing.T, v auth.TokenValidator, opts ...middleware.AuthOption) *middleware.AuthLayer {
	t.Helper()
	opts = append([]middleware.AuthOption{middleware.WithAuthLogger(logger.NewNop())}, opts...)
	l, err := middleware.NewAuthLayer(v, auth.Validation{ValidMethods: []string{"RS256"}}, opts...)
	if err != nil {
		t.Fatalf("NewAuthLayer: %v", err)
	}
	return l
}

// protectedHandler mirrors the demo's /protected route.
func protectedHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := authctx.Get[CustomClaims](r.Context())
	if !ok {
		_, _ = io.WriteString(w, "Not authenticated")
		return
	}
	fmt.Fprintf(w, "Hello %s <%s>", claims.Sub, claims.Email)
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", http.NoBody)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNewAuthLayer_NilValidator(t *testing.T) {
	if _, err := middleware.NewAuthLayer(nil, auth.Validation{}); err == nil {
		t.Fatal("expected error for nil validator")
	}
}

func TestAuth_ScenarioA_NoHeader(t *testing.T) {
	v := newFakeValidator()
	h := middleware.Auth[CustomClaims](newLayer(t, v))(http.HandlerFunc(protectedHandler))

	rr := serve(h, "")
	if rr.Code != http.StatusOK || rr.Body.String() != "Not authenticated" {
		t.Fatalf("expected 200 Not authenticated, got %d %q", rr.Code, rr.Body.String())
	}
	if v.calls.Load() != 0 {
		t.Errorf("validator should not be called without a credential")
	}
}

func TestAuth_ScenarioB_InvalidToken(t *testing.T) {
	v := newFakeValidator()
	h := middleware.Auth[CustomClaims](newLayer(t, v))(http.HandlerFunc(protectedHandler))

	rr := serve(h, "Bearer invalid.jwt.token")
	if rr.Code != http.StatusOK || rr.Body.String() != "Not authenticated" {
		t.Fatalf("expected 200 Not authenticated, got %d %q", rr.Code, rr.Body.String())
	}
	if tok, _ := v.last(); tok != "invalid.jwt.token" {
		t.Errorf("expected bearer prefix to be stripped, got %q", tok)
	}
}

func TestAuth_ScenarioC_ValidToken(t *testing.T) {
	v := newFakeValidator()
	var got CustomClaims
	var ok bool
	h := middleware.Auth[CustomClaims](newLayer(t, v))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = authctx.Get[CustomClaims](r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	serve(h, "Bearer good-token")
	if !ok {
		t.Fatal("expected claims to be stored")
	}
	if want := (CustomClaims{Sub: "u1", Email: "a@b.com"}); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestAuth_PassesPolicyCopyToValidator(t *testing.T) {
	v := newFakeValidator()
	policy := auth.Validation{Audience: []string{"api"}, ValidMethods: []string{"RS256"}, Leeway: time.Second}
	l, err := middleware.NewAuthLayer(v, policy, middleware.WithAuthLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("NewAuthLayer: %v", err)
	}
	policy.Audience[0] = "mutated"

	serve(middleware.Auth[CustomClaims](l)(http.HandlerFunc(protectedHandler)), "Bearer good-token")

	_, got := v.last()
	if len(got.Audience) != 1 || got.Audience[0] != "api" || got.Leeway != time.Second {
		t.Errorf("expected layer's own policy copy, got %+v", got)
	}
	if l.Validation().Audience[0] != "api" {
		t.Errorf("expected Validation() to return the layer policy")
	}
}

// The auth layer accepts a header without the Bearer scheme and hands the
// whole value to the validator. This is intentional.
func TestAuth_NonBearerValueIsPassedThroughIntentionally(t *testing.T) {
	v := newFakeValidator()
	h := middleware.Auth[CustomClaims](newLayer(t, v))(http.HandlerFunc(protectedHandler))

	rr := serve(h, "good-token")
	if rr.Body.String() != "Hello u1 <a@b.com>" {
		t.Fatalf("expected raw header value to authenticate, got %q", rr.Body.String())
	}

	serve(h, "Basic dXNlcjpwYXNz")
	if tok, _ := v.last(); tok != "Basic dXNlcjpwYXNz" {
		t.Errorf("expected whole value to reach validator, got %q", tok)
	}

	serve(h, "bearer good-token")
	if tok, _ := v.last(); tok != "bearer good-token" {
		t.Errorf("expected lowercase scheme to be kept, got %q", tok)
	}
}

func TestAuth_NonVisibleHeaderIsNoCredential(t *testing.T) {
	v := newFakeValidator()
	h := middleware.Auth[CustomClaims](newLayer(t, v))(http.HandlerFunc(protectedHandler))

	for _, value := range []string{"Bearer good\x01token", "Bearer gööd"} {
		rr := serve(h, value)
		if rr.Body.String() != "Not authenticated" {
			t.Errorf("%q: expected Not authenticated, got %q", value, rr.Body.String())
		}
	}
	if v.calls.Load() != 0 {
		t.Errorf("validator should not see non-visible header values")
	}
}

func TestAuth_P1_MissingCredentialMatchesInnerHandler(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Path", r.URL.Path)
		if authctx.Has[CustomClaims](r.Context()) {
			t.Error("claims slot should be empty")
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, r.Method+" "+r.URL.Path)
	})
	h := middleware.Auth[CustomClaims](newLayer(t, newFakeValidator()))(inner)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		for _, path := range []string{"/", "/protected", "/a/b/c"} {
			want := httptest.NewRecorder()
			inner.ServeHTTP(want, httptest.NewRequest(method, path, http.NoBody))

			got := httptest.NewRecorder()
			h.ServeHTTP(got, httptest.NewRequest(method, path, http.NoBody))

			assertSameResponse(t, method+" "+path, want, got)
		}
	}
}

func TestAuth_P2_RejectedTokenStillReachesHandler(t *testing.T) {
	h := middleware.Auth[CustomClaims](newLayer(t, newFakeValidator()))(http.HandlerFunc(protectedHandler))

	for _, tok := range []string{"Bearer nope", "Bearer a.b.c", "Bearer x"} {
		rr := serve(h, tok)
		if rr.Code != http.StatusOK || rr.Body.String() != "Not authenticated" {
			t.Errorf("%q: expected pass-through, got %d %q", tok, rr.Code, rr.Body.String())
		}
	}
}

func TestAuth_UndecodableClaimsLeaveSlotEmpty(t *testing.T) {
	var buf bytes.Buffer
	l := newLayer(t, newFakeValidator(), middleware.WithAuthLogger(bufferLogger(&buf)))
	h := middleware.Auth[CustomClaims](l)(http.HandlerFunc(protectedHandler))

	rr := serve(h, "Bearer bad-shape")
	if rr.Body.String() != "Not authenticated" {
		t.Fatalf("expected Not authenticated, got %q", rr.Body.String())
	}
	if !strings.Contains(buf.String(), "Claims decode failed") {
		t.Errorf("expected decode failure to be logged, got %s", buf.String())
	}
}

func TestAuth_P4_TwoClaimsShapesOneValidator(t *testing.T) {
	v := newFakeValidator()
	l := newLayer(t, v)

	mux := http.NewServeMux()
	mux.Handle("/protected", middleware.Auth[CustomClaims](l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authctx.Has[AdminClaims](r.Context()) {
			t.Error("/protected should not see AdminClaims")
		}
		protectedHandler(w, r)
	})))
	mux.Handle("/admin", middleware.Auth[AdminClaims](l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authctx.Has[CustomClaims](r.Context()) {
			t.Error("/admin should not see CustomClaims")
		}
		claims, ok := authctx.Get[AdminClaims](r.Context())
		if !ok {
			_, _ = io.WriteString(w, "Not authenticated")
			return
		}
		fmt.Fprintf(w, "%s %v", claims.Sub, claims.Roles)
	})))

	get := func(path, tok string) string {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		return rr.Body.String()
	}

	if got := get("/protected", "admin-token"); got != "Hello root <root@b.com>" {
		t.Errorf("/protected: got %q", got)
	}
	if got := get("/admin", "admin-token"); got != "root [admin]" {
		t.Errorf("/admin: got %q", got)
	}
	if got := get("/admin", "good-token"); got != "u1 []" {
		t.Errorf("/admin with user token: got %q", got)
	}
}

func TestAuth_P4_StackedAttachmentsKeepSeparateSlots(t *testing.T) {
	l := newLayer(t, newFakeValidator())
	h := middleware.Chain(
		middleware.Auth[CustomClaims](l),
		middleware.Auth[AdminClaims](l.Clone()),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := authctx.MustGet[CustomClaims](r.Context())
		a := authctx.MustGet[AdminClaims](r.Context())
		fmt.Fprintf(w, "%s/%s/%v", c.Sub, c.Email, a.Roles)
	}))

	rr := serve(h, "Bearer admin-token")
	if rr.Body.String() != "root/root@b.com/[admin]" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestAuth_P5_ResponseUntouched(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Custom", "yes")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	})
	h := middleware.Auth[CustomClaims](newLayer(t, newFakeValidator()))(inner)

	for _, authz := range []string{"", "Bearer good-token", "Bearer nope", "Bearer bad-shape", "raw"} {
		want := httptest.NewRecorder()
		inner.ServeHTTP(want, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assertSameResponse(t, authz, want, serve(h, authz))
	}
}

func TestAuth_P5_WriterIsNotWrapped(t *testing.T) {
	rr := httptest.NewRecorder()
	h := middleware.Auth[CustomClaims](newLayer(t, newFakeValidator()))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if w != http.ResponseWriter(rr) {
			t.Error("expected the original ResponseWriter")
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer good-token")
	h.ServeHTTP(rr, req)
}

func TestAuth_P6_ConcurrentRequestsDoNotLeak(t *testing.T) {
	v := auth.TokenValidatorFunc(func(_ context.Context, token string, _ auth.Validation) (auth.Identity, error) {
		var n int
		if _, err := fmt.Sscanf(token, "user-%d", &n); err != nil {
			return auth.Identity{}, errors.InvalidToken(err)
		}
		if n%3 == 0 {
			return auth.Identity{}, errors.TokenExpired()
		}
		time.Sleep(time.Duration(n%5) * time.Millisecond)
		return auth.NewIdentity(map[string]any{"sub": token}), nil
	})
	h := middleware.Auth[CustomClaims](newLayer(t, v))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authctx.Get[CustomClaims](r.Context())
		if !ok {
			_, _ = io.WriteString(w, "anonymous")
			return
		}
		_, _ = io.WriteString(w, claims.Sub)
	}))

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			authz, want := fmt.Sprintf("Bearer user-%d", i), fmt.Sprintf("user-%d", i)
			switch {
			case i%7 == 0:
				authz, want = "", "anonymous"
			case i%3 == 0:
				want = "anonymous"
			}
			rr := serve(h, authz)
			if rr.Body.String() != want {
				t.Errorf("request %d: expected %q, got %q", i, want, rr.Body.String())
			}
		}(i)
	}
	wg.Wait()
}

func TestAuth_CanceledDuringValidationDiscardsClaims(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v := auth.TokenValidatorFunc(func(context.Context, string, auth.Validation) (auth.Identity, error) {
		cancel()
		return auth.NewIdentity(map[string]any{"sub": "late"}), nil
	})
	called := false
	h := middleware.Auth[CustomClaims](newLayer(t, v, middleware.WithAuthLogger(bufferLogger(&buf))))(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			if authctx.Has[CustomClaims](r.Context()) {
				t.Error("claims from a canceled request must be discarded")
			}
		}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer any")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("inner handler should still be called")
	}
	if !strings.Contains(buf.String(), "discarding result") {
		t.Errorf("expected cancellation to be logged, got %s", buf.String())
	}
}

func TestAuth_SkipPaths(t *testing.T) {
	v := newFakeValidator()
	l := newLayer(t, v, middleware.WithSkipPaths("/health"))
	h := middleware.Auth[CustomClaims](l)(http.HandlerFunc(protectedHandler))

	req := httptest.NewRequest(http.MethodGet, "/health/live", http.NoBody)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Body.String() != "Not authenticated" || v.calls.Load() != 0 {
		t.Errorf("expected skip path to bypass validation, got %q after %d calls", rr.Body.String(), v.calls.Load())
	}
}

func TestAuthLayer_Clone(t *testing.T) {
	v := newFakeValidator()
	orig := newLayer(t, v, middleware.WithSkipPaths("/a"))
	clone := orig.Clone()
	middleware.WithSkipPaths("/b")(clone)

	h := middleware.Auth[CustomClaims](orig)(http.HandlerFunc(protectedHandler))
	req := httptest.NewRequest(http.MethodGet, "/b", http.NoBody)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Body.String() != "Hello u1 <a@b.com>" {
		t.Errorf("clone changes leaked into original: %q", rr.Body.String())
	}

	serve(middleware.Auth[CustomClaims](clone)(http.HandlerFunc(protectedHandler)), "Bearer good-token")
	if v.calls.Load() != 2 {
		t.Errorf("expected clone to share the validator, got %d calls", v.calls.Load())
	}
}

func TestAuth_Logging(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.Auth[CustomClaims](newLayer(t, newFakeValidator(), middleware.WithAuthLogger(bufferLogger(&buf))))(
		http.HandlerFunc(protectedHandler))

	serve(h, "")
	serve(h, "Bearer good-token")
	serve(h, "Bearer nope")

	entries := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		entries[e["message"].(string)] = e
	}

	for msg, level := range map[string]string{
		"Extracting claims from headers": "debug",
		"No credential supplied":         "debug",
		"Authenticated request":          "info",
		"Authentication failed":          "warn",
	} {
		e, ok := entries[msg]
		if !ok {
			t.Errorf("missing log %q", msg)
			continue
		}
		if e["level"] != level {
			t.Errorf("%q: expected level %s, got %v", msg, level, e["level"])
		}
	}
	if e := entries["Authentication failed"]; e != nil && e["code"] != string(errors.ErrCodeInvalidToken) {
		t.Errorf("expected INVALID_TOKEN code, got %v", e["code"])
	}
	if e := entries["Authenticated request"]; e != nil && e["subject"] != "u1" {
		t.Errorf("expected subject u1, got %v", e["subject"])
	}
}

func TestAuth_MetricsAndTracing(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, err := observability.NewAuthMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewAuthMetrics: %v", err)
	}

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	l := newLayer(t, newFakeValidator(),
		middleware.WithAuthMetrics(metrics),
		middleware.WithAuthTracer(tp.Tracer("test")),
		middleware.WithSkipPaths("/health"),
	)
	h := middleware.Auth[CustomClaims](l)(http.HandlerFunc(protectedHandler))

	serve(h, "")
	serve(h, "Bearer good-token")
	serve(h, "Bearer good-token")
	serve(h, "Bearer nope")
	serve(h, "Bearer bad-shape")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != observability.MetricAuthAttempts {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				got[v.AsString()] += dp.Value
			}
		}
	}
	want := map[string]int64{"anonymous": 1, "authenticated": 2, "rejected": 1, "undecodable": 1, "skipped": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected outcomes %v, got %v", want, got)
	}

	spans := recorder.Ended()
	if len(spans) != 4 {
		t.Fatalf("expected 4 validation spans, got %d", len(spans))
	}
	for _, s := range spans {
		if s.Name() != "auth.validate" {
			t.Errorf("unexpected span %q", s.Name())
		}
	}
}

func TestRequireClaims(t *testing.T) {
	l := newLayer(t, newFakeValidator())
	h := middleware.Chain(
		middleware.Auth[CustomClaims](l),
		middleware.RequireClaims[CustomClaims](),
	)(http.HandlerFunc(protectedHandler))

	rr := serve(h, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var body errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error.Code != errors.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %s", body.Error.Code)
	}

	if rr := serve(h, "Bearer good-token"); rr.Code != http.StatusOK {
		t.Errorf("expected 200 with claims, got %d", rr.Code)
	}
}

func TestGinAuth_Scenarios(t *testing.T) {
	l := newLayer(t, newFakeValidator())
	engine := gin.New()
	engine.Use(middleware.GinAuth[CustomClaims](l))
	engine.GET("/protected", func(c *gin.Context) {
		claims, ok := authctx.Get[CustomClaims](c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "Not authenticated")
			return
		}
		c.String(http.StatusOK, "Hello %s <%s>", claims.Sub, claims.Email)
	})
	admin := engine.Group("/admin", middleware.GinAuth[AdminClaims](l), middleware.GinRequireClaims[AdminClaims]())
	admin.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, authctx.MustGet[AdminClaims](c.Request.Context()).Sub)
	})

	tests := []struct {
		path, authz string
		code        int
		body        string
	}{
		{"/protected", "", http.StatusOK, "Not authenticated"},
		{"/protected", "Bearer invalid.jwt.token", http.StatusOK, "Not authenticated"},
		{"/protected", "Bearer good-token", http.StatusOK, "Hello u1 <a@b.com>"},
		{"/admin", "Bearer admin-token", http.StatusOK, "root"},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, tc.path, http.NoBody)
		if tc.authz != "" {
			req.Header.Set("Authorization", tc.authz)
		}
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, req)
		if rr.Code != tc.code || rr.Body.String() != tc.body {
			t.Errorf("%s %q: expected %d %q, got %d %q", tc.path, tc.authz, tc.code, tc.body, rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", http.NoBody))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on /admin without token, got %d", rr.Code)
	}
}

type mintedClaims struct {
	jwt.StandardClaims
	Email string `json:"email"`
}

func TestAuth_WithLocalJWTBinding(t *testing.T) {
	svc, err := jwt.NewService(&jwt.Config{
		Secret: "0123456789abcdef0123456789abcdef",
		Issuer: "demo",
	}, func() *mintedClaims { return &mintedClaims{} })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	good, err := svc.GenerateAccess(&mintedClaims{
		StandardClaims: jwt.StandardClaims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "u1"}},
		Email:          "a@b.com",
	})
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}
	expired, err := svc.Generate(&mintedClaims{
		StandardClaims: jwt.StandardClaims{RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	l, err := middleware.NewAuthLayer(svc, auth.Validation{Issuer: "demo", ValidMethods: []string{"HS256"}},
		middleware.WithAuthLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("NewAuthLayer: %v", err)
	}
	h := middleware.Auth[CustomClaims](l)(http.HandlerFunc(protectedHandler))

	if got := serve(h, "Bearer "+good).Body.String(); got != "Hello u1 <a@b.com>" {
		t.Errorf("valid token: got %q", got)
	}
	if got := serve(h, "Bearer "+expired).Body.String(); got != "Not authenticated" {
		t.Errorf("expired token: got %q", got)
	}
	if got := serve(h, "Bearer "+good[:len(good)-4]+"AAAA").Body.String(); got != "Not authenticated" {
		t.Errorf("tampered token: got %q", got)
	}
}

func assertSameResponse(t *testing.T, name string, want, got *httptest.ResponseRecorder) {
	t.Helper()
	if want.Code != got.Code {
		t.Errorf("%s: status %d != %d", name, got.Code, want.Code)
	}
	if !reflect.DeepEqual(want.Header(), got.Header()) {
		t.Errorf("%s: headers %v != %v", name, got.Header(), want.Header())
	}
	if want.Body.String() != got.Body.String() {
		t.Errorf("%s: body %q != %q", name, got.Body.String(), want.Body.String())
	}
}
