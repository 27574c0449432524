package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/oidcauth/auth"
	"github.com/kbukum/oidcauth/auth/authctx"
	"github.com/kbukum/oidcauth/errors"
	"github.com/kbukum/oidcauth/logger"
	"github.com/kbukum/oidcauth/observability"
)

// AuthLayer holds what every attachment of the auth middleware shares: one
// validator and one validation policy. It never rejects a request; it only
// stores claims when a token checks out. A layer is immutable once built.
type AuthLayer struct {
	validator  auth.TokenValidator
	validation auth.Validation
	log        *logger.Logger
	metrics    *observability.AuthMetrics
	tracer     trace.Tracer
	skipPaths  []string
}

// AuthOption configures an AuthLayer.
type AuthOption func(*AuthLayer)

// WithAuthLogger overrides the "auth" component logger.
func WithAuthLogger(l *logger.Logger) AuthOption {
	return func(a *AuthLayer) { a.log = l }
}

// WithAuthMetrics records an outcome for every request.
func WithAuthMetrics(m *observability.AuthMetrics) AuthOption {
	return func(a *AuthLayer) { a.metrics = m }
}

// WithAuthTracer wraps each validator call in an "auth.validate" span.
func WithAuthTracer(t trace.Tracer) AuthOption {
	return func(a *AuthLayer) { a.tracer = t }
}

// WithSkipPaths forwards requests under these path prefixes without an
// authentication attempt.
func WithSkipPaths(prefixes ...string) AuthOption {
	return func(a *AuthLayer) { a.skipPaths = append(a.skipPaths, prefixes...) }
}

// NewAuthLayer creates a layer around validator. The policy is copied.
func NewAuthLayer(validator auth.TokenValidator, validation auth.Validation, opts ...AuthOption) (*AuthLayer, error) {
	if validator == nil {
		return nil, errors.Validation("auth layer requires a token validator")
	}
	l := &AuthLayer{
		validator:  validator,
		validation: validation.Clone(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get(logger.ComponentAuth)
	}
	return l, nil
}

// Clone returns a layer sharing the validator with its own copy of the
// policy and skip paths.
func (l *AuthLayer) Clone() *AuthLayer {
	c := *l
	c.validation = l.validation.Clone()
	c.skipPaths = slices.Clone(l.skipPaths)
	return &c
}

// Validation returns a copy of the layer's policy.
func (l *AuthLayer) Validation() auth.Validation {
	return l.validation.Clone()
}

// Auth attaches the layer to net/http for claims type T. Handlers read the
// result with authctx.Get[T]; an empty slot means unauthenticated.
func Auth[T any](l *AuthLayer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, authenticate[T](l, r))
		})
	}
}

// GinAuth attaches the layer to a gin engine or group for claims type T.
func GinAuth[T any](l *AuthLayer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = authenticate[T](l, c.Request)
		c.Next()
	}
}

// authenticate returns r, or a copy of r whose context carries claims of
// type T. It never writes a response.
func authenticate[T any](l *AuthLayer, r *http.Request) *http.Request {
	ctx := r.Context()
	log := l.log.WithContext(ctx)

	if l.skipped(r.URL.Path) {
		log.Debug("Skipping authentication", logger.Fields(logger.FieldPath, r.URL.Path))
		l.metrics.RecordAttempt(ctx, observability.OutcomeSkipped)
		return r
	}

	log.Debug("Extracting claims from headers", logger.Fields(
		logger.FieldMethod, r.Method,
		logger.FieldPath, r.URL.Path,
	))

	token, ok := bearerToken(r.Header)
	if !ok {
		log.Debug("No credential supplied")
		l.metrics.RecordAttempt(ctx, observability.OutcomeAnonymous)
		return r
	}

	id, err := l.validate(ctx, token)
	if ctx.Err() != nil {
		log.Debug("Request ended during validation, discarding result")
		l.metrics.RecordAttempt(ctx, observability.OutcomeCanceled)
		return r
	}
	if err != nil {
		fields := logger.MergeWithError(nil, err)
		if code := errors.CodeOf(err); code != "" {
			fields[logger.FieldCode] = string(code)
		}
		log.Warn("Authentication failed", fields)
		l.metrics.RecordAttempt(ctx, observability.OutcomeRejected)
		return r
	}

	claims, err := auth.Decode[T](id)
	if err != nil {
		log.Warn("Claims decode failed", logger.MergeWithError(nil, err))
		l.metrics.RecordAttempt(ctx, observability.OutcomeUndecodable)
		return r
	}

	log.Info("Authenticated request", logger.Fields(logger.FieldSubject, id.Subject()))
	l.metrics.RecordAttempt(ctx, observability.OutcomeAuthenticated)
	return r.WithContext(authctx.Set(ctx, claims))
}

// validate is the single blocking call per request.
func (l *AuthLayer) validate(ctx context.Context, token string) (auth.Identity, error) {
	start := time.Now()

	var span trace.Span
	if l.tracer != nil {
		ctx, span = l.tracer.Start(ctx, "auth.validate")
		defer span.End()
	}

	id, err := l.validator.ValidateToken(ctx, token, l.validation)

	outcome := observability.OutcomeAuthenticated
	switch {
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		outcome = observability.OutcomeCanceled
	case err != nil:
		outcome = observability.OutcomeRejected
	}
	l.metrics.RecordValidation(ctx, outcome, time.Since(start))

	if span != nil {
		span.SetAttributes(attribute.String(observability.AttrOutcome, string(outcome)))
		if err != nil {
			if code := errors.CodeOf(err); code != "" {
				span.SetAttributes(attribute.String(observability.AttrErrorCode, string(code)))
			}
			observability.SetSpanError(span, err)
		} else if sub := id.Subject(); sub != "" {
			span.SetAttributes(attribute.String(observability.AttrSubject, sub))
		}
	}
	return id, err
}

func (l *AuthLayer) skipped(path string) bool {
	for _, prefix := range l.skipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RequireClaims rejects requests whose slot for T is empty with a 401 JSON
// error. Attach it after Auth[T] on routes that need an identity.
func RequireClaims[T any]() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authctx.Has[T](r.Context()) {
				writeError(w, errors.Unauthorized(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GinRequireClaims is RequireClaims for gin.
func GinRequireClaims[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authctx.Has[T](c.Request.Context()) {
			appErr := errors.Unauthorized("")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}
