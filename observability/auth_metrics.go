package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels one pass of a request through the auth layer.
type Outcome string

const (
	// OutcomeAuthenticated means claims were stored on the request.
	OutcomeAuthenticated Outcome = "authenticated"
	// OutcomeAnonymous means no credential was presented.
	OutcomeAnonymous Outcome = "anonymous"
	// OutcomeRejected means the validator refused the token.
	OutcomeRejected Outcome = "rejected"
	// OutcomeUndecodable means the claims did not fit the attached type.
	OutcomeUndecodable Outcome = "undecodable"
	// OutcomeCanceled means the request ended before validation finished.
	OutcomeCanceled Outcome = "canceled"
	// OutcomeSkipped means the path is excluded from authentication.
	OutcomeSkipped Outcome = "skipped"
)

// Metric names.
const (
	MetricAuthAttempts           = "auth.attempts"
	MetricAuthValidationDuration = "auth.validation.duration"
	MetricJWKSRefreshes          = "oidc.jwks.refreshes"
)

// AuthMetrics holds the auth layer's instruments.
type AuthMetrics struct {
	attempts  metric.Int64Counter
	duration  metric.Float64Histogram
	refreshes metric.Int64Counter
}

// NewAuthMetrics creates the auth instruments on meter.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	attempts, err := meter.Int64Counter(MetricAuthAttempts,
		metric.WithDescription("Requests seen by the auth layer, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricAuthAttempts, err)
	}

	duration, err := meter.Float64Histogram(MetricAuthValidationDuration,
		metric.WithDescription("Time spent in the token validator"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricAuthValidationDuration, err)
	}

	refreshes, err := meter.Int64Counter(MetricJWKSRefreshes,
		metric.WithDescription("Signing key set fetches, by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricJWKSRefreshes, err)
	}

	return &AuthMetrics{attempts: attempts, duration: duration, refreshes: refreshes}, nil
}

// RecordAttempt counts one request with its outcome.
func (m *AuthMetrics) RecordAttempt(ctx context.Context, outcome Outcome) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

// RecordValidation records how long a validator call took.
func (m *AuthMetrics) RecordValidation(ctx context.Context, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

// RecordKeyRefresh counts one key set fetch.
func (m *AuthMetrics) RecordKeyRefresh(ctx context.Context, issuer string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("issuer", issuer),
		attribute.String("result", result),
	))
}
