package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/oidcauth/errors"
)

func fastRetry(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errFetch
		}
		return "keys", nil
	})
	if err != nil || got != "keys" {
		t.Fatalf("Retry() = %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(2), func(context.Context) (int, error) {
		calls++
		return 0, errFetch
	})
	if !errors.Is(err, errFetch) {
		t.Errorf("expected errFetch, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetry_StopsOnNonRetryableAppError(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		return apperrors.InvalidToken(nil)
	})
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidToken {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetry_RetriesRetryableAppError(t *testing.T) {
	calls := 0
	_ = RetryFunc(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return apperrors.ServiceUnavailable("jwks")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_StopsOnCircuitOpen(t *testing.T) {
	calls := 0
	_ = RetryFunc(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return ErrCircuitOpen
	})
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetry_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryFunc(ctx, fastRetry(3), func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("fn must not run with a cancelled context, got %d calls", calls)
	}
}

func TestRetry_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(3)
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	err := RetryFunc(ctx, cfg, func(context.Context) error { return errFetch })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		attempts = append(attempts, attempt)
	}
	_ = RetryFunc(context.Background(), cfg, func(context.Context) error { return errFetch })
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v", attempts)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, cfg); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	cfg.Jitter = 0.5
	for i := 0; i < 50; i++ {
		got := calculateBackoff(1, cfg)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered backoff out of range: %v", got)
		}
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errFetch, true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"circuit open", ErrCircuitOpen, false},
		{"timeout app error", apperrors.Timeout("jwks fetch"), true},
		{"invalid input", apperrors.Validation("bad"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
