package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/oidcauth/logger"
)

// RequestLogger logs every request with method, path, status and duration.
// Health and info paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuietPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.MergeWithDuration(logger.Fields(
				logger.FieldMethod, r.Method,
				logger.FieldPath, r.URL.Path,
				logger.FieldStatus, sw.status,
			), time.Since(start))
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

func isQuietPath(path string) bool {
	switch strings.TrimSuffix(path, "/") {
	case "/health", "/alive", "/ready", "/metrics", "/info":
		return true
	}
	return false
}

// logByStatus logs at error for 5xx, warn for 4xx and debug otherwise.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
