package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/oidcauth/errors"
	"github.com/kbukum/oidcauth/logger"
)

// Recovery turns a panic in next into a logged 500 JSON error.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithContext(r.Context()).Error("Panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					logger.FieldMethod, r.Method,
					logger.FieldPath, r.URL.Path,
				))
				writeError(w, errors.Internal(fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
