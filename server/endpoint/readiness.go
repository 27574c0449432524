package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/oidcauth/observability"
)

// Readiness returns a handler for readiness probes. A degraded component
// still counts as ready; the auth layer keeps serving with cached keys.
func Readiness(serviceName string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ready"
		httpStatus := http.StatusOK

		sh := observability.Check(c.Request.Context(), serviceName, "", checkers...)
		if sh.Status == observability.HealthStatusDown {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":    status,
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
