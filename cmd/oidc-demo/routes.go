package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/oidcauth/auth/authctx"
	"github.com/kbukum/oidcauth/server"
	"github.com/kbukum/oidcauth/server/middleware"
)

// CustomClaims is what /protected reads from a verified token.
type CustomClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// AdminClaims is a second view of the same token, used by /admin.
type AdminClaims struct {
	Sub   string   `json:"sub"`
	Roles []string `json:"roles"`
}

// registerRoutes wires the demo routes. layer is nil when auth is disabled,
// in which case /protected always answers as unauthenticated.
func registerRoutes(engine *gin.Engine, layer *middleware.AuthLayer) {
	engine.GET("/", publicHandler)

	if layer == nil {
		engine.GET("/protected", protectedHandler)
		engine.GET("/admin", middleware.GinRequireClaims[AdminClaims](), adminHandler)
		return
	}
	engine.GET("/protected", middleware.GinAuth[CustomClaims](layer), protectedHandler)
	engine.GET("/admin",
		middleware.GinAuth[AdminClaims](layer),
		middleware.GinRequireClaims[AdminClaims](),
		adminHandler,
	)
}

func publicHandler(c *gin.Context) {
	c.String(http.StatusOK, "This is a public endpoint")
}

func protectedHandler(c *gin.Context) {
	claims, ok := authctx.Get[CustomClaims](c.Request.Context())
	if !ok {
		c.String(http.StatusOK, "Unauthorized: No valid JWT token provided")
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("Hello %s! Your email is: %s",
		orDefault(claims.Name, "Unknown"),
		orDefault(claims.Email, "Not provided"),
	))
}

func adminHandler(c *gin.Context) {
	claims, err := authctx.GetOrError[AdminClaims](c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{
		"subject": claims.Sub,
		"roles":   claims.Roles,
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
