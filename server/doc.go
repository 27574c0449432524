// Package server provides the HTTP server the auth middleware runs behind:
// Gin on a root ServeMux, served over HTTP/1.1 and h2c.
//
// Middleware added with Use wraps the whole handler tree, so request IDs,
// logging and panic recovery apply to Gin routes and mounted handlers alike.
// Authentication is attached per route with middleware.Auth or
// middleware.GinAuth, never server-wide, so public routes stay untouched.
//
// # Endpoints
//
// RegisterDefaultEndpoints adds (server/endpoint):
//
//   - /health: component health, 503 when a component is down
//   - /ready: readiness probe
//   - /alive: liveness probe
//   - /info: build information
package server
