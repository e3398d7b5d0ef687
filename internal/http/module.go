// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the public /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// Admin is the admin-only route group under /api/v1/admin.
	Admin *gin.RouterGroup
	// Config is the JWT configuration for auth middleware (scoped access).
	Config config.JWTConfig
	// AuthMiddleware rejects requests without a valid access token.
	AuthMiddleware gin.HandlerFunc
	// OptionalAuth attaches an identity when a token is present.
	OptionalAuth gin.HandlerFunc
	// PublicLimiter throttles anonymous listing endpoints per IP.
	PublicLimiter *httpkit.IPRateLimiter
	// Idempotency replays responses for retried requests carrying an
	// Idempotency-Key header. Nil when Redis is not configured.
	Idempotency gin.HandlerFunc
}
