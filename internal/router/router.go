package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admission-seat-allocation/internal/handler"
	"github.com/iliyamo/admission-seat-allocation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check, used by
// load balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the admin authentication endpoints. Login lives under
// /v1/auth and issues the access tokens the mutating allocation routes
// require; /v1/me sits behind the JWT middleware and echoes the caller's
// claims back for debugging.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN"))
	auth.GET("/me", a.Me)
}

// RegisterAllocation wires the allocation endpoints. Reads are public and go
// through the snapshot cache; the mutating endpoints require an ADMIN access
// token and pass the rate limiter, since each mutation serializes on the
// engine lock.
func RegisterAllocation(e *echo.Echo, h *handler.AllocationHandler, jwtSecret string, limiter echo.MiddlewareFunc, cache *middleware.SnapshotCache) {
	read := e.Group("/v1/allocation", cache.Middleware())
	read.GET("", h.Snapshot)
	read.GET("/candidates/:id", h.GetCandidate)

	admin := e.Group("/v1/allocation",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
		limiter,
	)
	admin.POST("/run", h.Run)
	admin.POST("/withdrawals", h.Withdraw)
	admin.POST("/capacity", h.AddCapacity)
}
