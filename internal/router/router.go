// Package router wires handlers and middleware onto echo routes, one
// function per audience.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/handler"
)

// RegisterHealth registers the liveness and readiness probes.  They sit
// outside /v1 so the rate limiter never applies to them.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Live)
	e.GET("/readyz", h.Ready)
}

// RegisterPublic registers the unauthenticated catalog endpoints.  mw runs
// before each handler, typically the rate limiter.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/products", mw...)
	g.GET("", h.SearchProducts)
	g.GET("/:id", h.GetProduct)
}
