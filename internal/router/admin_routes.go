package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/model"
)

// RegisterAdmin registers booking moderation endpoints under /v1/admin.
// All routes require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	chain := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}, mw...)
	g := e.Group("/v1/admin", chain...)

	// ---- Queue ----
	g.GET("/bookings", h.ListBookings)
	g.GET("/bookings/summary", h.Summary)
	g.GET("/bookings/:id", h.GetBooking)

	// ---- Transitions ----
	g.POST("/bookings/:id/approve", h.ApproveQuote)
	g.POST("/bookings/:id/confirm-cancellation", h.ConfirmCancellation)
	g.POST("/bookings/:id/complete-travel", h.CompleteTravel)
}
