package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/model"
)

// RegisterCustomer registers customer endpoints under /v1.  All routes
// require a valid JWT with the CUSTOMER role; mw runs after the role check
// so per-user rate limit keys see the subject.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	chain := append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	}, mw...)
	g := e.Group("/v1", chain...)

	g.POST("/bookings", h.RequestQuote)
	g.GET("/my-bookings", h.ListMyBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.POST("/bookings/:id/cancel", h.RequestCancellation)

	// payment step
	g.GET("/bookings/:id/payment", h.GetPaymentPage)
	g.POST("/bookings/:id/payment/complete", h.CompletePayment)
}
