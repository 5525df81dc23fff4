package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/service"
)

// AdminHandler exposes booking moderation.  Routes are mounted behind
// RequireRole(ADMIN).
type AdminHandler struct {
	Bookings *service.BookingService
}

// NewAdminHandler returns an AdminHandler backed by svc.
func NewAdminHandler(svc *service.BookingService) *AdminHandler {
	if svc == nil {
		panic("nil booking service passed to NewAdminHandler")
	}
	return &AdminHandler{Bookings: svc}
}

// ListBookings handles GET /v1/admin/bookings with optional status, page
// and page_size query parameters.  Results are newest first.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	var f model.BookingFilter
	if raw := c.QueryParam("status"); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		f.Status = st
	}
	var ok bool
	if f.Page, ok = queryInt(c, "page"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page"})
	}
	if f.PageSize, ok = queryInt(c, "page_size"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page_size"})
	}
	page, err := h.Bookings.ListBookings(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     toBookingResponses(page.Items),
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// Summary handles GET /v1/admin/bookings/summary.
func (h *AdminHandler) Summary(c echo.Context) error {
	s, err := h.Bookings.Summary(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// GetBooking handles GET /v1/admin/bookings/:id.
func (h *AdminHandler) GetBooking(c echo.Context) error {
	b, err := h.Bookings.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

type approveBody struct {
	FinalOriginalPrice *int64 `json:"final_original_price" validate:"required"`
	DiscountedAmount   *int64 `json:"discounted_amount" validate:"required"`
}

// ApproveQuote handles POST /v1/admin/bookings/:id/approve.  Amounts that
// break the pricing rules are rejected with 422.
func (h *AdminHandler) ApproveQuote(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body approveBody
	if ok, err := bindAndValidate(c, &body); !ok {
		return err
	}
	if body.FinalOriginalPrice == nil || body.DiscountedAmount == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "final_original_price and discounted_amount are required"})
	}
	b, err := h.Bookings.ApproveQuote(c.Request().Context(), actor, c.Param("id"), *body.FinalOriginalPrice, *body.DiscountedAmount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// ConfirmCancellation handles POST /v1/admin/bookings/:id/confirm-cancellation.
func (h *AdminHandler) ConfirmCancellation(c echo.Context) error {
	return h.apply(c, h.Bookings.ConfirmCancellation)
}

// CompleteTravel handles POST /v1/admin/bookings/:id/complete-travel.  The
// travel date must already have passed.
func (h *AdminHandler) CompleteTravel(c echo.Context) error {
	return h.apply(c, h.Bookings.MarkTravelCompleted)
}

func (h *AdminHandler) apply(c echo.Context, op func(context.Context, model.Actor, string) (model.Booking, error)) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := op(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
