package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/service"
)

// CustomerHandler exposes the customer side of the booking lifecycle.  All
// methods assume JWTAuth and RequireRole(CUSTOMER) already ran.  A customer
// only sees their own bookings; other bookings are reported as not found.
type CustomerHandler struct {
	Bookings *service.BookingService
}

// NewCustomerHandler returns a CustomerHandler backed by svc.
func NewCustomerHandler(svc *service.BookingService) *CustomerHandler {
	if svc == nil {
		panic("nil booking service passed to NewCustomerHandler")
	}
	return &CustomerHandler{Bookings: svc}
}

type quoteRequestBody struct {
	ProductID       string `json:"product_id" validate:"required"`
	CustomerName    string `json:"customer_name" validate:"required"`
	TravelDate      string `json:"travel_date" validate:"required,datetime=2006-01-02"`
	Travelers       int    `json:"travelers" validate:"required,min=1"`
	SpecialRequests string `json:"special_requests"`
}

// RequestQuote handles POST /v1/bookings and returns 201 with the new
// booking in QUOTE_REQUESTED.
func (h *CustomerHandler) RequestQuote(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body quoteRequestBody
	if ok, err := bindAndValidate(c, &body); !ok {
		return err
	}
	date, err := model.ParseDate(body.TravelDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "travel_date must be a date in 2006-01-02 format"})
	}
	b, err := h.Bookings.RequestQuote(c.Request().Context(), actor, service.QuoteRequest{
		ProductID:       body.ProductID,
		CustomerName:    body.CustomerName,
		TravelDate:      date,
		Travelers:       body.Travelers,
		SpecialRequests: body.SpecialRequests,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// ListMyBookings handles GET /v1/my-bookings.
func (h *CustomerHandler) ListMyBookings(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bs, err := h.Bookings.ListCustomerBookings(c.Request().Context(), actor.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toBookingResponses(bs)})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *CustomerHandler) GetBooking(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.owned(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// GetPaymentPage handles GET /v1/bookings/:id/payment.  Only bookings in
// PAYMENT_PENDING have a payment page; other states yield 409.
func (h *CustomerHandler) GetPaymentPage(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	if _, err := h.owned(ctx, actor, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	page, err := h.Bookings.GetPaymentPage(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// CompletePayment handles POST /v1/bookings/:id/payment/complete.
func (h *CustomerHandler) CompletePayment(c echo.Context) error {
	return h.apply(c, h.Bookings.CompletePayment)
}

// RequestCancellation handles POST /v1/bookings/:id/cancel.
func (h *CustomerHandler) RequestCancellation(c echo.Context) error {
	return h.apply(c, h.Bookings.RequestCancellation)
}

type customerOp func(ctx context.Context, actor model.Actor, id string) (model.Booking, error)

// apply checks ownership and runs op on the booking named by :id.
func (h *CustomerHandler) apply(c echo.Context, op customerOp) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	if _, err := h.owned(ctx, actor, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	b, err := op(ctx, actor, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// owned loads booking id and hides it from anyone but its customer.
func (h *CustomerHandler) owned(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
	b, err := h.Bookings.GetBooking(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.CustomerID != actor.ID {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, nil
}
