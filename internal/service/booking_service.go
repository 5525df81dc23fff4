// Package service implements the booking lifecycle: the customer and admin
// transitions, their preconditions and the periodic travel completion
// sweep.  Every transition is checked against the lifecycle table in
// package model and written with a conditional status update, so a
// concurrent change can never be overwritten.  Callers pass the acting
// identity explicitly; authorization happens before the service is called.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-booking/internal/logging"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/queue"
)

// CatalogStore is the read side of the product catalog.
type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (model.Product, error)
	SearchProducts(ctx context.Context, q model.ProductSearchQuery) (model.ProductPage, error)
}

// BookingStore persists bookings.  UpdateBookingStatus must apply the
// update only while the booking is still in the expected status and return
// model.ErrStatusConflict otherwise.
type BookingStore interface {
	CreateBooking(ctx context.Context, b model.Booking) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	UpdateBookingStatus(ctx context.Context, u model.StatusUpdate) (model.Booking, error)
	ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, int64, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error)
	ListDueForCompletion(ctx context.Context, before time.Time, limit int) ([]model.Booking, error)
	Summary(ctx context.Context) (model.BookingSummary, error)
}

// EventPublisher receives an event after every committed transition.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, ev queue.BookingStatusChangedEvent) error
}

const (
	publishTimeout   = 3 * time.Second
	defaultSweepSize = 100
)

// BookingService runs booking transitions.
type BookingService struct {
	catalog  CatalogStore
	bookings BookingStore
	events   EventPublisher
	now      func() time.Time
	newID    func() string
	batch    int
}

// Option configures a BookingService.
type Option func(*BookingService)

// WithEvents publishes a BookingStatusChangedEvent after each transition.
func WithEvents(p EventPublisher) Option { return func(s *BookingService) { s.events = p } }

// WithClock replaces time.Now; "today" for travel dates is derived from it.
func WithClock(now func() time.Time) Option { return func(s *BookingService) { s.now = now } }

// WithIDGenerator replaces the UUID generator for new bookings.
func WithIDGenerator(f func() string) Option { return func(s *BookingService) { s.newID = f } }

// WithSweepBatch sets how many bookings the sweep loads per query.
func WithSweepBatch(n int) Option {
	return func(s *BookingService) {
		if n > 0 {
			s.batch = n
		}
	}
}

// NewBookingService wires the stores into a service.
func NewBookingService(catalog CatalogStore, bookings BookingStore, opts ...Option) *BookingService {
	s := &BookingService{
		catalog:  catalog,
		bookings: bookings,
		now:      time.Now,
		newID:    uuid.NewString,
		batch:    defaultSweepSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// QuoteRequest is the customer input for requestQuote.  TravelDate is a
// calendar date; its time of day is ignored.
type QuoteRequest struct {
	ProductID       string
	CustomerName    string
	TravelDate      time.Time
	Travelers       int
	SpecialRequests string
}

// RequestQuote creates a booking in QUOTE_REQUESTED with all prices at
// zero.  The input is validated before the product is resolved; inactive
// products are reported as not found.
func (s *BookingService) RequestQuote(ctx context.Context, actor model.Actor, req QuoteRequest) (model.Booking, error) {
	name := strings.TrimSpace(req.CustomerName)
	now := s.now().UTC()
	switch {
	case name == "":
		return model.Booking{}, fmt.Errorf("%w: customer name is required", model.ErrInvalidBookingInput)
	case req.Travelers < 1:
		return model.Booking{}, fmt.Errorf("%w: travelers must be at least 1, got %d", model.ErrInvalidBookingInput, req.Travelers)
	case req.TravelDate.IsZero():
		return model.Booking{}, fmt.Errorf("%w: travel date is required", model.ErrInvalidBookingInput)
	case model.DateOf(req.TravelDate).Before(model.DateOf(now)):
		return model.Booking{}, fmt.Errorf("%w: travel date %s is in the past", model.ErrInvalidBookingInput,
			model.DateOf(req.TravelDate).Format(model.DateLayout))
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return model.Booking{}, err
	}
	if !product.Active {
		return model.Booking{}, fmt.Errorf("%w: %s is not available", model.ErrProductNotFound, product.ID)
	}

	b := model.Booking{
		ID:           s.newID(),
		ProductID:    product.ID,
		ProductName:  product.Name,
		CustomerID:   actor.ID,
		CustomerName: name,
		TravelDate:   model.DateOf(req.TravelDate),
		Travelers:    req.Travelers,
		Status:       model.InitialStatus(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if sr := strings.TrimSpace(req.SpecialRequests); sr != "" {
		b.SpecialRequests = &sr
	}
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return model.Booking{}, err
	}
	s.record(ctx, b, "", model.OpRequestQuote, actor)
	return b, nil
}

// GetBooking returns a booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// ListCustomerBookings returns the bookings requested by one customer,
// newest first.
func (s *BookingService) ListCustomerBookings(ctx context.Context, customerID string) ([]model.Booking, error) {
	return s.bookings.ListByCustomer(ctx, customerID)
}

// GetPaymentPage returns the payment projection of a booking awaiting
// payment.
func (s *BookingService) GetPaymentPage(ctx context.Context, id string) (model.PaymentPageView, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return model.PaymentPageView{}, err
	}
	return b.PaymentPage()
}

// CompletePayment records that the external payment gateway reported
// success.  No money moves here.
func (s *BookingService) CompletePayment(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
	return s.transition(ctx, actor, id, model.OpCompletePayment, nil)
}

// RequestCancellation asks an admin to cancel the booking.
func (s *BookingService) RequestCancellation(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
	return s.transition(ctx, actor, id, model.OpRequestCancellation, nil)
}

// ApproveQuote prices the quote and moves it to PAYMENT_PENDING.  The
// state is checked before the amounts, so approving twice always reports
// an invalid transition.
func (s *BookingService) ApproveQuote(ctx context.Context, actor model.Actor, id string, finalOriginalPrice, discountedAmount int64) (model.Booking, error) {
	return s.transition(ctx, actor, id, model.OpApproveQuote, func(model.Booking) (*model.Pricing, error) {
		p, err := model.NewPricing(finalOriginalPrice, discountedAmount)
		if err != nil {
			return nil, err
		}
		return &p, nil
	})
}

// ConfirmCancellation completes a requested cancellation.
func (s *BookingService) ConfirmCancellation(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
	return s.transition(ctx, actor, id, model.OpConfirmCancellation, nil)
}

// MarkTravelCompleted closes a paid booking once its travel date has
// passed.  Calling it on a booking that is already TRAVEL_COMPLETED
// succeeds without changing anything.
func (s *BookingService) MarkTravelCompleted(ctx context.Context, actor model.Actor, id string) (model.Booking, error) {
	b, err := s.transition(ctx, actor, id, model.OpMarkTravelCompleted, func(b model.Booking) (*model.Pricing, error) {
		if !b.TravelDatePassed(s.now()) {
			return nil, &model.InvalidTransitionError{
				Current:   b.Status,
				Operation: model.OpMarkTravelCompleted,
				Allowed:   model.AllowedFrom(model.OpMarkTravelCompleted),
				Reason:    fmt.Sprintf("travel date %s has not passed", model.DateOf(b.TravelDate).Format(model.DateLayout)),
			}
		}
		return nil, nil
	})
	var ite *model.InvalidTransitionError
	if errors.As(err, &ite) && ite.Current == model.StatusTravelCompleted {
		return s.bookings.GetBooking(ctx, id)
	}
	return b, err
}

// BookingPage is one page of an admin booking listing.
type BookingPage struct {
	Items    []model.Booking
	Total    int64
	Page     int
	PageSize int
}

// ListBookings returns bookings for the admin queue, newest first.
func (s *BookingService) ListBookings(ctx context.Context, f model.BookingFilter) (BookingPage, error) {
	f = f.Normalize()
	items, total, err := s.bookings.ListBookings(ctx, f)
	if err != nil {
		return BookingPage{}, err
	}
	return BookingPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Summary returns booking counts per status and revenue.
func (s *BookingService) Summary(ctx context.Context) (model.BookingSummary, error) {
	return s.bookings.Summary(ctx)
}

// pricer validates a transition beyond the lifecycle table and returns
// the pricing to write with it, if any.
type pricer func(b model.Booking) (*model.Pricing, error)

// transition applies op to booking id.  The lifecycle table is consulted
// first, then the optional check, then the conditional update.  Losing a
// race to another transition is reported as an invalid transition against
// the state that won.
func (s *BookingService) transition(ctx context.Context, actor model.Actor, id string, op model.Operation, check pricer) (model.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	next, err := model.Next(b.Status, op)
	if err != nil {
		return model.Booking{}, err
	}
	var pricing *model.Pricing
	if check != nil {
		if pricing, err = check(b); err != nil {
			return model.Booking{}, err
		}
	}

	updated, err := s.bookings.UpdateBookingStatus(ctx, model.StatusUpdate{
		ID:      b.ID,
		From:    b.Status,
		To:      next,
		Pricing: pricing,
		At:      s.now().UTC(),
	})
	if errors.Is(err, model.ErrStatusConflict) {
		current, gerr := s.bookings.GetBooking(ctx, id)
		if gerr != nil {
			return model.Booking{}, gerr
		}
		logging.FromContext(ctx).WithFields(logrus.Fields{
			"booking_id": id,
			"operation":  op,
			"expected":   b.Status,
			"current":    current.Status,
		}).Info("transition lost a concurrent update")
		return model.Booking{}, &model.InvalidTransitionError{
			Current:   current.Status,
			Operation: op,
			Allowed:   model.AllowedFrom(op),
			Reason:    "booking was changed concurrently",
		}
	}
	if err != nil {
		return model.Booking{}, err
	}
	s.record(ctx, updated, b.Status, op, actor)
	return updated, nil
}

// record logs a committed transition and publishes its event.  A publish
// failure is logged and otherwise ignored.
func (s *BookingService) record(ctx context.Context, b model.Booking, from model.Status, op model.Operation, actor model.Actor) {
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": b.ID,
		"operation":  op,
		"from":       from,
		"to":         b.Status,
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	})
	log.Info("booking transitioned")
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishStatusChanged(pctx, queue.NewStatusChangedEvent(b, from, op, actor)); err != nil {
		log.WithError(err).Warn("publish booking event failed")
	}
}
