package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
)

var (
	customer = model.Actor{ID: "cust-1", Role: model.RoleCustomer}
	admin    = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func newService(t *testing.T, opts ...Option) (*BookingService, *repository.MemoryStore, *clock) {
	t.Helper()
	store := repository.NewMemoryStore(repository.SampleCatalog()...)
	clk := newClock(2025, time.May, 1)
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return NewBookingService(store, store, opts...), store, clk
}

func kimQuote() QuoteRequest {
	return QuoteRequest{ProductID: "TOUR-1", CustomerName: "Kim", TravelDate: date(2025, time.June, 1), Travelers: 2}
}

func requireTransition(t *testing.T, err error, current model.Status, op model.Operation) *model.InvalidTransitionError {
	t.Helper()
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	var ite *model.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, current, ite.Current)
	assert.Equal(t, op, ite.Operation)
	return ite
}

func TestBookingService_KimTourScenario(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, _ := newService(t, WithEvents(pub))
	ctx := context.Background()

	b, err := svc.RequestQuote(ctx, customer, kimQuote())
	require.NoError(t, err)
	assert.Equal(t, model.StatusQuoteRequested, b.Status)
	assert.Equal(t, "Jeju Island Highlights", b.ProductName)
	assert.Equal(t, "cust-1", b.CustomerID)
	assert.Zero(t, b.TotalPrice)
	assert.Zero(t, b.OriginalPrice)
	assert.Zero(t, b.DiscountedAmount)

	_, err = svc.GetPaymentPage(ctx, b.ID)
	requireTransition(t, err, model.StatusQuoteRequested, model.OpGetPaymentPage)

	b, err = svc.ApproveQuote(ctx, admin, b.ID, 1000000, 100000)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentPending, b.Status)
	assert.Equal(t, int64(900000), b.TotalPrice)
	assert.Equal(t, b.OriginalPrice-b.DiscountedAmount, b.TotalPrice)

	view, err := svc.GetPaymentPage(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900000), view.FinalPrice)
	assert.Equal(t, "Kim", view.CustomerName)
	assert.Equal(t, "2025-06-01", view.TravelDate)

	b, err = svc.CompletePayment(ctx, customer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentCompleted, b.Status)

	b, err = svc.RequestCancellation(ctx, customer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelPending, b.Status)

	b, err = svc.ConfirmCancellation(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, b.Status)
	assert.Equal(t, int64(900000), b.TotalPrice, "pricing survives later transitions")

	for name, op := range map[string]func() error{
		"approve":  func() error { _, err := svc.ApproveQuote(ctx, admin, b.ID, 10, 0); return err },
		"pay":      func() error { _, err := svc.CompletePayment(ctx, customer, b.ID); return err },
		"cancel":   func() error { _, err := svc.RequestCancellation(ctx, customer, b.ID); return err },
		"confirm":  func() error { _, err := svc.ConfirmCancellation(ctx, admin, b.ID); return err },
		"complete": func() error { _, err := svc.MarkTravelCompleted(ctx, admin, b.ID); return err },
	} {
		assert.ErrorIs(t, op(), model.ErrInvalidTransition, name)
	}

	events := pub.Events()
	require.Len(t, events, 5)
	assert.Equal(t, model.OpRequestQuote, events[0].Operation)
	assert.Empty(t, events[0].From)
	assert.Equal(t, model.StatusQuoteRequested, events[1].From)
	assert.Equal(t, model.StatusPaymentPending, events[1].To)
	assert.Equal(t, int64(900000), events[1].TotalPrice)
	assert.Equal(t, model.RoleAdmin, events[1].ActorRole)
	assert.Equal(t, model.StatusCancelled, events[4].To)
}

func TestBookingService_RequestQuoteValidation(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	inactive := repository.SampleCatalog()[0]
	inactive.ID = "HOTEL-OFF"
	inactive.Active = false
	require.NoError(t, store.Upsert(ctx, inactive))

	cases := []struct {
		name string
		edit func(*QuoteRequest)
		want error
	}{
		{"zero travelers", func(r *QuoteRequest) { r.Travelers = 0 }, model.ErrInvalidBookingInput},
		{"negative travelers", func(r *QuoteRequest) { r.Travelers = -1 }, model.ErrInvalidBookingInput},
		{"past date", func(r *QuoteRequest) { r.TravelDate = date(2025, time.April, 30) }, model.ErrInvalidBookingInput},
		{"missing date", func(r *QuoteRequest) { r.TravelDate = time.Time{} }, model.ErrInvalidBookingInput},
		{"blank name", func(r *QuoteRequest) { r.CustomerName = "  " }, model.ErrInvalidBookingInput},
		{"unknown product", func(r *QuoteRequest) { r.ProductID = "NOPE" }, model.ErrProductNotFound},
		{"inactive product", func(r *QuoteRequest) { r.ProductID = "HOTEL-OFF" }, model.ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := kimQuote()
			tc.edit(&req)
			_, err := svc.RequestQuote(ctx, customer, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	all, err := svc.ListCustomerBookings(ctx, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, all, "failed requests create nothing")
}

func TestBookingService_RequestQuoteForToday(t *testing.T) {
	svc, _, clk := newService(t)
	clk.Set(time.Date(2025, time.June, 1, 23, 59, 0, 0, time.UTC))

	req := kimQuote()
	req.TravelDate = time.Date(2025, time.June, 1, 8, 30, 0, 0, time.UTC)
	req.SpecialRequests = "  vegetarian meals "
	b, err := svc.RequestQuote(context.Background(), customer, req)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.June, 1), b.TravelDate)
	require.NotNil(t, b.SpecialRequests)
	assert.Equal(t, "vegetarian meals", *b.SpecialRequests)
}

func TestBookingService_DoubleApprovalFails(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	b, err := svc.RequestQuote(ctx, customer, kimQuote())
	require.NoError(t, err)

	_, err = svc.ApproveQuote(ctx, admin, b.ID, 1000000, 100000)
	require.NoError(t, err)

	// Invalid amounts on the second call still report the state problem.
	_, err = svc.ApproveQuote(ctx, admin, b.ID, 5, 10)
	ite := requireTransition(t, err, model.StatusPaymentPending, model.OpApproveQuote)
	assert.Equal(t, []model.Status{model.StatusQuoteRequested}, ite.Allowed)
	assert.NotErrorIs(t, err, model.ErrInvalidPricing)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900000), got.TotalPrice)
}

func TestBookingService_ApproveRejectsInvalidPricing(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	b, err := svc.RequestQuote(ctx, customer, kimQuote())
	require.NoError(t, err)

	for _, amounts := range [][2]int64{{100, 101}, {100, -1}, {-5, 0}} {
		_, err := svc.ApproveQuote(ctx, admin, b.ID, amounts[0], amounts[1])
		assert.ErrorIs(t, err, model.ErrInvalidPricing, "%v", amounts)
	}
	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQuoteRequested, got.Status)
	assert.Zero(t, got.TotalPrice)

	b, err = svc.ApproveQuote(ctx, admin, b.ID, 500, 500)
	require.NoError(t, err)
	assert.Zero(t, b.TotalPrice, "a full discount is allowed")
}

func TestBookingService_ConfirmCancellationFromQuoteRequested(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	b, err := svc.RequestQuote(ctx, customer, kimQuote())
	require.NoError(t, err)

	_, err = svc.ConfirmCancellation(ctx, admin, b.ID)
	ite := requireTransition(t, err, model.StatusQuoteRequested, model.OpConfirmCancellation)
	assert.Equal(t, []model.Status{model.StatusCancelPending}, ite.Allowed)

	_, err = svc.RequestCancellation(ctx, customer, b.ID)
	require.NoError(t, err)
	_, err = svc.ConfirmCancellation(ctx, admin, b.ID)
	require.NoError(t, err)
	_, err = svc.ConfirmCancellation(ctx, admin, b.ID)
	requireTransition(t, err, model.StatusCancelled, model.OpConfirmCancellation)
}

func TestBookingService_UnknownBooking(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ApproveQuote(ctx, admin, "missing", 1, 0)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
	_, err = svc.GetPaymentPage(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
	_, err = svc.MarkTravelCompleted(ctx, admin, "missing")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestBookingService_ConcurrentApproveAndCancelHaveOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		mem := repository.NewMemoryStore(repository.SampleCatalog()...)
		clk := newClock(2025, time.May, 1)
		setup := NewBookingService(mem, mem, WithClock(clk.Now))
		b, err := setup.RequestQuote(context.Background(), customer, kimQuote())
		require.NoError(t, err)

		svc := NewBookingService(mem, newBarrierStore(mem, 2), WithClock(clk.Now))
		var (
			wg                 sync.WaitGroup
			approveErr, canErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = svc.ApproveQuote(context.Background(), admin, b.ID, 1000000, 100000)
		}()
		go func() {
			defer wg.Done()
			_, canErr = svc.RequestCancellation(context.Background(), customer, b.ID)
		}()
		wg.Wait()

		final, err := mem.GetBooking(context.Background(), b.ID)
		require.NoError(t, err)
		switch {
		case approveErr == nil:
			requireTransition(t, canErr, model.StatusPaymentPending, model.OpRequestCancellation)
			assert.Equal(t, model.StatusPaymentPending, final.Status)
			assert.Equal(t, int64(900000), final.TotalPrice)
		case canErr == nil:
			requireTransition(t, approveErr, model.StatusCancelPending, model.OpApproveQuote)
			assert.Equal(t, model.StatusCancelPending, final.Status)
			assert.Zero(t, final.TotalPrice)
		default:
			t.Fatalf("no transition succeeded: approve=%v cancel=%v", approveErr, canErr)
		}
	}
}

func TestBookingService_PublishFailureKeepsTransition(t *testing.T) {
	pub := &failingPublisher{}
	svc, _, _ := newService(t, WithEvents(pub))
	ctx := context.Background()

	b, err := svc.RequestQuote(ctx, customer, kimQuote())
	require.NoError(t, err)
	b, err = svc.ApproveQuote(ctx, admin, b.ID, 1000000, 100000)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentPending, b.Status)
	assert.Equal(t, int32(2), pub.calls.Load())
}

func TestBookingService_StoreErrorsPropagate(t *testing.T) {
	mem := repository.NewMemoryStore(repository.SampleCatalog()...)
	clk := newClock(2025, time.May, 1)
	b, err := NewBookingService(mem, mem, WithClock(clk.Now)).RequestQuote(context.Background(), customer, kimQuote())
	require.NoError(t, err)

	svc := NewBookingService(mem, brokenStore{mem}, WithClock(clk.Now))
	_, err = svc.ApproveQuote(context.Background(), admin, b.ID, 10, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidTransition)

	got, err := mem.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQuoteRequested, got.Status)
}

func TestBookingService_ListingsAndSummary(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	other := model.Actor{ID: "cust-2", Role: model.RoleCustomer}

	first, err := svc.RequestQuote(ctx, customer, kimQuote())
	require.NoError(t, err)
	clk.Set(clk.Now().Add(time.Minute))
	_, err = svc.RequestQuote(ctx, other, kimQuote())
	require.NoError(t, err)
	clk.Set(clk.Now().Add(time.Minute))
	third, err := svc.RequestQuote(ctx, customer, kimQuote())
	require.NoError(t, err)

	_, err = svc.ApproveQuote(ctx, admin, first.ID, 1000000, 100000)
	require.NoError(t, err)
	_, err = svc.CompletePayment(ctx, customer, first.ID)
	require.NoError(t, err)

	mine, err := svc.ListCustomerBookings(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)

	page, err := svc.ListBookings(ctx, model.BookingFilter{Status: model.StatusQuoteRequested})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, int64(900000), sum.Revenue)
	assert.Equal(t, 2, sum.Counts[model.StatusQuoteRequested])
	assert.Equal(t, 1, sum.Counts[model.StatusPaymentCompleted])
}
