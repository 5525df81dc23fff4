package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates such as travel dates.
const DateLayout = "2006-01-02"

// Role is the kind of actor invoking a booking operation.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
	RoleSystem   Role = "SYSTEM"
)

// Actor identifies who invokes an operation.  Authorization has already
// happened upstream; the actor is recorded on events and in logs.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by the travel completion sweep.
var SystemActor = Actor{ID: "travel-sweep", Role: RoleSystem}

// Booking is a single reservation request and its evolving state.
//
// Fields:
//
//	ID               – booking identifier (UUID).
//	ProductID        – referenced catalog product.
//	ProductName      – product name captured when the quote was requested.
//	CustomerID       – subject of the customer that requested the quote.
//	CustomerName     – traveller name entered on the quote request.
//	TravelDate       – calendar date of travel (UTC midnight).
//	Travelers        – number of travellers, at least 1.
//	OriginalPrice    – quoted price before discount, set on approval.
//	DiscountedAmount – discount granted on approval.
//	TotalPrice       – OriginalPrice - DiscountedAmount.
//	SpecialRequests  – optional free text from the customer.
//	Status           – lifecycle state.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – timestamp of the last transition.
type Booking struct {
	ID               string
	ProductID        string
	ProductName      string
	CustomerID       string
	CustomerName     string
	TravelDate       time.Time
	Travelers        int
	OriginalPrice    int64
	DiscountedAmount int64
	TotalPrice       int64
	SpecialRequests  *string
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Pricing is the quote an admin approves.  Once written it never changes.
type Pricing struct {
	OriginalPrice    int64
	DiscountedAmount int64
	TotalPrice       int64
}

// NewPricing validates approval amounts and derives the total.
func NewPricing(originalPrice, discountedAmount int64) (Pricing, error) {
	if discountedAmount < 0 {
		return Pricing{}, fmt.Errorf("%w: discounted amount %d is negative", ErrInvalidPricing, discountedAmount)
	}
	if originalPrice < discountedAmount {
		return Pricing{}, fmt.Errorf("%w: discounted amount %d exceeds original price %d", ErrInvalidPricing, discountedAmount, originalPrice)
	}
	return Pricing{
		OriginalPrice:    originalPrice,
		DiscountedAmount: discountedAmount,
		TotalPrice:       originalPrice - discountedAmount,
	}, nil
}

// Apply writes the pricing fields onto b.
func (p Pricing) Apply(b *Booking) {
	b.OriginalPrice = p.OriginalPrice
	b.DiscountedAmount = p.DiscountedAmount
	b.TotalPrice = p.TotalPrice
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// TravelDatePassed reports whether the travel date lies strictly before the
// calendar date of now.
func (b Booking) TravelDatePassed(now time.Time) bool {
	return DateOf(b.TravelDate).Before(DateOf(now))
}

// PaymentPageView is the read-only projection that drives the payment step.
type PaymentPageView struct {
	BookingID    string `json:"booking_id"`
	CustomerName string `json:"customer_name"`
	ProductName  string `json:"product_name"`
	TravelDate   string `json:"travel_date"`
	FinalPrice   int64  `json:"final_price"`
}

// PaymentPage projects b for the payment step.  Only bookings awaiting
// payment have a payment page.
func (b Booking) PaymentPage() (PaymentPageView, error) {
	if b.Status != StatusPaymentPending {
		return PaymentPageView{}, &InvalidTransitionError{
			Current:   b.Status,
			Operation: OpGetPaymentPage,
			Allowed:   AllowedFrom(OpCompletePayment),
			Reason:    "payment page is only available while payment is pending",
		}
	}
	return PaymentPageView{
		BookingID:    b.ID,
		CustomerName: b.CustomerName,
		ProductName:  b.ProductName,
		TravelDate:   DateOf(b.TravelDate).Format(DateLayout),
		FinalPrice:   FinalPrice(b),
	}, nil
}

// BookingFilter narrows admin booking listings.
type BookingFilter struct {
	Status   Status // empty means any status
	Page     int
	PageSize int
}

// Normalize applies paging defaults: page 1, page size 20, capped at 100.
func (f BookingFilter) Normalize() BookingFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f
}

// StatusUpdate is a conditional status change.  Stores apply it only while
// the booking is still in From and report ErrStatusConflict otherwise.
// Pricing is nil for every operation except approveQuote.
type StatusUpdate struct {
	ID      string
	From    Status
	To      Status
	Pricing *Pricing
	At      time.Time
}
