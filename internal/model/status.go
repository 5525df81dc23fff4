package model

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a booking.  The string values are the
// wire contract shared with every consumer of the API and the booking
// events; they are stored verbatim in bookings.status.
type Status string

const (
	StatusQuoteRequested   Status = "QUOTE_REQUESTED"
	StatusPaymentPending   Status = "PAYMENT_PENDING"
	StatusPaymentCompleted Status = "PAYMENT_COMPLETED"
	StatusCancelPending    Status = "CANCEL_PENDING"
	StatusCancelled        Status = "CANCELLED"
	StatusTravelCompleted  Status = "TRAVEL_COMPLETED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusQuoteRequested,
	StatusPaymentPending,
	StatusPaymentCompleted,
	StatusCancelPending,
	StatusCancelled,
	StatusTravelCompleted,
}

// Operation names a state changing action on a booking.
type Operation string

const (
	OpRequestQuote        Operation = "requestQuote"
	OpApproveQuote        Operation = "approveQuote"
	OpCompletePayment     Operation = "completePayment"
	OpRequestCancellation Operation = "requestCancellation"
	OpConfirmCancellation Operation = "confirmCancellation"
	OpMarkTravelCompleted Operation = "markTravelCompleted"

	// OpGetPaymentPage reads the payment page.  It changes nothing and has
	// no row in the lifecycle table; it is allowed wherever completePayment is.
	OpGetPaymentPage Operation = "getPaymentPage"
)

// transition is one row of the lifecycle table.  An empty from list means
// the operation creates the booking.
type transition struct {
	from []Status
	to   Status
}

// transitions is the lifecycle table.  Every other rule about status
// changes, including the display mapping, is derived from it.
var transitions = map[Operation]transition{
	OpRequestQuote:        {from: nil, to: StatusQuoteRequested},
	OpApproveQuote:        {from: []Status{StatusQuoteRequested}, to: StatusPaymentPending},
	OpCompletePayment:     {from: []Status{StatusPaymentPending}, to: StatusPaymentCompleted},
	OpRequestCancellation: {from: []Status{StatusQuoteRequested, StatusPaymentPending, StatusPaymentCompleted}, to: StatusCancelPending},
	OpConfirmCancellation: {from: []Status{StatusCancelPending}, to: StatusCancelled},
	OpMarkTravelCompleted: {from: []Status{StatusPaymentCompleted}, to: StatusTravelCompleted},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, k := range Statuses {
		if s == k {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no operation can move a booking out of s.
func (s Status) IsTerminal() bool {
	if !s.Valid() {
		return false
	}
	for _, t := range transitions {
		for _, f := range t.from {
			if f == s {
				return false
			}
		}
	}
	return true
}

// String returns the wire representation.
func (s Status) String() string { return string(s) }

// ParseStatus converts a wire string into a Status.  Matching is
// case-insensitive.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

// AllowedFrom returns the states from which op may be applied.  The result
// is a copy and may be modified by the caller.
func AllowedFrom(op Operation) []Status {
	t, ok := transitions[op]
	if !ok {
		return nil
	}
	return append([]Status(nil), t.from...)
}

// InitialStatus is the state requestQuote creates a booking in.
func InitialStatus() Status { return transitions[OpRequestQuote].to }

// Next returns the state reached by applying op to a booking in current.
// It fails with an *InvalidTransitionError when the table forbids it.
func Next(current Status, op Operation) (Status, error) {
	t, ok := transitions[op]
	if !ok {
		return "", fmt.Errorf("unknown operation %q", op)
	}
	for _, f := range t.from {
		if f == current {
			return t.to, nil
		}
	}
	return "", &InvalidTransitionError{Current: current, Operation: op, Allowed: AllowedFrom(op)}
}

// StatusDisplay is the presentation hint for a status.  Tone is a semantic
// color key (info, warning, success, danger, neutral) rather than a color.
type StatusDisplay struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

// Display derives the presentation hint for s.  Terminal states are
// neutral or danger, states waiting on the customer are warnings, states
// waiting on an admin are info.
func (s Status) Display() StatusDisplay {
	switch s {
	case StatusQuoteRequested:
		return StatusDisplay{Label: "Quote requested", Tone: "info"}
	case StatusPaymentPending:
		return StatusDisplay{Label: "Awaiting payment", Tone: "warning"}
	case StatusPaymentCompleted:
		return StatusDisplay{Label: "Payment completed", Tone: "success"}
	case StatusCancelPending:
		return StatusDisplay{Label: "Cancellation requested", Tone: "info"}
	case StatusCancelled:
		return StatusDisplay{Label: "Cancelled", Tone: "danger"}
	case StatusTravelCompleted:
		return StatusDisplay{Label: "Travel completed", Tone: "neutral"}
	}
	return StatusDisplay{Label: string(s), Tone: "neutral"}
}
