// Package model holds the travel catalog model, the booking entity with its
// lifecycle table, pricing derivations and the errors shared by every layer.
// Handlers translate the sentinel errors below into HTTP responses; other
// layers wrap them with fmt.Errorf("%w: ...") to add detail.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProductNotFound is returned when a product id does not resolve to a
// catalog entry, or the entry is inactive and cannot be quoted.
var ErrProductNotFound = errors.New("product not found")

// ErrBookingNotFound is returned when a booking id does not resolve.
var ErrBookingNotFound = errors.New("booking not found")

// ErrInvalidBookingInput marks a malformed quote request.
var ErrInvalidBookingInput = errors.New("invalid booking input")

// ErrInvalidPricing marks approval amounts that break the pricing invariant.
var ErrInvalidPricing = errors.New("invalid pricing")

// ErrInvalidTransition matches every *InvalidTransitionError via errors.Is.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrStatusConflict is returned by a booking store when a conditional
// status update finds a status other than the expected one.
var ErrStatusConflict = errors.New("booking status changed concurrently")

// InvalidTransitionError reports an operation attempted from a state that
// forbids it.  Allowed lists the states from which the operation is legal.
type InvalidTransitionError struct {
	Current   Status
	Operation Operation
	Allowed   []Status
	Reason    string // optional extra precondition that failed
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	msg := fmt.Sprintf("cannot %s booking in status %s (allowed from: %s)",
		e.Operation, e.Current, strings.Join(allowed, ", "))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes errors.Is(err, ErrInvalidTransition) true.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
