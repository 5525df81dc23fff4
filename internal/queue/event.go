// Package queue carries booking lifecycle events over RabbitMQ: the event
// payload, the publisher used by the booking service and the audit
// consumer that appends every event to logs/booking.log.
package queue

import (
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

// StatusChangedQueue is the durable queue booking events are routed to.
const StatusChangedQueue = "booking.status_changed"

// BookingStatusChangedEvent is published after every committed status
// change, including creation (From is empty for requestQuote).  It carries
// enough data for consumers to audit or notify without reading the
// booking store.
type BookingStatusChangedEvent struct {
	BookingID   string          `json:"booking_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	CustomerID  string          `json:"customer_id"`
	From        model.Status    `json:"from,omitempty"`
	To          model.Status    `json:"to"`
	Operation   model.Operation `json:"operation"`
	ActorID     string          `json:"actor_id"`
	ActorRole   model.Role      `json:"actor_role"`
	TotalPrice  int64           `json:"total_price"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewStatusChangedEvent describes the transition of b (already in its new
// state) out of from.
func NewStatusChangedEvent(b model.Booking, from model.Status, op model.Operation, actor model.Actor) BookingStatusChangedEvent {
	return BookingStatusChangedEvent{
		BookingID:   b.ID,
		ProductID:   b.ProductID,
		ProductName: b.ProductName,
		CustomerID:  b.CustomerID,
		From:        from,
		To:          b.Status,
		Operation:   op,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		TotalPrice:  model.FinalPrice(b),
		OccurredAt:  b.UpdatedAt.UTC(),
	}
}
