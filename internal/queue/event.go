// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Event types carried in BookingEvent.Type.
const (
    EventBookingCreated       = "booking.created"
    EventBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published after a booking is created or changes state.
// It carries enough of the booking for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type BookingEvent struct {
    Type           string    `json:"type"`
    BookingID      uint64    `json:"booking_id"`
    UserID         uint64    `json:"user_id"`
    ProviderID     uint64    `json:"provider_id"`
    ServiceID      uint64    `json:"service_id"`
    Status         string    `json:"status"`
    EstimatedPrice float64   `json:"estimated_price"`
    OccurredAt     time.Time `json:"occurred_at"`
}
