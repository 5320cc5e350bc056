// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer that processes
// them.
package queue

// Event type names carried in the AMQP message Type property so that
// consumers can dispatch without inspecting the payload.
const (
    TypeBookingCreated   = "booking.created"
    TypeBookingCancelled = "booking.cancelled"
)

// BookingCreatedEvent is published when a seat has been successfully
// booked. It contains enough information for downstream consumers to
// log, notify, or feed analytics without querying the primary database.
type BookingCreatedEvent struct {
    BookingID  uint64 `json:"booking_id"`
    ShowID     uint64 `json:"show_id"`
    UserID     uint64 `json:"user_id"`
    SeatNumber uint32 `json:"seat_number"`
    CreatedAt  string `json:"created_at"`
}

// BookingCancelledEvent is published when a booking transitions to
// cancelled and its seat becomes available again.
type BookingCancelledEvent struct {
    BookingID   uint64 `json:"booking_id"`
    ShowID      uint64 `json:"show_id"`
    UserID      uint64 `json:"user_id"`
    SeatNumber  uint32 `json:"seat_number"`
    CancelledAt string `json:"cancelled_at"`
}
