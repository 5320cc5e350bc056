package model

import "time"

// Booking status values.  A booking starts as BookingStatusBooked and
// may only ever transition to BookingStatusCancelled; cancelled rows
// are kept for history and their seat becomes available again.
const (
    BookingStatusBooked    = "booked"
    BookingStatusCancelled = "cancelled"
)

// Booking records a user's claim on one seat for one show.  The pair
// (ShowID, SeatNumber) is unique among rows with status "booked";
// the database enforces this with a unique key over the show and a
// virtual column that is NULL for cancelled rows.
//
// Fields:
//  ID         – primary key identifier.
//  ShowID     – show the seat belongs to.
//  UserID     – user who owns the booking.
//  SeatNumber – 1-based seat number, within [1, show.total_seats].
//  Status     – "booked" or "cancelled".
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp (set on cancellation).
type Booking struct {
    ID         uint64    // bookings.id
    ShowID     uint64    // bookings.show_id
    UserID     uint64    // bookings.user_id
    SeatNumber uint32    // bookings.seat_number
    Status     string    // bookings.status
    CreatedAt  time.Time // bookings.created_at
    UpdatedAt  time.Time // bookings.updated_at
}

// Cancelled reports whether the booking has been cancelled.
func (b *Booking) Cancelled() bool { return b.Status == BookingStatusCancelled }
