// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios. For example, ErrSeatTaken indicates that the requested seat
// already has an active booking, while ErrConflict signals a low-level
// storage conflict that survived the service's internal retry.
package repository

import "errors"

// ErrMovieNotFound indicates that a movie lookup yielded no rows.
var ErrMovieNotFound = errors.New("movie not found")

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrBookingNotFound indicates that a booking lookup yielded no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrInvalidSeat is returned when a seat number falls outside
// [1, show.total_seats]. The check happens before any ledger access.
var ErrInvalidSeat = errors.New("seat number out of range")

// ErrSeatTaken is returned when the requested seat already has a
// booking with status "booked", including when a concurrent insert
// wins the race and the unique key rejects ours. Handlers translate
// this into an HTTP 400 response.
var ErrSeatTaken = errors.New("seat already booked")

// ErrShowFull is returned when the number of active bookings for a
// show has reached its total seat capacity. Handlers translate this
// into an HTTP 400 response.
var ErrShowFull = errors.New("show is fully booked")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed due to a
// storage-level conflict (deadlock or lock wait timeout) that did not
// resolve after a retry, or a duplicate slot for shows. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
