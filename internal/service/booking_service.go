// Package service contains the booking service: the single place where a
// user-facing book/cancel request is executed as one atomic unit against
// the reservation ledger. Handlers translate the sentinel errors returned
// here into HTTP responses; no raw storage error escapes this layer's
// contract. The service holds no in-process state across calls; the
// database is the only shared resource.
package service

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "strings"
    "time"

    "github.com/cinebook/movie-ticket-booking/internal/model"
    "github.com/cinebook/movie-ticket-booking/internal/queue"
    "github.com/cinebook/movie-ticket-booking/internal/repository"
)

// BookingService orchestrates seat booking and cancellation inside
// transactions. All invariant checks are delegated to the repositories;
// the service owns the transaction boundary, the per-show serialization
// point (the show row lock) and the retry of transient storage errors.
type BookingService struct {
    db       *sql.DB
    shows    *repository.ShowRepo
    bookings *repository.BookingRepo
    events   *queue.Publisher // optional; nil disables event publishing
}

// NewBookingService constructs a BookingService. The events publisher
// may be nil when no message broker is configured.
func NewBookingService(db *sql.DB, shows *repository.ShowRepo, bookings *repository.BookingRepo, events *queue.Publisher) *BookingService {
    if db == nil || shows == nil || bookings == nil {
        panic("nil dependency passed to NewBookingService")
    }
    return &BookingService{db: db, shows: shows, bookings: bookings, events: events}
}

// Book reserves seatNumber of the given show for the user. It returns
// the created booking, or one of the sentinel errors from the
// repository package: ErrShowNotFound, ErrInvalidSeat (seat outside
// [1, total_seats]; checked before any ledger access), ErrSeatTaken,
// ErrShowFull, or ErrConflict when a transient storage conflict
// survived the internal retry.
func (s *BookingService) Book(ctx context.Context, showID, userID uint64, seatNumber uint32) (*model.Booking, error) {
    // Range validation needs the show's capacity, but no locking yet:
    // a plain read suffices to reject out-of-range and unknown shows.
    show, err := s.shows.GetByID(ctx, showID)
    if err != nil {
        return nil, err
    }
    if seatNumber < 1 || seatNumber > show.TotalSeats {
        return nil, repository.ErrInvalidSeat
    }

    b, err := s.bookInTx(ctx, showID, userID, seatNumber)
    if err != nil && isTransient(err) {
        // Deadlock or lock wait timeout: the transaction rolled back
        // cleanly, so one immediate retry is safe.
        b, err = s.bookInTx(ctx, showID, userID, seatNumber)
        if err != nil && isTransient(err) {
            return nil, repository.ErrConflict
        }
    }
    if err != nil {
        return nil, err
    }

    s.publish(ctx, queue.BookingCreatedEvent{
        BookingID:  b.ID,
        ShowID:     b.ShowID,
        UserID:     b.UserID,
        SeatNumber: b.SeatNumber,
        CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
    })
    return b, nil
}

// bookInTx runs the check-then-act sequence as one serializable unit:
// lock the show row, re-check the seat, re-check capacity, insert. The
// unique key on (show_id, active_seat_number) remains the backstop if
// anything slips past the checks.
func (s *BookingService) bookInTx(ctx context.Context, showID, userID uint64, seatNumber uint32) (*model.Booking, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Serialization point: every booking attempt for this show queues
    // behind this exclusive row lock until we commit or roll back.
    show, err := s.shows.LockByIDTx(ctx, tx, showID)
    if err != nil {
        return nil, err
    }
    taken, err := s.bookings.IsSeatTakenTx(ctx, tx, showID, seatNumber)
    if err != nil {
        return nil, err
    }
    if taken {
        // Seat-specific conflict takes precedence over the aggregate
        // capacity check: it names the cause the caller actually hit.
        return nil, repository.ErrSeatTaken
    }
    booked, err := s.bookings.CountBookedTx(ctx, tx, showID)
    if err != nil {
        return nil, err
    }
    if booked >= show.TotalSeats {
        return nil, repository.ErrShowFull
    }
    b := &model.Booking{ShowID: showID, UserID: userID, SeatNumber: seatNumber}
    if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return b, nil
}

// Cancel transitions the user's booking to cancelled and frees its
// seat. Cancelling an already-cancelled booking is an idempotent
// success: the current (cancelled) state is returned unchanged. It
// returns ErrBookingNotFound for unknown bookings and ErrForbidden
// when the booking belongs to a different user.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
    b, err := s.cancelInTx(ctx, bookingID, userID)
    if err != nil && isTransient(err) {
        b, err = s.cancelInTx(ctx, bookingID, userID)
        if err != nil && isTransient(err) {
            return nil, repository.ErrConflict
        }
    }
    if err != nil {
        return nil, err
    }
    return b, nil
}

func (s *BookingService) cancelInTx(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Lock the booking row so a racing cancel of the same booking
    // serializes here; last committed state is always a valid one.
    b, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.UserID != userID {
        return nil, repository.ErrForbidden
    }
    if b.Cancelled() {
        // Idempotent: report the already-cancelled state as success.
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        committed = true
        return b, nil
    }
    if err := s.bookings.CancelTx(ctx, tx, b); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true

    s.publish(ctx, queue.BookingCancelledEvent{
        BookingID:   b.ID,
        ShowID:      b.ShowID,
        UserID:      b.UserID,
        SeatNumber:  b.SeatNumber,
        CancelledAt: b.UpdatedAt.UTC().Format(time.RFC3339),
    })
    return b, nil
}

// ListForUser returns all bookings of any status owned by the user,
// newest first. Each call issues a fresh query against the ledger.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error) {
    return s.bookings.ListByUser(ctx, userID)
}

// publish sends a booking event to the broker on a best-effort basis.
// Booking and cancellation outcomes are already committed at this
// point; a broker failure is logged and never surfaces to the caller.
func (s *BookingService) publish(ctx context.Context, event interface{}) {
    if s.events == nil {
        return
    }
    if err := s.events.Publish(ctx, event); err != nil {
        log.Printf("booking-service: publish event failed: %v", err)
    }
}

// isTransient reports whether the error is a MySQL deadlock (1213) or
// lock wait timeout (1205), both of which roll the transaction back
// and are safe to retry once.
func isTransient(err error) bool {
    if err == nil {
        return false
    }
    if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
        return false
    }
    msg := strings.ToLower(err.Error())
    return strings.Contains(msg, "1213") || strings.Contains(msg, "1205") ||
        strings.Contains(msg, "deadlock") || strings.Contains(msg, "lock wait timeout")
}
