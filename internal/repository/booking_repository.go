package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/cinebook/movie-ticket-booking/internal/model"
)

// BookingRepo is the single gateway to booking state; every invariant
// check on seats lives here. Bookings claim one seat of one show for
// one user. A unique key over (show_id, active_seat_number), where
// active_seat_number is a virtual column equal to seat_number for
// booked rows and NULL for cancelled ones, is the race-proof backstop
// guaranteeing that two bookings for the same seat can never both be
// active, regardless of what the pre-checks observed. All timestamp
// fields are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB so that the booking service can
// begin transactions spanning the show and booking repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// IsSeatTakenTx reports whether an active booking exists for the given
// show and seat. It runs within the caller's transaction and locks any
// matching row (FOR UPDATE), so two concurrent bookers on the same
// seat cannot both observe false: the booking flow has already locked
// the show row at this point, which serializes the whole check-then-act
// sequence per show.
func (r *BookingRepo) IsSeatTakenTx(ctx context.Context, tx *sql.Tx, showID uint64, seatNumber uint32) (bool, error) {
    const q = `SELECT id FROM bookings
               WHERE show_id = ? AND seat_number = ? AND status = 'booked'
               LIMIT 1 FOR UPDATE`
    var id uint64
    err := tx.QueryRowContext(ctx, q, showID, seatNumber).Scan(&id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return false, nil
        }
        return false, err
    }
    return true, nil
}

// CountBookedTx returns the number of active bookings for a show within
// the caller's transaction. The booking flow calls it under the show
// row lock so the count cannot move between the capacity check and the
// insert.
func (r *BookingRepo) CountBookedTx(ctx context.Context, tx *sql.Tx, showID uint64) (uint32, error) {
    const q = `SELECT COUNT(*) FROM bookings WHERE show_id = ? AND status = 'booked'`
    var n uint32
    if err := tx.QueryRowContext(ctx, q, showID).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// CreateTx inserts a new booked record within the provided transaction
// and populates the generated ID and timestamps on the given booking.
// When a concurrent insert for the same (show, seat) slips past the
// pre-check, the uniq_show_active_seat key rejects ours with a
// duplicate-entry error, which is surfaced as ErrSeatTaken. The caller
// must commit or roll back the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (show_id, user_id, seat_number, status) VALUES (?, ?, ?, 'booked')`
    res, err := tx.ExecContext(ctx, q, b.ShowID, b.UserID, b.SeatNumber)
    if err != nil {
        // MySQL duplicate entry (error 1062): lost the race on the unique key.
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrSeatTaken
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    // Query back the full row to populate status and timestamps.
    const sel = `SELECT id, show_id, user_id, seat_number, status, created_at, updated_at
                 FROM bookings WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, b.ID).Scan(
        &b.ID, &b.ShowID, &b.UserID, &b.SeatNumber, &b.Status, &b.CreatedAt, &b.UpdatedAt,
    )
}

// GetByID retrieves a booking by its ID. It returns ErrBookingNotFound
// when no matching row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    const q = `SELECT id, show_id, user_id, seat_number, status, created_at, updated_at
               FROM bookings WHERE id = ?`
    var b model.Booking
    err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.ShowID, &b.UserID, &b.SeatNumber, &b.Status, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return &b, nil
}

// GetByIDTx is like GetByID but runs within the caller's transaction
// and locks the booking row (FOR UPDATE) so that a concurrent cancel of
// the same booking serializes against us.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    const q = `SELECT id, show_id, user_id, seat_number, status, created_at, updated_at
               FROM bookings WHERE id = ? FOR UPDATE`
    var b model.Booking
    err := tx.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.ShowID, &b.UserID, &b.SeatNumber, &b.Status, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return &b, nil
}

// CancelTx sets the booking's status to cancelled within the caller's
// transaction. The UPDATE is guarded by status = 'booked', so the row
// is never moved out of a cancelled state and the virtual column on
// the unique key becomes NULL, freeing the seat for re-booking. The
// booking struct is updated in place on success. Cancelling a booking
// that is already cancelled is a no-op; the caller is expected to have
// handled that case (the service treats it as idempotent success).
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `UPDATE bookings SET status = 'cancelled' WHERE id = ? AND status = 'booked'`
    res, err := tx.ExecContext(ctx, q, b.ID)
    if err != nil {
        return err
    }
    affected, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if affected == 0 {
        // Row was already cancelled (or vanished); re-read to reflect reality.
        const sel = `SELECT status, updated_at FROM bookings WHERE id = ?`
        if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.Status, &b.UpdatedAt); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrBookingNotFound
            }
            return err
        }
        return nil
    }
    b.Status = model.BookingStatusCancelled
    // Read back updated_at so callers (and the cancellation event) carry
    // the row's ON UPDATE timestamp, not a locally computed one.
    const stamp = `SELECT updated_at FROM bookings WHERE id = ?`
    return tx.QueryRowContext(ctx, stamp, b.ID).Scan(&b.UpdatedAt)
}

// BookingDetail is a booking summary joined with show and movie
// information for display to the owning user.
type BookingDetail struct {
    ID         uint64 `json:"id"`
    ShowID     uint64 `json:"show_id"`
    MovieTitle string `json:"movie_title"`
    ScreenName string `json:"screen_name"`
    StartsAt   string `json:"starts_at"`
    SeatNumber uint32 `json:"seat_number"`
    Status     string `json:"status"`
    CreatedAt  string `json:"created_at"`
}

// ListByUser returns all bookings owned by the given user regardless of
// status, newest first. Each call issues a fresh query. When no
// bookings exist, an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
    const q = `SELECT b.id, b.show_id, m.title, s.screen_name, s.starts_at, b.seat_number, b.status, b.created_at
               FROM bookings b
               JOIN shows s ON s.id = b.show_id
               JOIN movies m ON m.id = s.movie_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]BookingDetail, 0)
    for rows.Next() {
        var d BookingDetail
        var startsAt, createdAt sql.NullTime
        if err := rows.Scan(&d.ID, &d.ShowID, &d.MovieTitle, &d.ScreenName, &startsAt, &d.SeatNumber, &d.Status, &createdAt); err != nil {
            return nil, err
        }
        if startsAt.Valid {
            d.StartsAt = startsAt.Time.UTC().Format(time.RFC3339)
        }
        if createdAt.Valid {
            d.CreatedAt = createdAt.Time.UTC().Format(time.RFC3339)
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}
