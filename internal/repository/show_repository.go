// This file defines repository methods for shows. A Show represents a
// scheduled screening of a movie on a screen with a fixed seat capacity.
// The capacity set at creation time is the bound that every booking's
// seat number must respect; it never changes afterwards.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"       // errors for sentinel comparisons
    "strings"      // strings for duplicate-key error detection
    "time"         // time formats for DB timestamps

    "github.com/cinebook/movie-ticket-booking/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
    db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
    return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.  Use this method to
// obtain a *sql.DB when you need fine-grained transaction control.
func (r *ShowRepo) DB() *sql.DB {
    return r.db
}

// Create inserts a new show. The caller must provide movie_id,
// screen_name, starts_at and total_seats. The shows table carries a
// unique key over (screen_name, starts_at); inserting a second show
// into the same slot returns ErrConflict. On success the generated ID
// and CreatedAt are populated on the given Show.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
    const q = `INSERT INTO shows (movie_id, screen_name, starts_at, total_seats) VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, s.MovieID, s.ScreenName, s.StartsAt.UTC().Format("2006-01-02 15:04:05"), s.TotalSeats)
    if err != nil {
        // MySQL duplicate entry (error 1062) on the screen/time unique key.
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    const sel = `SELECT id, movie_id, screen_name, starts_at, total_seats, created_at FROM shows WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, s.ID).Scan(
        &s.ID, &s.MovieID, &s.ScreenName, &s.StartsAt, &s.TotalSeats, &s.CreatedAt,
    )
}

// GetByID retrieves a show by its ID. It returns ErrShowNotFound if
// there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
    const q = `SELECT id, movie_id, screen_name, starts_at, total_seats, created_at FROM shows WHERE id = ?`
    var s model.Show
    err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.MovieID, &s.ScreenName, &s.StartsAt, &s.TotalSeats, &s.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowNotFound
        }
        return nil, err
    }
    return &s, nil
}

// LockByIDTx re-reads a show within the given transaction while taking
// an exclusive row lock (SELECT ... FOR UPDATE). Every booking attempt
// locks its show row first, so concurrent bookers on the same show are
// serialized until the surrounding transaction commits or rolls back.
// It returns ErrShowNotFound when the show does not exist.
func (r *ShowRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Show, error) {
    const q = `SELECT id, movie_id, screen_name, starts_at, total_seats, created_at
               FROM shows WHERE id = ? FOR UPDATE`
    var s model.Show
    err := tx.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.MovieID, &s.ScreenName, &s.StartsAt, &s.TotalSeats, &s.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowNotFound
        }
        return nil, err
    }
    return &s, nil
}

// ShowDetail is the public representation of a show returned by the
// catalog read paths. AvailableSeats is derived: total capacity minus
// the number of active bookings at query time.
type ShowDetail struct {
    ID             uint64 `json:"id"`
    MovieID        uint64 `json:"movie_id"`
    MovieTitle     string `json:"movie_title"`
    ScreenName     string `json:"screen_name"`
    StartsAt       string `json:"starts_at"`
    TotalSeats     uint32 `json:"total_seats"`
    AvailableSeats uint32 `json:"available_seats"`
}

// ListByMovie returns all shows for the given movie ordered by start
// time ascending, each with its derived available seat count. The
// count is a point-in-time read with no locking; the booking path
// re-checks capacity under the show row lock.
func (r *ShowRepo) ListByMovie(ctx context.Context, movieID uint64) ([]ShowDetail, error) {
    const q = `SELECT s.id, s.movie_id, m.title, s.screen_name, s.starts_at, s.total_seats,
                      (SELECT COUNT(*) FROM bookings b WHERE b.show_id = s.id AND b.status = 'booked')
               FROM shows s
               JOIN movies m ON m.id = s.movie_id
               WHERE s.movie_id = ?
               ORDER BY s.starts_at ASC`
    rows, err := r.db.QueryContext(ctx, q, movieID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]ShowDetail, 0)
    for rows.Next() {
        var d ShowDetail
        var startsAt sql.NullTime
        var booked uint32
        if err := rows.Scan(&d.ID, &d.MovieID, &d.MovieTitle, &d.ScreenName, &startsAt, &d.TotalSeats, &booked); err != nil {
            return nil, err
        }
        if startsAt.Valid {
            d.StartsAt = startsAt.Time.UTC().Format(time.RFC3339)
        }
        if booked < d.TotalSeats {
            d.AvailableSeats = d.TotalSeats - booked
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}
