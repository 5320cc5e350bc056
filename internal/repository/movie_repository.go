// Package repository contains data access logic for the catalog and booking
// domain. This file defines repository methods for movies. Movies are
// read-mostly: they are created once (by admins) and never updated, so no
// locking is involved on their read paths.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"       // errors for sentinel comparisons

    "github.com/cinebook/movie-ticket-booking/internal/model"
)

// MovieRepo manages persistence for movies.
type MovieRepo struct {
    db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
    return &MovieRepo{db: db}
}

// Create inserts a new movie into the database and assigns the generated
// ID back to the movie struct. Title and DurationMinutes must be set by
// the caller; CreatedAt is populated from the row defaults.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
    const q = `INSERT INTO movies (title, duration_minutes) VALUES (?, ?)`
    res, err := r.db.ExecContext(ctx, q, m.Title, m.DurationMinutes)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    m.ID = uint64(id)
    // Query back the inserted row to populate DB-default fields.
    const sel = `SELECT id, title, duration_minutes, created_at FROM movies WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, m.ID).Scan(&m.ID, &m.Title, &m.DurationMinutes, &m.CreatedAt)
}

// GetByID retrieves a movie by its ID. It returns ErrMovieNotFound if
// there is no matching row.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
    const q = `SELECT id, title, duration_minutes, created_at FROM movies WHERE id = ?`
    var m model.Movie
    err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Title, &m.DurationMinutes, &m.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrMovieNotFound
        }
        return nil, err
    }
    return &m, nil
}

// List returns all movies ordered by title ascending. When no movies
// exist it returns an empty slice and nil error.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
    const q = `SELECT id, title, duration_minutes, created_at FROM movies ORDER BY title ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    movies := make([]model.Movie, 0)
    for rows.Next() {
        var m model.Movie
        if err := rows.Scan(&m.ID, &m.Title, &m.DurationMinutes, &m.CreatedAt); err != nil {
            return nil, err
        }
        movies = append(movies, m)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return movies, nil
}
