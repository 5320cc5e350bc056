package model

import "time"

// Show represents a single scheduled screening of a movie on a
// particular screen.  Capacity is fixed at creation time: TotalSeats
// is the upper bound that seat numbers of bookings must respect.
// Two shows can never share the same screen and start time.
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being screened (many shows per movie).
//  ScreenName – identifier of the physical screen (e.g. "Screen 1").
//  StartsAt   – when the screening begins (UTC).
//  TotalSeats – fixed seat capacity (always >= 1).
//  CreatedAt  – creation timestamp.
type Show struct {
    ID         uint64    // shows.id
    MovieID    uint64    // shows.movie_id
    ScreenName string    // shows.screen_name
    StartsAt   time.Time // shows.starts_at
    TotalSeats uint32    // shows.total_seats
    CreatedAt  time.Time // shows.created_at
}
