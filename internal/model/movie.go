package model

import "time"

// Movie represents a film that can be scheduled for screenings.
// Movies are immutable once created; there is no lifecycle beyond
// create and read.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – movie title.
//  DurationMinutes – running time in minutes (always >= 1).
//  CreatedAt       – creation timestamp.
type Movie struct {
    ID              uint64    // movies.id
    Title           string    // movies.title
    DurationMinutes uint32    // movies.duration_minutes
    CreatedAt       time.Time // movies.created_at
}
