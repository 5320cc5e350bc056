// Package handler exposes HTTP handlers for both authenticated and public
// endpoints. This file defines handlers for the public catalog API. These
// routes let unauthenticated users browse movies and shows; internal
// fields such as raw timestamps are filtered from responses.

package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/cinebook/movie-ticket-booking/internal/repository"
)

// CatalogHandler aggregates repositories needed for unauthenticated
// browsing of movies and their shows.
type CatalogHandler struct {
    MovieRepo *repository.MovieRepo // provides access to movie data
    ShowRepo  *repository.ShowRepo  // provides access to show data
}

// NewCatalogHandler constructs a CatalogHandler with the provided
// repositories. All dependencies must be non-nil.
func NewCatalogHandler(movieRepo *repository.MovieRepo, showRepo *repository.ShowRepo) *CatalogHandler {
    if movieRepo == nil || showRepo == nil {
        panic("nil repository passed to NewCatalogHandler")
    }
    return &CatalogHandler{MovieRepo: movieRepo, ShowRepo: showRepo}
}

// PublicMovie represents a movie exposed via the public API.
type PublicMovie struct {
    ID              uint64 `json:"id"`
    Title           string `json:"title"`
    DurationMinutes uint32 `json:"duration_minutes"`
}

// ListMovies handles GET /v1/movies. It returns all movies ordered by
// title inside an "items" array.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
    ctx := c.Request().Context()
    movies, err := h.MovieRepo.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]PublicMovie, 0, len(movies))
    for _, m := range movies {
        out = append(out, PublicMovie{ID: m.ID, Title: m.Title, DurationMinutes: m.DurationMinutes})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListShows handles GET /v1/movies/:id/shows. It validates that the
// movie exists and returns its shows ordered by start time, each with
// a derived available seat count.
func (h *CatalogHandler) ListShows(c echo.Context) error {
    ctx := c.Request().Context()
    movieID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || movieID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    if _, err := h.MovieRepo.GetByID(ctx, movieID); err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    shows, err := h.ShowRepo.ListByMovie(ctx, movieID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": shows})
}
