package handler // handler package contains admin catalog handlers

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/cinebook/movie-ticket-booking/internal/model"
    "github.com/cinebook/movie-ticket-booking/internal/repository"
)

// AdminHandler bundles repositories for administrators to manage the
// catalog. Movies are immutable once created and shows have a fixed
// capacity, so only create endpoints exist.
type AdminHandler struct {
    MovieRepo *repository.MovieRepo
    ShowRepo  *repository.ShowRepo
}

// NewAdminHandler constructs a new AdminHandler and panics if any
// dependency is nil.
func NewAdminHandler(movieRepo *repository.MovieRepo, showRepo *repository.ShowRepo) *AdminHandler {
    if movieRepo == nil || showRepo == nil {
        panic("nil repository passed to NewAdminHandler")
    }
    return &AdminHandler{MovieRepo: movieRepo, ShowRepo: showRepo}
}

// CreateMovie handles POST /v1/movies. The request body must contain a
// non-empty title and a duration of at least one minute.
func (h *AdminHandler) CreateMovie(c echo.Context) error {
    var body struct {
        Title           string `json:"title"`
        DurationMinutes uint32 `json:"duration_minutes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    title := strings.TrimSpace(body.Title)
    if title == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
    }
    if body.DurationMinutes == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be at least 1"})
    }
    movie := &model.Movie{Title: title, DurationMinutes: body.DurationMinutes}
    if err := h.MovieRepo.Create(c.Request().Context(), movie); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create movie"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "movie": PublicMovie{ID: movie.ID, Title: movie.Title, DurationMinutes: movie.DurationMinutes},
    })
}

// CreateShow handles POST /v1/movies/:id/shows and schedules a new
// screening of the movie. Capacity is fixed at creation: total_seats
// becomes the permanent upper bound for seat numbers of this show.
// Scheduling two shows on the same screen at the same time returns 409.
func (h *AdminHandler) CreateShow(c echo.Context) error {
    movieID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || movieID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    var body struct {
        ScreenName string `json:"screen_name"`
        StartsAt   string `json:"starts_at"`
        TotalSeats uint32 `json:"total_seats"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    screen := strings.TrimSpace(body.ScreenName)
    if screen == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "screen_name is required"})
    }
    if body.TotalSeats == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats must be at least 1"})
    }
    startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(body.StartsAt))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at format"})
    }
    ctx := c.Request().Context()
    movie, err := h.MovieRepo.GetByID(ctx, movieID)
    if err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    show := &model.Show{
        MovieID:    movieID,
        ScreenName: screen,
        StartsAt:   startsAt.UTC(),
        TotalSeats: body.TotalSeats,
    }
    if err := h.ShowRepo.Create(ctx, show); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "a show already exists on this screen at that time"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create show"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "show": repository.ShowDetail{
            ID:             show.ID,
            MovieID:        show.MovieID,
            MovieTitle:     movie.Title,
            ScreenName:     show.ScreenName,
            StartsAt:       show.StartsAt.UTC().Format(time.RFC3339),
            TotalSeats:     show.TotalSeats,
            AvailableSeats: show.TotalSeats,
        },
    })
}
