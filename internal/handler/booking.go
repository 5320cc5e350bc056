package handler

import (
    "context"  // context type used in the service contract
    "errors"   // for errors.Is comparisons against repository sentinels
    "fmt"      // for seat-specific error messages
    "net/http" // HTTP status codes
    "strconv"  // parsing path parameters
    "time"     // formatting timestamps in responses

    "github.com/labstack/echo/v4"

    "github.com/cinebook/movie-ticket-booking/internal/model"
    "github.com/cinebook/movie-ticket-booking/internal/repository"
)

// BookingService is the slice of the booking service this handler
// consumes. service.BookingService satisfies it.
type BookingService interface {
    Book(ctx context.Context, showID, userID uint64, seatNumber uint32) (*model.Booking, error)
    Cancel(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
    ListForUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error)
}

// BookingHandler exposes the booking endpoints for customers. All
// methods assume that JWT authentication and role validation have
// already been performed by middleware; the handler only extracts the
// verified user id and delegates to the booking service, translating
// sentinel errors into stable HTTP responses. Seat-taken and show-full
// are expected, frequent outcomes under load, so they map to plain 400
// responses rather than anything heavier.
type BookingHandler struct {
    Service BookingService
}

// NewBookingHandler constructs a BookingHandler around the service.
func NewBookingHandler(svc BookingService) *BookingHandler {
    if svc == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Service: svc}
}

// bookingPart is the representation of a booking in responses.
type bookingPart struct {
    ID         uint64 `json:"id"`
    ShowID     uint64 `json:"show_id"`
    SeatNumber uint32 `json:"seat_number"`
    Status     string `json:"status"`
    CreatedAt  string `json:"created_at"`
}

func toBookingPart(b *model.Booking) bookingPart {
    return bookingPart{
        ID:         b.ID,
        ShowID:     b.ShowID,
        SeatNumber: b.SeatNumber,
        Status:     b.Status,
        CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// BookSeat handles POST /v1/shows/:id/book. The request body must
// contain a JSON object with a positive "seat_number". On success it
// returns 201 Created with the new booking. Expected failures: 404
// when the show does not exist, 400 for an out-of-range seat, a seat
// that is already booked, or a fully booked show, and 409 when a
// storage conflict survived the service's retry.
func (h *BookingHandler) BookSeat(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || showID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
    }
    var body struct {
        SeatNumber uint32 `json:"seat_number"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.SeatNumber == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number is required"})
    }

    booking, err := h.Service.Book(c.Request().Context(), showID, userID, body.SeatNumber)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrShowNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
        case errors.Is(err, repository.ErrInvalidSeat):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat number out of range"})
        case errors.Is(err, repository.ErrSeatTaken):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("seat %d is already booked", body.SeatNumber)})
        case errors.Is(err, repository.ErrShowFull):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "show is fully booked"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "booking conflict, please retry"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "message": "booking successful",
        "booking": toBookingPart(booking),
    })
}

// CancelBooking handles POST /v1/bookings/:id/cancel. Only the booking's
// owner may cancel it; cancelling an already-cancelled booking returns
// the cancelled state again (idempotent). Responds 404 for unknown
// bookings and 403 when the booking belongs to someone else.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    booking, err := h.Service.Cancel(c.Request().Context(), bookingID, userID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrBookingNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only cancel your own bookings"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "cancellation conflict, please retry"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancellation failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "booking cancelled",
        "booking": echo.Map{"id": booking.ID, "status": booking.Status},
    })
}

// MyBookings handles GET /v1/my-bookings. It returns all bookings of
// any status for the current user, newest first. When no bookings
// exist, it returns an empty array.
func (h *BookingHandler) MyBookings(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Service.ListForUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
