package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinebook/movie-ticket-booking/internal/handler"
	"github.com/cinebook/movie-ticket-booking/internal/middleware"
)

// RegisterBooking registers the booking endpoints under /v1.  All routes
// require a valid JWT; both customers and admins may book seats, cancel
// their own bookings and list their booking history.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "ADMIN"),
	)
	g.POST("/shows/:id/book", h.BookSeat)
	g.POST("/bookings/:id/cancel", h.CancelBooking)
	g.GET("/my-bookings", h.MyBookings)
}
