package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinebook/movie-ticket-booking/internal/handler"
	"github.com/cinebook/movie-ticket-booking/internal/middleware"
)

// RegisterAdmin registers catalog management endpoints under /v1.  All
// routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.POST("/movies", h.CreateMovie)
	g.POST("/movies/:id/shows", h.CreateShow)
}
