package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinebook/movie-ticket-booking/internal/handler"
)

// RegisterCatalog registers the unauthenticated browse endpoints.  Guests
// can list movies and the shows of a movie without logging in.  The
// optional middlewares are the Redis response cache and rate limiter;
// they are attached here so the write endpoints never sit behind them.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, mws ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mws...)
	g.GET("/movies", h.ListMovies)
	g.GET("/movies/:id/shows", h.ListShows)
}
