package main

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/movie-ticket-booking/internal/config"
	"github.com/cinebook/movie-ticket-booking/internal/database"
	"github.com/cinebook/movie-ticket-booking/internal/handler"
	"github.com/cinebook/movie-ticket-booking/internal/middleware"
	"github.com/cinebook/movie-ticket-booking/internal/queue"
	"github.com/cinebook/movie-ticket-booking/internal/repository"
	"github.com/cinebook/movie-ticket-booking/internal/router"
	"github.com/cinebook/movie-ticket-booking/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; without it the catalog runs uncached and unlimited.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	movieRepo := repository.NewMovieRepo(db)
	showRepo := repository.NewShowRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	events := queue.NewPublisher("")
	bookings := service.NewBookingService(db, showRepo, bookingRepo, events)

	// The consumer keeps its own connection and reconnects on failure, so a
	// broker outage never blocks the API.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)

	var catalogMW []echo.MiddlewareFunc
	if rdb != nil {
		catalogMW = append(catalogMW,
			middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
			middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		)
	}
	router.RegisterCatalog(e, handler.NewCatalogHandler(movieRepo, showRepo), catalogMW...)
	router.RegisterBooking(e, handler.NewBookingHandler(bookings), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(movieRepo, showRepo), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
