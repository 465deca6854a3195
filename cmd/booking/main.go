package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flightapp/platform/api"
	"github.com/flightapp/platform/config"
	"github.com/flightapp/platform/internal/bootstrap"
	"github.com/flightapp/platform/internal/flightclient"
	"github.com/flightapp/platform/internal/repository"
	"github.com/flightapp/platform/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "booking").Logger()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	flightsClient := flightclient.New(log, cfg.FlightClient.BaseURL, cfg.FlightClient.Retries, cfg.FlightClient.Backoff(), cfg.FlightClient.Timeout())
	itineraryRepo := repository.NewItineraryRepository(pool)
	bookingService := booking.NewBookingService(log, itineraryRepo, flightsClient, cfg.Booking.CancellationWindow(), cfg.Booking.PNRRetries)

	router := gin.New()
	router.Use(gin.Recovery())
	api.NewBookingHandler(bookingService).Register(router)

	if err := bootstrap.RunHTTP(ctx, log, cfg.HTTP.BookingAddress, router); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
