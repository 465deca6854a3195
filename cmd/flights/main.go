package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flightapp/platform/api"
	"github.com/flightapp/platform/config"
	"github.com/flightapp/platform/internal/bootstrap"
	"github.com/flightapp/platform/internal/cache"
	"github.com/flightapp/platform/internal/repository"
	"github.com/flightapp/platform/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "flights").Logger()

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

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheTTL(), cfg.Worker.DedupTTL())

	flightRepo := repository.NewFlightRepository(pool)
	flightService := flights.NewFlightService(log, flightRepo, redisCache)

	router := gin.New()
	router.Use(gin.Recovery())
	api.NewFlightHandler(flightService).Register(router)

	if err := bootstrap.RunHTTP(ctx, log, cfg.HTTP.FlightsAddress, router); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
