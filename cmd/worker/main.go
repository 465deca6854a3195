package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flightapp/platform/config"
	"github.com/flightapp/platform/internal/cache"
	"github.com/flightapp/platform/internal/consumer"
	"github.com/flightapp/platform/internal/kafka"
	"github.com/flightapp/platform/internal/outbox"
	"github.com/flightapp/platform/internal/repository"
	"github.com/flightapp/platform/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()

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
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	flightService := flights.NewFlightService(log, flightRepo, redisCache)

	relay := outbox.NewRelay(log, repository.NewOutboxStore(pool), producer, cfg.Worker.RelayBatchSize, cfg.Worker.RelayInterval())
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error().Err(err).Msg("outbox relay stopped")
		}
	}()

	go supervise(ctx, log, "cancellation", func(ctx context.Context) error {
		source := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.InventoryGroupID, cfg.Kafka.CancellationTopic)
		defer source.Close()
		return consumer.NewCancellationConsumer(log, source, flightService, redisCache).Run(ctx)
	})

	go supervise(ctx, log, "notifier", func(ctx context.Context) error {
		source := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.NotifierGroupID, cfg.Kafka.PlacedTopic, cfg.Kafka.CancellationTopic)
		defer source.Close()
		return consumer.NewNotifier(log, source).Run(ctx)
	})

	<-ctx.Done()
	log.Info().Msg("worker shutting down")
}

// supervise restarts a consumer loop after failures so a transient broker or
// database outage does not take the worker down; uncommitted messages are
// redelivered on the next session.
func supervise(ctx context.Context, log zerolog.Logger, name string, run func(context.Context) error) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := run(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).Str("consumer", name).Msg("consumer stopped, restarting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
