package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flightapp/platform/config"
	"github.com/flightapp/platform/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
	dedupTTL   time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL, dedupTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
		dedupTTL:   dedupTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

// Seen is the consumer's fast-path dedup check. It only reads: the key is
// recorded by MarkSeen after the release is applied, so a delivery that failed
// mid-handling is never mistaken for a processed one on redelivery. The
// durable processed_releases ledger backs this up.
func (c *RedisCache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSeen records a processed release so replays within the TTL short-circuit
// before touching the database.
func (c *RedisCache) MarkSeen(ctx context.Context, key string) error {
	return c.client.Set(ctx, key, "1", c.dedupTTL).Err()
}

func ReleaseKey(pnr string, flightID int64) string {
	return fmt.Sprintf("release:%s:%d", pnr, flightID)
}

func flightsKey() string {
	return "cache:flights"
}
