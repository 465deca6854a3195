package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Booking      BookingConfig      `yaml:"booking"`
	FlightClient FlightClientConfig `yaml:"flight_client"`
	Worker       WorkerConfig       `yaml:"worker"`
}

type HTTPConfig struct {
	FlightsAddress string `yaml:"flights_address"`
	BookingAddress string `yaml:"booking_address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	PlacedTopic       string   `yaml:"placed_topic"`
	CancellationTopic string   `yaml:"cancellation_topic"`
	InventoryGroupID  string   `yaml:"inventory_group_id"`
	NotifierGroupID   string   `yaml:"notifier_group_id"`
}

type BookingConfig struct {
	CancellationWindowHours int `yaml:"cancellation_window_hours"`
	FlightsCacheTTLSeconds  int `yaml:"flights_cache_ttl_seconds"`
	PNRRetries              int `yaml:"pnr_retries"`
}

func (b BookingConfig) CancellationWindow() time.Duration {
	return time.Duration(b.CancellationWindowHours) * time.Hour
}

func (b BookingConfig) FlightsCacheTTL() time.Duration {
	return time.Duration(b.FlightsCacheTTLSeconds) * time.Second
}

type FlightClientConfig struct {
	BaseURL        string `yaml:"base_url"`
	Retries        int    `yaml:"retries"`
	BackoffMillis  int    `yaml:"backoff_millis"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (f FlightClientConfig) Backoff() time.Duration {
	return time.Duration(f.BackoffMillis) * time.Millisecond
}

func (f FlightClientConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

type WorkerConfig struct {
	RelayBatchSize      int `yaml:"relay_batch_size"`
	RelayIntervalMillis int `yaml:"relay_interval_millis"`
	DedupTTLHours       int `yaml:"dedup_ttl_hours"`
}

func (w WorkerConfig) RelayInterval() time.Duration {
	return time.Duration(w.RelayIntervalMillis) * time.Millisecond
}

func (w WorkerConfig) DedupTTL() time.Duration {
	return time.Duration(w.DedupTTLHours) * time.Hour
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
