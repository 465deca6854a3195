package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS airlines (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS flights (
		id BIGSERIAL PRIMARY KEY,
		airline_id BIGINT NOT NULL REFERENCES airlines(id),
		from_airport TEXT NOT NULL,
		to_airport TEXT NOT NULL,
		departure_time TIMESTAMPTZ NOT NULL,
		arrival_time TIMESTAMPTZ NOT NULL,
		price BIGINT NOT NULL,
		total_seats INT NOT NULL,
		available_seats INT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (available_seats >= 0),
		CHECK (available_seats <= total_seats)
	)`,
	`CREATE TABLE IF NOT EXISTS itineraries (
		id BIGSERIAL PRIMARY KEY,
		pnr TEXT NOT NULL UNIQUE,
		user_name TEXT NOT NULL,
		user_email TEXT NOT NULL,
		total_amount BIGINT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS itineraries_user_email_idx ON itineraries(user_email)`,
	`CREATE TABLE IF NOT EXISTS booking_legs (
		id BIGSERIAL PRIMARY KEY,
		itinerary_id BIGINT NOT NULL REFERENCES itineraries(id),
		flight_id BIGINT NOT NULL,
		journey_date DATE NOT NULL,
		segment_type TEXT NOT NULL,
		status TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS passengers (
		id BIGSERIAL PRIMARY KEY,
		leg_id BIGINT NOT NULL REFERENCES booking_legs(id),
		name TEXT NOT NULL,
		gender TEXT NOT NULL,
		age INT NOT NULL,
		meal_type TEXT NOT NULL,
		seat_number TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS processed_releases (
		pnr TEXT NOT NULL,
		flight_id BIGINT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (pnr, flight_id)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id BIGSERIAL PRIMARY KEY,
		topic TEXT NOT NULL,
		key TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload BYTEA NOT NULL,
		status TEXT NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		last_error TEXT,
		locked_at TIMESTAMPTZ,
		sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_status_idx ON outbox(status) WHERE status IN ('pending', 'in_progress')`,
}

// Migrate applies the schema idempotently at startup.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
