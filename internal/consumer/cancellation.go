package consumer

import (
	"context"
	"encoding/json"

	"github.com/flightapp/platform/internal/cache"
	"github.com/flightapp/platform/internal/domain"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type SeatReleaser interface {
	ReleaseForBooking(ctx context.Context, pnr string, flightID int64, count int) error
}

type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string) error
}

type MessageSource interface {
	Consume(ctx context.Context, handler func(context.Context, kafkago.Message) error) error
}

// CancellationConsumer applies seat releases from the booking-cancellation
// topic. Delivery is at-least-once, so every message is deduped twice: a
// redis fast path here and the durable ledger inside the release itself.
type CancellationConsumer struct {
	log     zerolog.Logger
	source  MessageSource
	flights SeatReleaser
	dedup   Deduper
}

func NewCancellationConsumer(log zerolog.Logger, source MessageSource, flights SeatReleaser, dedup Deduper) *CancellationConsumer {
	return &CancellationConsumer{log: log, source: source, flights: flights, dedup: dedup}
}

func (c *CancellationConsumer) Run(ctx context.Context) error {
	return c.source.Consume(ctx, c.handle)
}

func (c *CancellationConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	var event domain.BookingCancelledEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Malformed payloads are committed and skipped: redelivery cannot fix them.
		c.log.Error().Err(err).Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("undecodable cancellation event dropped")
		return nil
	}

	key := cache.ReleaseKey(event.PNR, event.FlightID)
	if c.dedup != nil {
		seen, err := c.dedup.Seen(ctx, key)
		if err != nil {
			c.log.Warn().Err(err).Str("pnr", event.PNR).Msg("dedup check failed, falling through to ledger")
		} else if seen {
			c.log.Info().Str("pnr", event.PNR).Int64("flight_id", event.FlightID).Msg("duplicate cancellation delivery skipped")
			return nil
		}
	}

	if err := c.flights.ReleaseForBooking(ctx, event.PNR, event.FlightID, event.SeatsToRelease); err != nil {
		c.log.Error().Err(err).Str("pnr", event.PNR).Int64("flight_id", event.FlightID).Msg("seat release failed")
		return err
	}

	// Marked only after the release applied: a failed delivery must stay
	// invisible to the fast path so its redelivery is handled, not skipped.
	if c.dedup != nil {
		if err := c.dedup.MarkSeen(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("pnr", event.PNR).Msg("dedup mark failed, ledger will absorb replays")
		}
	}
	return nil
}
