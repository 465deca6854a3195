package consumer

import (
	"context"
	"encoding/json"

	"github.com/flightapp/platform/internal/domain"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// Notifier reads both booking topics in its own consumer group and renders
// the notification a delivery provider would send. Actual delivery is a
// separate collaborator; here the "email" goes to the log.
type Notifier struct {
	log    zerolog.Logger
	source MessageSource
}

func NewNotifier(log zerolog.Logger, source MessageSource) *Notifier {
	return &Notifier{log: log, source: source}
}

func (n *Notifier) Run(ctx context.Context) error {
	return n.source.Consume(ctx, n.handle)
}

func (n *Notifier) handle(_ context.Context, msg kafkago.Message) error {
	switch msg.Topic {
	case domain.TopicBookingPlaced:
		var event domain.BookingPlacedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			n.log.Error().Err(err).Int64("offset", msg.Offset).Msg("undecodable booking-placed event dropped")
			return nil
		}
		n.log.Info().Str("to", event.Email).Str("name", event.Name).Str("pnr", event.PNR).
			Msg("sending booking confirmation email")
	case domain.TopicBookingCancellation:
		var event domain.BookingCancelledEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			n.log.Error().Err(err).Int64("offset", msg.Offset).Msg("undecodable cancellation event dropped")
			return nil
		}
		n.log.Info().Str("pnr", event.PNR).Int64("flight_id", event.FlightID).
			Msg("sending cancellation email")
	default:
		n.log.Warn().Str("topic", msg.Topic).Msg("unexpected topic in notifier group")
	}
	return nil
}
