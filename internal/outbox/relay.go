package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Store interface {
	LockBatch(ctx context.Context, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay polls the outbox and publishes pending events. Rows are locked with a
// lease so a crashed relay's batch becomes eligible again after the lease
// expires; delivery downstream is therefore at-least-once.
type Relay struct {
	log       zerolog.Logger
	store     Store
	producer  Producer
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

func NewRelay(log zerolog.Logger, store Store, producer Producer, batchSize int, interval time.Duration) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Relay{
		log:       log,
		store:     store,
		producer:  producer,
		batchSize: batchSize,
		interval:  interval,
		lease:     30 * time.Second,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay stopping")
			return nil
		case <-t.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	events, err := r.store.LockBatch(ctx, r.batchSize, r.lease)
	if err != nil {
		r.log.Error().Err(err).Msg("outbox lock batch failed")
		return
	}
	if len(events) == 0 {
		return
	}

	sent := make([]int64, 0, len(events))
	for _, e := range events {
		msg := kafka.Message{
			Topic: e.Topic,
			Key:   []byte(e.Key),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
			},
		}
		if err := r.producer.WriteMessages(ctx, msg); err != nil {
			r.log.Error().Err(err).Int64("event_id", e.ID).Str("topic", e.Topic).Msg("outbox dispatch failed")
			if markErr := r.store.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
				r.log.Error().Err(markErr).Int64("event_id", e.ID).Msg("outbox mark failed error")
			}
			continue
		}
		sent = append(sent, e.ID)
	}
	if len(sent) > 0 {
		if err := r.store.MarkSent(ctx, sent); err != nil {
			r.log.Error().Err(err).Msg("outbox mark sent failed")
		}
	}
}
