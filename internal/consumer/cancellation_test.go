package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/flightapp/platform/internal/domain"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSeatReleaser struct {
	mock.Mock
}

func (m *MockSeatReleaser) ReleaseForBooking(ctx context.Context, pnr string, flightID int64, count int) error {
	args := m.Called(ctx, pnr, flightID, count)
	return args.Error(0)
}

type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) Seen(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) MarkSeen(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// fakeSource replays a fixed message list through the handler, mimicking the
// fetch-handle-commit loop: a handler error stops delivery.
type fakeSource struct {
	msgs []kafkago.Message
}

func (f *fakeSource) Consume(ctx context.Context, handler func(context.Context, kafkago.Message) error) error {
	for _, msg := range f.msgs {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func cancellationMessage(t *testing.T, pnr string, flightID int64, seats int) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(domain.BookingCancelledEvent{PNR: pnr, FlightID: flightID, SeatsToRelease: seats})
	assert.NoError(t, err)
	return kafkago.Message{Topic: domain.TopicBookingCancellation, Value: payload}
}

func TestCancellationConsumer_ReleasesSeats(t *testing.T) {
	releaser := &MockSeatReleaser{}
	dedup := &MockDeduper{}
	source := &fakeSource{msgs: []kafkago.Message{cancellationMessage(t, "FAABC123", 1, 2)}}
	consumer := NewCancellationConsumer(zerolog.Nop(), source, releaser, dedup)

	ctx := context.Background()
	dedup.On("Seen", ctx, "release:FAABC123:1").Return(false, nil).Once()
	releaser.On("ReleaseForBooking", ctx, "FAABC123", int64(1), 2).Return(nil).Once()
	dedup.On("MarkSeen", ctx, "release:FAABC123:1").Return(nil).Once()

	err := consumer.Run(ctx)

	assert.NoError(t, err)
	releaser.AssertExpectations(t)
	dedup.AssertExpectations(t)
}

func TestCancellationConsumer_DuplicateDeliverySkipped(t *testing.T) {
	releaser := &MockSeatReleaser{}
	dedup := &MockDeduper{}
	source := &fakeSource{msgs: []kafkago.Message{cancellationMessage(t, "FAABC123", 1, 2)}}
	consumer := NewCancellationConsumer(zerolog.Nop(), source, releaser, dedup)

	ctx := context.Background()
	dedup.On("Seen", ctx, "release:FAABC123:1").Return(true, nil).Once()

	err := consumer.Run(ctx)

	assert.NoError(t, err)
	releaser.AssertNotCalled(t, "ReleaseForBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancellationConsumer_DedupFailureFallsThroughToLedger(t *testing.T) {
	releaser := &MockSeatReleaser{}
	dedup := &MockDeduper{}
	source := &fakeSource{msgs: []kafkago.Message{cancellationMessage(t, "FAABC123", 1, 2)}}
	consumer := NewCancellationConsumer(zerolog.Nop(), source, releaser, dedup)

	ctx := context.Background()
	dedup.On("Seen", ctx, "release:FAABC123:1").Return(false, assert.AnError).Once()
	releaser.On("ReleaseForBooking", ctx, "FAABC123", int64(1), 2).Return(nil).Once()
	dedup.On("MarkSeen", ctx, "release:FAABC123:1").Return(nil).Once()

	err := consumer.Run(ctx)

	assert.NoError(t, err)
	releaser.AssertExpectations(t)
}

func TestCancellationConsumer_MalformedPayloadDropped(t *testing.T) {
	releaser := &MockSeatReleaser{}
	source := &fakeSource{msgs: []kafkago.Message{
		{Topic: domain.TopicBookingCancellation, Value: []byte("not json")},
		cancellationMessage(t, "FAABC123", 1, 2),
	}}
	consumer := NewCancellationConsumer(zerolog.Nop(), source, releaser, nil)

	ctx := context.Background()
	releaser.On("ReleaseForBooking", ctx, "FAABC123", int64(1), 2).Return(nil).Once()

	err := consumer.Run(ctx)

	assert.NoError(t, err)
	releaser.AssertExpectations(t)
}

// mapDeduper gives the fast path real check-then-mark semantics so redelivery
// sequences behave as they would against redis.
type mapDeduper struct {
	seen map[string]bool
}

func (d *mapDeduper) Seen(_ context.Context, key string) (bool, error) {
	return d.seen[key], nil
}

func (d *mapDeduper) MarkSeen(_ context.Context, key string) error {
	d.seen[key] = true
	return nil
}

type flakyReleaser struct {
	failures int
	applied  int
}

func (r *flakyReleaser) ReleaseForBooking(context.Context, string, int64, int) error {
	if r.failures > 0 {
		r.failures--
		return assert.AnError
	}
	r.applied++
	return nil
}

func TestCancellationConsumer_FailedDeliveryIsRetriedNotSkipped(t *testing.T) {
	releaser := &flakyReleaser{failures: 1}
	dedup := &mapDeduper{seen: make(map[string]bool)}
	msg := cancellationMessage(t, "FAABC123", 1, 2)
	consumer := NewCancellationConsumer(zerolog.Nop(), &fakeSource{msgs: []kafkago.Message{msg}}, releaser, dedup)

	ctx := context.Background()

	// First delivery fails mid-handling; the message stays uncommitted and the
	// dedup key must not be set.
	err := consumer.Run(ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, releaser.applied)
	assert.False(t, dedup.seen["release:FAABC123:1"])

	// Redelivery applies the release instead of skipping it as a duplicate.
	consumer = NewCancellationConsumer(zerolog.Nop(), &fakeSource{msgs: []kafkago.Message{msg}}, releaser, dedup)
	err = consumer.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, releaser.applied)
	assert.True(t, dedup.seen["release:FAABC123:1"])

	// A third delivery is a true duplicate and short-circuits.
	consumer = NewCancellationConsumer(zerolog.Nop(), &fakeSource{msgs: []kafkago.Message{msg}}, releaser, dedup)
	err = consumer.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, releaser.applied)
}

func TestCancellationConsumer_ReleaseFailureStopsCommit(t *testing.T) {
	releaser := &MockSeatReleaser{}
	source := &fakeSource{msgs: []kafkago.Message{cancellationMessage(t, "FAABC123", 1, 2)}}
	consumer := NewCancellationConsumer(zerolog.Nop(), source, releaser, nil)

	ctx := context.Background()
	releaser.On("ReleaseForBooking", ctx, "FAABC123", int64(1), 2).Return(assert.AnError).Once()

	err := consumer.Run(ctx)

	assert.Error(t, err)
}
