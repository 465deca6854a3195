package domain

// Topics carrying booking events between the orchestrator and its consumers.
// Delivery is at-least-once; cancellation messages are keyed by flight id so
// releases for one flight land on one partition, in order.
const (
	TopicBookingPlaced       = "booking-placed"
	TopicBookingCancellation = "booking-cancellation"
)

type BookingPlacedEvent struct {
	PNR   string `json:"pnr"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookingCancelledEvent is emitted once per cancelled leg, not per itinerary.
// PNR+FlightID is the idempotency key consumers dedup on.
type BookingCancelledEvent struct {
	PNR            string `json:"pnr"`
	FlightID       int64  `json:"flight_id"`
	SeatsToRelease int    `json:"seats_to_release"`
}
