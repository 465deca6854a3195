package domain

import "time"

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

type Airline struct {
	ID   int64
	Code string
	Name string
}

// Flight is the inventory-side capacity record. AvailableSeats is mutated only
// through the inventory adjustment service; 0 <= available <= total holds on
// every committed state.
type Flight struct {
	ID             int64
	AirlineID      int64
	FromAirport    string
	ToAirport      string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	Price          int64
	TotalSeats     int
	AvailableSeats int
	Status         FlightStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FlightSummary is the read representation served over the internal RPC and
// embedded into itinerary leg representations.
type FlightSummary struct {
	FlightID       int64     `json:"flight_id"`
	AirlineName    string    `json:"airline_name"`
	AirlineCode    string    `json:"airline_code"`
	FromAirport    string    `json:"from_airport"`
	ToAirport      string    `json:"to_airport"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	Price          int64     `json:"price"`
	AvailableSeats int       `json:"available_seats"`
}
