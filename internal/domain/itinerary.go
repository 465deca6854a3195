package domain

import "time"

type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type TripType string

const (
	TripTypeOneWay    TripType = "ONE_WAY"
	TripTypeRoundTrip TripType = "ROUND_TRIP"
)

type SegmentType string

const (
	SegmentOneWay   SegmentType = "ONE_WAY"
	SegmentOutbound SegmentType = "OUTBOUND"
	SegmentReturn   SegmentType = "RETURN"
)

// Itinerary is the booking aggregate, keyed by PNR. It is created fully formed
// in one transaction and its status transitions BOOKED -> CANCELLED exactly once.
type Itinerary struct {
	ID          int64
	PNR         string
	UserName    string
	UserEmail   string
	TotalAmount int64
	Status      BookingStatus
	CreatedAt   time.Time
	Legs        []BookingLeg
}

// BookingLeg is one flight segment of an itinerary. Its status always mirrors
// the parent itinerary's; there is no partial-leg cancellation.
type BookingLeg struct {
	ID          int64
	ItineraryID int64
	FlightID    int64
	JourneyDate time.Time
	SegmentType SegmentType
	Status      BookingStatus
	Passengers  []Passenger
}

type Passenger struct {
	ID         int64
	LegID      int64
	Name       string
	Gender     string
	Age        int
	MealType   string
	SeatNumber string
}
