package booking

import (
	"context"
	"time"

	"github.com/flightapp/platform/internal/domain"
)

// ItineraryView is the caller-facing representation: the aggregate plus the
// flight details each leg references, resolved through the inventory read
// path.
type ItineraryView struct {
	PNR         string               `json:"pnr"`
	UserName    string               `json:"user_name"`
	Email       string               `json:"email"`
	Status      domain.BookingStatus `json:"status"`
	TotalAmount int64                `json:"total_amount"`
	CreatedAt   time.Time            `json:"created_at"`
	Legs        []LegView            `json:"legs"`
}

type LegView struct {
	BookingID     int64                `json:"booking_id"`
	FlightID      int64                `json:"flight_id"`
	FromAirport   string               `json:"from_airport,omitempty"`
	ToAirport     string               `json:"to_airport,omitempty"`
	DepartureTime time.Time            `json:"departure_time,omitzero"`
	ArrivalTime   time.Time            `json:"arrival_time,omitzero"`
	SegmentType   domain.SegmentType   `json:"segment_type"`
	Status        domain.BookingStatus `json:"status"`
	Passengers    []PassengerView      `json:"passengers"`
}

type PassengerView struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	MealType   string `json:"meal_type"`
	SeatNumber string `json:"seat_number"`
}

type CancelResult struct {
	PNR     string               `json:"pnr"`
	Status  domain.BookingStatus `json:"status"`
	Message string               `json:"message"`
}

// toView enriches legs with flight summaries. known carries summaries already
// fetched during the current operation; the rest are resolved on demand. A
// flight that cannot be resolved degrades to an id-only leg rather than
// failing the read.
func (s *BookingService) toView(ctx context.Context, itinerary *domain.Itinerary, known map[int64]*domain.FlightSummary) *ItineraryView {
	if known == nil {
		known = make(map[int64]*domain.FlightSummary)
	}

	view := &ItineraryView{
		PNR:         itinerary.PNR,
		UserName:    itinerary.UserName,
		Email:       itinerary.UserEmail,
		Status:      itinerary.Status,
		TotalAmount: itinerary.TotalAmount,
		CreatedAt:   itinerary.CreatedAt,
		Legs:        make([]LegView, 0, len(itinerary.Legs)),
	}

	for _, leg := range itinerary.Legs {
		lv := LegView{
			BookingID:   leg.ID,
			FlightID:    leg.FlightID,
			SegmentType: leg.SegmentType,
			Status:      leg.Status,
		}

		summary, ok := known[leg.FlightID]
		if !ok {
			fetched, err := s.flights.GetFlight(ctx, leg.FlightID)
			if err != nil {
				s.log.Warn().Err(err).Str("pnr", itinerary.PNR).Int64("flight_id", leg.FlightID).
					Msg("flight summary unavailable for itinerary view")
			} else {
				summary = fetched
			}
			known[leg.FlightID] = summary
		}
		if summary != nil {
			lv.FromAirport = summary.FromAirport
			lv.ToAirport = summary.ToAirport
			lv.DepartureTime = summary.DepartureTime
			lv.ArrivalTime = summary.ArrivalTime
		}

		for _, p := range leg.Passengers {
			lv.Passengers = append(lv.Passengers, PassengerView{
				Name:       p.Name,
				Gender:     p.Gender,
				Age:        p.Age,
				MealType:   p.MealType,
				SeatNumber: p.SeatNumber,
			})
		}
		view.Legs = append(view.Legs, lv)
	}
	return view
}
