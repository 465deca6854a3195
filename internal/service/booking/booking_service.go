package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flightapp/platform/internal/domain"
	"github.com/flightapp/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingUseCase interface {
	BookItinerary(ctx context.Context, outwardFlightID int64, req BookingRequest) (*ItineraryView, error)
	GetByPNR(ctx context.Context, pnr string) (*ItineraryView, error)
	HistoryByEmail(ctx context.Context, email string) ([]ItineraryView, error)
	CancelByPNR(ctx context.Context, pnr string) (*CancelResult, error)
}

// FlightClient is the orchestrator's only view of the inventory boundary.
type FlightClient interface {
	GetFlight(ctx context.Context, flightID int64) (*domain.FlightSummary, error)
	AdjustSeats(ctx context.Context, flightID int64, delta int) error
}

type BookingRequest struct {
	Email          string             `json:"email"`
	Name           string             `json:"name"`
	TripType       domain.TripType    `json:"trip_type"`
	ReturnFlightID *int64             `json:"return_flight_id,omitempty"`
	NumberOfSeats  int                `json:"number_of_seats"`
	Passengers     []PassengerRequest `json:"passengers"`
}

type PassengerRequest struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	MealType   string `json:"meal_type"`
	SeatNumber string `json:"seat_number"`
}

type BookingService struct {
	log         zerolog.Logger
	itineraries repository.ItineraryRepository
	flights     FlightClient
	window      time.Duration
	pnrRetries  int
}

func NewBookingService(log zerolog.Logger, itineraries repository.ItineraryRepository, flights FlightClient, cancellationWindow time.Duration, pnrRetries int) *BookingService {
	if pnrRetries <= 0 {
		pnrRetries = 3
	}
	return &BookingService{
		log:         log,
		itineraries: itineraries,
		flights:     flights,
		window:      cancellationWindow,
		pnrRetries:  pnrRetries,
	}
}

// BookItinerary runs the reservation protocol: validate, fetch, pre-check,
// reserve outward then return (strictly in that order), persist, respond.
// The BookingPlaced event rides the itinerary's insert transaction as an
// outbox row, so a committed booking can never lose its event and a failed
// one can never leak it.
func (s *BookingService) BookItinerary(ctx context.Context, outwardFlightID int64, req BookingRequest) (*ItineraryView, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	isRoundTrip := req.TripType == domain.TripTypeRoundTrip

	outward, err := s.flights.GetFlight(ctx, outwardFlightID)
	if err != nil {
		return nil, err
	}

	var ret *domain.FlightSummary
	if isRoundTrip {
		ret, err = s.flights.GetFlight(ctx, *req.ReturnFlightID)
		if err != nil {
			return nil, err
		}
	}

	seats := req.NumberOfSeats
	if outward.AvailableSeats < seats {
		return nil, fmt.Errorf("outward flight %d: %w", outward.FlightID, domain.ErrInsufficientCapacity)
	}
	if isRoundTrip && ret.AvailableSeats < seats {
		return nil, fmt.Errorf("return flight %d: %w", ret.FlightID, domain.ErrInsufficientCapacity)
	}

	if err := s.flights.AdjustSeats(ctx, outward.FlightID, -seats); err != nil {
		return nil, err
	}
	if isRoundTrip {
		if err := s.flights.AdjustSeats(ctx, ret.FlightID, -seats); err != nil {
			s.compensate(ctx, outward.FlightID, seats)
			return nil, err
		}
	}

	itinerary := s.buildItinerary(req, outward, ret)
	if err := s.persistWithFreshPNR(ctx, itinerary); err != nil {
		s.compensate(ctx, outward.FlightID, seats)
		if isRoundTrip {
			s.compensate(ctx, ret.FlightID, seats)
		}
		return nil, err
	}

	s.log.Info().Str("pnr", itinerary.PNR).Str("email", itinerary.UserEmail).
		Int64("total_amount", itinerary.TotalAmount).Msg("itinerary booked")

	summaries := map[int64]*domain.FlightSummary{outward.FlightID: outward}
	if ret != nil {
		summaries[ret.FlightID] = ret
	}
	return s.toView(ctx, itinerary, summaries), nil
}

// compensate releases a reservation after a later step failed. It runs on a
// context detached from the caller's deadline: an expired request must not
// leave seats stranded. A failed compensation is a manual-intervention case,
// not something to retry blindly, the sync release path has no idempotency
// key to make a retry safe.
func (s *BookingService) compensate(ctx context.Context, flightID int64, seats int) {
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.flights.AdjustSeats(compCtx, flightID, seats); err != nil {
		s.log.Error().Err(err).Int64("flight_id", flightID).Int("seats", seats).
			Msg("compensating release failed, reservation stranded, needs reconciliation")
		return
	}
	s.log.Info().Int64("flight_id", flightID).Int("seats", seats).Msg("reservation compensated")
}

func (s *BookingService) persistWithFreshPNR(ctx context.Context, itinerary *domain.Itinerary) error {
	var err error
	for attempt := 0; attempt < s.pnrRetries; attempt++ {
		itinerary.PNR = generatePNR()
		err = s.itineraries.Create(ctx, itinerary)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicatePNR) {
			return err
		}
		s.log.Warn().Str("pnr", itinerary.PNR).Msg("pnr collision, regenerating")
	}
	return err
}

func (s *BookingService) buildItinerary(req BookingRequest, outward, ret *domain.FlightSummary) *domain.Itinerary {
	seats := int64(req.NumberOfSeats)
	total := outward.Price * seats
	if ret != nil {
		total += ret.Price * seats
	}

	outSegment := domain.SegmentOneWay
	if ret != nil {
		outSegment = domain.SegmentOutbound
	}

	legs := []domain.BookingLeg{newLeg(outward, outSegment, req.Passengers)}
	if ret != nil {
		legs = append(legs, newLeg(ret, domain.SegmentReturn, req.Passengers))
	}

	return &domain.Itinerary{
		UserName:    req.Name,
		UserEmail:   req.Email,
		TotalAmount: total,
		Status:      domain.BookingStatusBooked,
		Legs:        legs,
	}
}

func newLeg(flight *domain.FlightSummary, segment domain.SegmentType, passengers []PassengerRequest) domain.BookingLeg {
	leg := domain.BookingLeg{
		FlightID:    flight.FlightID,
		JourneyDate: flight.DepartureTime.Truncate(24 * time.Hour),
		SegmentType: segment,
		Status:      domain.BookingStatusBooked,
	}
	for _, p := range passengers {
		leg.Passengers = append(leg.Passengers, domain.Passenger{
			Name:       p.Name,
			Gender:     p.Gender,
			Age:        p.Age,
			MealType:   p.MealType,
			SeatNumber: p.SeatNumber,
		})
	}
	return leg
}

func (s *BookingService) GetByPNR(ctx context.Context, pnr string) (*ItineraryView, error) {
	itinerary, err := s.itineraries.FindByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}
	return s.toView(ctx, itinerary, nil), nil
}

func (s *BookingService) HistoryByEmail(ctx context.Context, email string) ([]ItineraryView, error) {
	itineraries, err := s.itineraries.FindByUserEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	views := make([]ItineraryView, 0, len(itineraries))
	for i := range itineraries {
		views = append(views, *s.toView(ctx, &itineraries[i], nil))
	}
	return views, nil
}

// CancelByPNR is local-first, inventory-eventual: the policy window is
// checked, the local aggregate is cancelled and committed, and the seat
// releases travel as one BookingCancelled outbox row per transitioned leg.
// The returned acknowledgment reflects the local commit only; callers must
// not assume seats are back by the time it returns.
func (s *BookingService) CancelByPNR(ctx context.Context, pnr string) (*CancelResult, error) {
	itinerary, err := s.itineraries.FindByPNR(ctx, pnr)
	if err != nil {
		return nil, err
	}

	if itinerary.Status == domain.BookingStatusCancelled {
		return &CancelResult{PNR: pnr, Status: itinerary.Status, Message: "booking already cancelled"}, nil
	}

	now := time.Now()
	for _, leg := range itinerary.Legs {
		if leg.Status != domain.BookingStatusBooked {
			continue
		}
		summary, err := s.flights.GetFlight(ctx, leg.FlightID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if now.Add(s.window).After(summary.DepartureTime) {
			return nil, fmt.Errorf("flight %d departs within %s: %w", leg.FlightID, s.window, domain.ErrCancellationNotAllowed)
		}
	}

	cancelled, err := s.itineraries.Cancel(ctx, pnr)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("pnr", pnr).Int("legs", len(cancelled)).Msg("itinerary cancelled, release events queued")
	return &CancelResult{PNR: pnr, Status: domain.BookingStatusCancelled, Message: "booking cancelled"}, nil
}

func validateRequest(req BookingRequest) error {
	if len(req.Passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", domain.ErrValidation)
	}
	if req.NumberOfSeats <= 0 {
		return fmt.Errorf("%w: no seats requested", domain.ErrValidation)
	}
	if len(req.Passengers) != req.NumberOfSeats {
		return fmt.Errorf("%w: number of seats does not match number of passengers", domain.ErrValidation)
	}
	if req.TripType != domain.TripTypeOneWay && req.TripType != domain.TripTypeRoundTrip {
		return fmt.Errorf("%w: unknown trip type %q", domain.ErrValidation, req.TripType)
	}
	if req.TripType == domain.TripTypeRoundTrip && req.ReturnFlightID == nil {
		return fmt.Errorf("%w: return flight id is required for a round trip", domain.ErrValidation)
	}

	seen := make(map[string]struct{}, len(req.Passengers))
	for _, p := range req.Passengers {
		if p.SeatNumber == "" {
			return fmt.Errorf("%w: passenger %s has no seat number", domain.ErrValidation, p.Name)
		}
		if _, dup := seen[p.SeatNumber]; dup {
			return fmt.Errorf("%w: duplicate seat number %s in request", domain.ErrValidation, p.SeatNumber)
		}
		seen[p.SeatNumber] = struct{}{}
	}
	return nil
}

// generatePNR derives a locator from a v4 UUID's random bytes. Eight hex
// characters keep collisions negligible at realistic booking volumes;
// uniqueness is still enforced by the database constraint, not assumed here.
func generatePNR() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "FA" + strings.ToUpper(raw[:8])
}

var _ BookingUseCase = (*BookingService)(nil)
