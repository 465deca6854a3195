package flights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flightapp/platform/internal/domain"
	"github.com/flightapp/platform/internal/repository"
	"github.com/rs/zerolog"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetSummary(ctx context.Context, id int64) (*domain.FlightSummary, error)
	AdjustSeats(ctx context.Context, flightID int64, delta int) error
	ReleaseForBooking(ctx context.Context, pnr string, flightID int64, count int) error
	AddInventory(ctx context.Context, airlineCode string, items []InventoryItem) ([]int64, error)
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type InventoryItem struct {
	FromAirport   string    `json:"from_airport"`
	ToAirport     string    `json:"to_airport"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Price         int64     `json:"price"`
	TotalSeats    int       `json:"total_seats"`
}

// FlightService owns the capacity counters. Every mutation of available_seats
// in the system goes through AdjustSeats or ReleaseForBooking here.
type FlightService struct {
	log   zerolog.Logger
	repo  repository.FlightRepository
	cache Cache
}

func NewFlightService(log zerolog.Logger, repo repository.FlightRepository, cache Cache) *FlightService {
	return &FlightService{log: log, repo: repo, cache: cache}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) GetSummary(ctx context.Context, id int64) (*domain.FlightSummary, error) {
	return s.repo.GetSummary(ctx, id)
}

// AdjustSeats is the synchronous adjustment operation behind the internal
// RPC: negative delta reserves, positive delta releases (clamped at total).
// Only reservations can be rejected for capacity.
func (s *FlightService) AdjustSeats(ctx context.Context, flightID int64, delta int) error {
	if delta == 0 {
		return fmt.Errorf("%w: seat count must be non-zero", domain.ErrValidation)
	}

	var err error
	if delta < 0 {
		err = s.repo.Reserve(ctx, flightID, -delta)
	} else {
		err = s.repo.Release(ctx, flightID, delta)
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.log.Info().Int64("flight_id", flightID).Int("delta", delta).Msg("seats adjusted")
	return nil
}

// ReleaseForBooking applies an event-driven seat release exactly once per
// (pnr, flight). An unknown flight is fatal and dropped: seats cannot be
// released into a flight that no longer exists, and retrying will not change
// that.
func (s *FlightService) ReleaseForBooking(ctx context.Context, pnr string, flightID int64, count int) error {
	applied, err := s.repo.ReleaseOnce(ctx, pnr, flightID, count)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Error().Str("pnr", pnr).Int64("flight_id", flightID).Int("seats", count).
				Msg("release for unknown flight dropped")
			return nil
		}
		return err
	}
	if !applied {
		s.log.Info().Str("pnr", pnr).Int64("flight_id", flightID).Msg("duplicate release skipped")
		return nil
	}

	s.invalidate(ctx)
	s.log.Info().Str("pnr", pnr).Int64("flight_id", flightID).Int("seats", count).Msg("seats released")
	return nil
}

func (s *FlightService) AddInventory(ctx context.Context, airlineCode string, items []InventoryItem) ([]int64, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no flights in request", domain.ErrValidation)
	}

	airline, err := s.repo.AirlineByCode(ctx, airlineCode)
	if err != nil {
		return nil, err
	}

	flights := make([]domain.Flight, 0, len(items))
	for _, item := range items {
		if !item.ArrivalTime.After(item.DepartureTime) {
			return nil, fmt.Errorf("%w: arrival must be after departure", domain.ErrValidation)
		}
		if item.TotalSeats <= 0 {
			return nil, fmt.Errorf("%w: total seats must be positive", domain.ErrValidation)
		}
		flights = append(flights, domain.Flight{
			AirlineID:      airline.ID,
			FromAirport:    item.FromAirport,
			ToAirport:      item.ToAirport,
			DepartureTime:  item.DepartureTime,
			ArrivalTime:    item.ArrivalTime,
			Price:          item.Price,
			TotalSeats:     item.TotalSeats,
			AvailableSeats: item.TotalSeats,
			Status:         domain.FlightStatusScheduled,
		})
	}

	ids, err := s.repo.CreateBatch(ctx, flights)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info().Str("airline", airlineCode).Int("flights", len(ids)).Msg("inventory added")
	return ids, nil
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateFlights(ctx)
	}
}

var _ FlightUseCase = (*FlightService)(nil)
