package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/flightapp/platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicatePNR surfaces the unique constraint on itineraries.pnr; the
// orchestrator regenerates the locator and retries.
var ErrDuplicatePNR = errors.New("duplicate pnr")

type ItineraryRepository interface {
	Create(ctx context.Context, itinerary *domain.Itinerary) error
	FindByPNR(ctx context.Context, pnr string) (*domain.Itinerary, error)
	FindByUserEmail(ctx context.Context, email string) ([]domain.Itinerary, error)
	Cancel(ctx context.Context, pnr string) ([]domain.BookingLeg, error)
}

type PGItineraryRepository struct {
	db *pgxpool.Pool
}

func NewItineraryRepository(db *pgxpool.Pool) ItineraryRepository {
	return &PGItineraryRepository{db: db}
}

// Create persists the full aggregate and its BookingPlaced outbox row in one
// transaction, so the event cannot outlive a rolled-back booking or be lost
// after a committed one.
func (r *PGItineraryRepository) Create(ctx context.Context, itinerary *domain.Itinerary) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `INSERT INTO itineraries (pnr, user_name, user_email, total_amount, status)
		VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		itinerary.PNR, itinerary.UserName, itinerary.UserEmail, itinerary.TotalAmount, itinerary.Status).
		Scan(&itinerary.ID, &itinerary.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("pnr %s: %w", itinerary.PNR, ErrDuplicatePNR)
		}
		return err
	}

	for li := range itinerary.Legs {
		leg := &itinerary.Legs[li]
		leg.ItineraryID = itinerary.ID
		if err := tx.QueryRow(ctx, `INSERT INTO booking_legs (itinerary_id, flight_id, journey_date, segment_type, status)
			VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			leg.ItineraryID, leg.FlightID, leg.JourneyDate, leg.SegmentType, leg.Status).Scan(&leg.ID); err != nil {
			return err
		}
		for pi := range leg.Passengers {
			p := &leg.Passengers[pi]
			p.LegID = leg.ID
			if err := tx.QueryRow(ctx, `INSERT INTO passengers (leg_id, name, gender, age, meal_type, seat_number)
				VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
				p.LegID, p.Name, p.Gender, p.Age, p.MealType, p.SeatNumber).Scan(&p.ID); err != nil {
				return err
			}
		}
	}

	payload, err := json.Marshal(domain.BookingPlacedEvent{
		PNR:   itinerary.PNR,
		Name:  itinerary.UserName,
		Email: itinerary.UserEmail,
	})
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO outbox (topic, key, event_type, payload, status) VALUES ($1,$2,$3,$4,'pending')`,
		domain.TopicBookingPlaced, itinerary.PNR, "BookingPlaced", payload); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGItineraryRepository) FindByPNR(ctx context.Context, pnr string) (*domain.Itinerary, error) {
	row := r.db.QueryRow(ctx, `SELECT id, pnr, user_name, user_email, total_amount, status, created_at FROM itineraries WHERE pnr=$1`, pnr)
	var it domain.Itinerary
	if err := row.Scan(&it.ID, &it.PNR, &it.UserName, &it.UserEmail, &it.TotalAmount, &it.Status, &it.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("itinerary %s: %w", pnr, domain.ErrNotFound)
		}
		return nil, err
	}
	if err := r.loadLegs(ctx, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGItineraryRepository) FindByUserEmail(ctx context.Context, email string) ([]domain.Itinerary, error) {
	rows, err := r.db.Query(ctx, `SELECT id, pnr, user_name, user_email, total_amount, status, created_at FROM itineraries WHERE user_email=$1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itineraries := make([]domain.Itinerary, 0)
	for rows.Next() {
		var it domain.Itinerary
		if err := rows.Scan(&it.ID, &it.PNR, &it.UserName, &it.UserEmail, &it.TotalAmount, &it.Status, &it.CreatedAt); err != nil {
			return nil, err
		}
		itineraries = append(itineraries, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range itineraries {
		if err := r.loadLegs(ctx, &itineraries[i]); err != nil {
			return nil, err
		}
	}
	return itineraries, nil
}

func (r *PGItineraryRepository) loadLegs(ctx context.Context, it *domain.Itinerary) error {
	rows, err := r.db.Query(ctx, `SELECT id, itinerary_id, flight_id, journey_date, segment_type, status FROM booking_legs WHERE itinerary_id=$1 ORDER BY id`, it.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	it.Legs = it.Legs[:0]
	for rows.Next() {
		var leg domain.BookingLeg
		if err := rows.Scan(&leg.ID, &leg.ItineraryID, &leg.FlightID, &leg.JourneyDate, &leg.SegmentType, &leg.Status); err != nil {
			return err
		}
		it.Legs = append(it.Legs, leg)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range it.Legs {
		leg := &it.Legs[i]
		prows, err := r.db.Query(ctx, `SELECT id, leg_id, name, gender, age, meal_type, seat_number FROM passengers WHERE leg_id=$1 ORDER BY id`, leg.ID)
		if err != nil {
			return err
		}
		for prows.Next() {
			var p domain.Passenger
			if err := prows.Scan(&p.ID, &p.LegID, &p.Name, &p.Gender, &p.Age, &p.MealType, &p.SeatNumber); err != nil {
				prows.Close()
				return err
			}
			leg.Passengers = append(leg.Passengers, p)
		}
		perr := prows.Err()
		prows.Close()
		if perr != nil {
			return perr
		}
	}
	return nil
}

// Cancel marks the itinerary and every currently-BOOKED leg CANCELLED and
// writes one BookingCancelled outbox row per transitioned leg, all in one
// transaction. A second cancel finds no BOOKED legs, transitions nothing and
// emits nothing, which is what makes the operation idempotent.
func (r *PGItineraryRepository) Cancel(ctx context.Context, pnr string) ([]domain.BookingLeg, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var itineraryID int64
	err = tx.QueryRow(ctx, `UPDATE itineraries SET status=$2 WHERE pnr=$1 RETURNING id`, pnr, domain.BookingStatusCancelled).Scan(&itineraryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("itinerary %s: %w", pnr, domain.ErrNotFound)
		}
		return nil, err
	}

	rows, err := tx.Query(ctx, `UPDATE booking_legs SET status=$2 WHERE itinerary_id=$1 AND status=$3
		RETURNING id, itinerary_id, flight_id, journey_date, segment_type, status`,
		itineraryID, domain.BookingStatusCancelled, domain.BookingStatusBooked)
	if err != nil {
		return nil, err
	}
	cancelled := make([]domain.BookingLeg, 0)
	for rows.Next() {
		var leg domain.BookingLeg
		if err := rows.Scan(&leg.ID, &leg.ItineraryID, &leg.FlightID, &leg.JourneyDate, &leg.SegmentType, &leg.Status); err != nil {
			rows.Close()
			return nil, err
		}
		cancelled = append(cancelled, leg)
	}
	rerr := rows.Err()
	rows.Close()
	if rerr != nil {
		return nil, rerr
	}

	for i := range cancelled {
		leg := &cancelled[i]
		var seats int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM passengers WHERE leg_id=$1`, leg.ID).Scan(&seats); err != nil {
			return nil, err
		}
		payload, err := json.Marshal(domain.BookingCancelledEvent{
			PNR:            pnr,
			FlightID:       leg.FlightID,
			SeatsToRelease: seats,
		})
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO outbox (topic, key, event_type, payload, status) VALUES ($1,$2,$3,$4,'pending')`,
			domain.TopicBookingCancellation, strconv.FormatInt(leg.FlightID, 10), "BookingCancelled", payload); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cancelled, nil
}

var _ ItineraryRepository = (*PGItineraryRepository)(nil)
