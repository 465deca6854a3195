package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/flightapp/platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetSummary(ctx context.Context, id int64) (*domain.FlightSummary, error)
	AirlineByCode(ctx context.Context, code string) (*domain.Airline, error)
	CreateBatch(ctx context.Context, flights []domain.Flight) ([]int64, error)
	Reserve(ctx context.Context, flightID int64, count int) error
	Release(ctx context.Context, flightID int64, count int) error
	ReleaseOnce(ctx context.Context, pnr string, flightID int64, count int) (bool, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, airline_id, from_airport, to_airport, departure_time, arrival_time, price, total_seats, available_seats, status, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.AirlineID, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime, &f.Price, &f.TotalSeats, &f.AvailableSeats, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flight: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	return scanFlight(row)
}

func (r *PGFlightRepository) GetSummary(ctx context.Context, id int64) (*domain.FlightSummary, error) {
	row := r.db.QueryRow(ctx, `SELECT f.id, a.name, a.code, f.from_airport, f.to_airport, f.departure_time, f.arrival_time, f.price, f.available_seats
		FROM flights f JOIN airlines a ON a.id = f.airline_id WHERE f.id=$1`, id)
	var s domain.FlightSummary
	if err := row.Scan(&s.FlightID, &s.AirlineName, &s.AirlineCode, &s.FromAirport, &s.ToAirport, &s.DepartureTime, &s.ArrivalTime, &s.Price, &s.AvailableSeats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGFlightRepository) AirlineByCode(ctx context.Context, code string) (*domain.Airline, error) {
	row := r.db.QueryRow(ctx, `SELECT id, code, name FROM airlines WHERE code=$1`, code)
	var a domain.Airline
	if err := row.Scan(&a.ID, &a.Code, &a.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("airline %s: %w", code, domain.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

func (r *PGFlightRepository) CreateBatch(ctx context.Context, flights []domain.Flight) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, len(flights))
	for _, f := range flights {
		var id int64
		if err := tx.QueryRow(ctx, `INSERT INTO flights (airline_id, from_airport, to_airport, departure_time, arrival_time, price, total_seats, available_seats, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
			f.AirlineID, f.FromAirport, f.ToAirport, f.DepartureTime, f.ArrivalTime, f.Price, f.TotalSeats, f.AvailableSeats, f.Status).Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// Reserve debits count seats in a single guarded UPDATE. The WHERE predicate
// is the capacity-safety boundary: concurrent reservations for the same flight
// serialize on the row and the guard rejects any debit that would go negative.
func (r *PGFlightRepository) Reserve(ctx context.Context, flightID int64, count int) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET available_seats = available_seats - $2, updated_at = now() WHERE id=$1 AND available_seats >= $2`, flightID, count)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE id=$1)`, flightID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
		}
		return fmt.Errorf("flight %d: %w", flightID, domain.ErrInsufficientCapacity)
	}
	return nil
}

// Release credits count seats, clamped at total_seats so stale or duplicate
// releases can never inflate capacity.
func (r *PGFlightRepository) Release(ctx context.Context, flightID int64, count int) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET available_seats = LEAST(available_seats + $2, total_seats), updated_at = now() WHERE id=$1`, flightID, count)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
	}
	return nil
}

// ReleaseOnce applies a release exactly once per (pnr, flight) pair. The
// ledger insert and the seat credit commit together; a replayed event hits the
// primary-key conflict and reports applied=false without touching the counter.
func (r *PGFlightRepository) ReleaseOnce(ctx context.Context, pnr string, flightID int64, count int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `INSERT INTO processed_releases (pnr, flight_id) VALUES ($1,$2) ON CONFLICT (pnr, flight_id) DO NOTHING`, pnr, flightID)
	if err != nil {
		return false, err
	}
	if res.RowsAffected() == 0 {
		return false, nil
	}

	res, err = tx.Exec(ctx, `UPDATE flights SET available_seats = LEAST(available_seats + $2, total_seats), updated_at = now() WHERE id=$1`, flightID, count)
	if err != nil {
		return false, err
	}
	if res.RowsAffected() == 0 {
		return false, fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
	}

	return true, tx.Commit(ctx)
}

var _ FlightRepository = (*PGFlightRepository)(nil)
