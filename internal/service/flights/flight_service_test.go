package flights

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flightapp/platform/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetSummary(ctx context.Context, id int64) (*domain.FlightSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightSummary), args.Error(1)
}

func (m *MockFlightRepository) AirlineByCode(ctx context.Context, code string) (*domain.Airline, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Airline), args.Error(1)
}

func (m *MockFlightRepository) CreateBatch(ctx context.Context, flights []domain.Flight) ([]int64, error) {
	args := m.Called(ctx, flights)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockFlightRepository) Reserve(ctx context.Context, flightID int64, count int) error {
	args := m.Called(ctx, flightID, count)
	return args.Error(0)
}

func (m *MockFlightRepository) Release(ctx context.Context, flightID int64, count int) error {
	args := m.Called(ctx, flightID, count)
	return args.Error(0)
}

func (m *MockFlightRepository) ReleaseOnce(ctx context.Context, pnr string, flightID int64, count int) (bool, error) {
	args := m.Called(ctx, pnr, flightID, count)
	return args.Bool(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func (m *MockCache) InvalidateFlights(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestAdjustSeats_NegativeDeltaReserves(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	mockRepo.On("Reserve", ctx, int64(1), 3).Return(nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

	err := service.AdjustSeats(ctx, 1, -3)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestAdjustSeats_PositiveDeltaReleases(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	mockRepo.On("Release", ctx, int64(1), 2).Return(nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

	err := service.AdjustSeats(ctx, 1, 2)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestAdjustSeats_ZeroDeltaRejected(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(zerolog.Nop(), mockRepo, nil)

	err := service.AdjustSeats(context.Background(), 1, 0)

	assert.ErrorIs(t, err, domain.ErrValidation)
	mockRepo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjustSeats_InsufficientCapacityPropagates(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	mockRepo.On("Reserve", ctx, int64(1), 5).Return(domain.ErrInsufficientCapacity).Once()

	err := service.AdjustSeats(ctx, 1, -5)

	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
	mockCache.AssertNotCalled(t, "InvalidateFlights", mock.Anything)
}

func TestReleaseForBooking_Applied(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	mockRepo.On("ReleaseOnce", ctx, "FAABC123", int64(1), 2).Return(true, nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

	err := service.ReleaseForBooking(ctx, "FAABC123", 1, 2)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestReleaseForBooking_DuplicateSkipped(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	mockRepo.On("ReleaseOnce", ctx, "FAABC123", int64(1), 2).Return(false, nil).Once()

	err := service.ReleaseForBooking(ctx, "FAABC123", 1, 2)

	assert.NoError(t, err)
	mockCache.AssertNotCalled(t, "InvalidateFlights", mock.Anything)
}

func TestReleaseForBooking_UnknownFlightDropped(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(zerolog.Nop(), mockRepo, nil)

	ctx := context.Background()
	mockRepo.On("ReleaseOnce", ctx, "FAABC123", int64(99), 2).Return(false, domain.ErrNotFound).Once()

	err := service.ReleaseForBooking(ctx, "FAABC123", 99, 2)

	assert.NoError(t, err)
}

func TestReleaseForBooking_TransientErrorReturned(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(zerolog.Nop(), mockRepo, nil)

	ctx := context.Background()
	mockRepo.On("ReleaseOnce", ctx, "FAABC123", int64(1), 2).Return(false, assert.AnError).Once()

	err := service.ReleaseForBooking(ctx, "FAABC123", 1, 2)

	assert.Error(t, err)
}

func TestList_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	cached := []domain.Flight{{ID: 1, FromAirport: "DEL", ToAirport: "BOM"}}
	mockCache.On("GetFlights", ctx).Return(cached, nil).Once()

	flights, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, cached, flights)
	mockRepo.AssertNotCalled(t, "List", mock.Anything)
}

func TestList_CacheMissFillsCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	stored := []domain.Flight{{ID: 1}, {ID: 2}}
	mockCache.On("GetFlights", ctx).Return(nil, nil).Once()
	mockRepo.On("List", ctx).Return(stored, nil).Once()
	mockCache.On("SetFlights", ctx, stored).Return(nil).Once()

	flights, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Len(t, flights, 2)
	mockCache.AssertExpectations(t)
}

func TestAddInventory_Success(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(zerolog.Nop(), mockRepo, mockCache)

	ctx := context.Background()
	departure := time.Now().Add(72 * time.Hour)
	mockRepo.On("AirlineByCode", ctx, "AT").Return(&domain.Airline{ID: 5, Code: "AT", Name: "Aero Test"}, nil).Once()
	mockRepo.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.Flight")).Run(func(args mock.Arguments) {
		flights := args.Get(1).([]domain.Flight)
		assert.Equal(t, int64(5), flights[0].AirlineID)
		assert.Equal(t, flights[0].TotalSeats, flights[0].AvailableSeats)
		assert.Equal(t, domain.FlightStatusScheduled, flights[0].Status)
	}).Return([]int64{11}, nil).Once()
	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()

	ids, err := service.AddInventory(ctx, "AT", []InventoryItem{{
		FromAirport:   "DEL",
		ToAirport:     "BOM",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(2 * time.Hour),
		Price:         5000,
		TotalSeats:    180,
	}})

	assert.NoError(t, err)
	assert.Equal(t, []int64{11}, ids)
	mockRepo.AssertExpectations(t)
}

func TestAddInventory_Validation(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(zerolog.Nop(), mockRepo, nil)
	ctx := context.Background()

	_, err := service.AddInventory(ctx, "AT", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	departure := time.Now().Add(72 * time.Hour)
	mockRepo.On("AirlineByCode", ctx, "AT").Return(&domain.Airline{ID: 5}, nil)

	_, err = service.AddInventory(ctx, "AT", []InventoryItem{{
		DepartureTime: departure,
		ArrivalTime:   departure.Add(-time.Hour),
		TotalSeats:    10,
	}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.AddInventory(ctx, "AT", []InventoryItem{{
		DepartureTime: departure,
		ArrivalTime:   departure.Add(time.Hour),
		TotalSeats:    0,
	}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	mockRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestAddInventory_UnknownAirline(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(zerolog.Nop(), mockRepo, nil)

	ctx := context.Background()
	mockRepo.On("AirlineByCode", ctx, "ZZ").Return(nil, domain.ErrNotFound).Once()

	_, err := service.AddInventory(ctx, "ZZ", []InventoryItem{{TotalSeats: 1}})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// countingRepo reproduces the guarded-update semantics of the Postgres
// repository in memory so the reservation protocol can be hammered from many
// goroutines.
type countingRepo struct {
	MockFlightRepository

	mu        sync.Mutex
	available int
	total     int
	applied   map[string]struct{}
}

func newCountingRepo(available, total int) *countingRepo {
	return &countingRepo{available: available, total: total, applied: make(map[string]struct{})}
}

func (r *countingRepo) Reserve(_ context.Context, _ int64, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.available < count {
		return domain.ErrInsufficientCapacity
	}
	r.available -= count
	return nil
}

func (r *countingRepo) Release(_ context.Context, _ int64, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available += count
	if r.available > r.total {
		r.available = r.total
	}
	return nil
}

func (r *countingRepo) ReleaseOnce(ctx context.Context, pnr string, flightID int64, count int) (bool, error) {
	r.mu.Lock()
	key := fmt.Sprintf("%s:%d", pnr, flightID)
	if _, dup := r.applied[key]; dup {
		r.mu.Unlock()
		return false, nil
	}
	r.applied[key] = struct{}{}
	r.mu.Unlock()
	return true, r.Release(ctx, flightID, count)
}

func TestAdjustSeats_ConcurrentReservations_NeverOversell(t *testing.T) {
	const seats = 5
	const workers = 20

	repo := newCountingRepo(seats, seats)
	service := NewFlightService(zerolog.Nop(), repo, nil)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- service.AdjustSeats(context.Background(), 1, -1)
		}()
	}
	wg.Wait()
	close(errs)

	granted, rejected := 0, 0
	for err := range errs {
		if err == nil {
			granted++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
			rejected++
		}
	}

	assert.Equal(t, seats, granted)
	assert.Equal(t, workers-seats, rejected)
	assert.Equal(t, 0, repo.available)
}

func TestReleaseForBooking_ConcurrentDuplicates_AppliedOnce(t *testing.T) {
	repo := newCountingRepo(0, 10)
	service := NewFlightService(zerolog.Nop(), repo, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, service.ReleaseForBooking(context.Background(), "FAABC123", 1, 3))
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, repo.available)
}

func TestRelease_ClampsAtTotal(t *testing.T) {
	repo := newCountingRepo(9, 10)
	service := NewFlightService(zerolog.Nop(), repo, nil)

	err := service.AdjustSeats(context.Background(), 1, 5)

	assert.NoError(t, err)
	assert.Equal(t, 10, repo.available)
}
