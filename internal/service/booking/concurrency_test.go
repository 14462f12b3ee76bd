package booking

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/lock"
	"github.com/Domenick1991/carrental/internal/pricing"
)

// memStore is a BookingRepository with no overlap constraint of its own,
// so only the service's per-car lock keeps bookings apart.
type memStore struct {
	mu       sync.Mutex
	seq      int64
	bookings map[int64]domain.Booking
}

func newMemStore() *memStore {
	return &memStore{bookings: make(map[int64]domain.Booking)}
}

func (s *memStore) Insert(_ context.Context, b *domain.Booking) error {
	// widen the window between the conflict check and the insert
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	b.ID = s.seq
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) Update(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return domain.ErrBookingNotFound
	}
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) GetForUpdate(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (s *memStore) GetWithDetails(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.GetForUpdate(ctx, id)
	if err != nil || b.IsDeleted {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *memStore) QueryConflicts(_ context.Context, carID int64, pickup, ret time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.CarID == carID && b.BlocksCar() && domain.Overlaps(b.PickupDate, b.ReturnDate, pickup, ret) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickupDate.Before(out[j].PickupDate) })
	return out, nil
}

func (s *memStore) List(context.Context, domain.BookingFilter) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if !b.IsDeleted {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) ActiveForUser(context.Context, string, time.Time) ([]domain.Booking, error) {
	return []domain.Booking{}, nil
}

func (s *memStore) UpcomingForUser(context.Context, string, time.Time) ([]domain.Booking, error) {
	return []domain.Booking{}, nil
}

func (s *memStore) Count(context.Context, domain.BookingFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.bookings)), nil
}

func (s *memStore) SumRevenue(context.Context, domain.BookingFilter) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type memCars struct{}

func (memCars) GetByID(_ context.Context, id int64) (*domain.Car, error) {
	return &domain.Car{ID: id, DailyRate: decimal.NewFromInt(40), IsAvailable: true}, nil
}

func (memCars) List(context.Context) ([]domain.Car, error) {
	return []domain.Car{}, nil
}

func newConcurrentService(store *memStore) *BookingService {
	return NewBookingService(
		store,
		memCars{},
		passThroughTx{},
		lock.NewKeyedMutex(5*time.Second),
		pricing.NewCalculator(pricing.Config{}),
		zap.NewNop(),
		WithClock(func() time.Time { return testNow }),
	)
}

func TestBookingService_ConcurrentCreate_SameRange(t *testing.T) {
	store := newMemStore()
	svc := newConcurrentService(store)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
				UserID: "u-1", CarID: 1, PickupDate: day(3), ReturnDate: day(6),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case domain.KindOf(err) == domain.KindBookingConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}

func TestBookingService_ConcurrentCreate_NoOverlapInvariant(t *testing.T) {
	store := newMemStore()
	svc := newConcurrentService(store)
	rng := rand.New(rand.NewSource(7))

	type request struct {
		car          int64
		start, nights int
	}
	requests := make([]request, 60)
	for i := range requests {
		requests[i] = request{car: int64(1 + rng.Intn(3)), start: 1 + rng.Intn(30), nights: 1 + rng.Intn(6)}
	}

	var wg sync.WaitGroup
	for _, r := range requests {
		wg.Add(1)
		go func(r request) {
			defer wg.Done()
			_, _ = svc.CreateBooking(context.Background(), CreateBookingInput{
				UserID: "u-1", CarID: r.car, PickupDate: day(r.start), ReturnDate: day(r.start + r.nights),
			})
		}(r)
	}
	wg.Wait()

	all, err := store.List(context.Background(), domain.BookingFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if a.CarID != b.CarID {
				continue
			}
			assert.False(t, domain.Overlaps(a.PickupDate, a.ReturnDate, b.PickupDate, b.ReturnDate),
				"bookings %d and %d overlap on car %d", a.ID, b.ID, a.CarID)
		}
	}
}

func TestBookingService_CancelledStatusStaysInSync(t *testing.T) {
	store := newMemStore()
	svc := newConcurrentService(store)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, CreateBookingInput{UserID: "u-1", CarID: 1, PickupDate: day(1), ReturnDate: day(3)})
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, created.ID, Requester{UserID: "u-1"}, nil)
	require.NoError(t, err)
	_, err = svc.ForceStatus(ctx, created.ID, domain.BookingStatusConfirmed)
	require.NoError(t, err)

	all, err := store.List(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	for _, b := range all {
		assert.Equal(t, b.Status == domain.BookingStatusCancelled, b.IsCancelled)
	}

	// the car frees up once the booking is cancelled again
	_, err = svc.CancelBooking(ctx, created.ID, Requester{UserID: "admin", IsAdmin: true}, nil)
	require.NoError(t, err)
	_, err = svc.CreateBooking(ctx, CreateBookingInput{UserID: "u-2", CarID: 1, PickupDate: day(1), ReturnDate: day(3)})
	assert.NoError(t, err)
}

func TestBookingService_ForceStatus_CannotReviveOverLiveBooking(t *testing.T) {
	store := newMemStore()
	svc := newConcurrentService(store)
	ctx := context.Background()
	admin := Requester{UserID: "admin", IsAdmin: true}

	first, err := svc.CreateBooking(ctx, CreateBookingInput{UserID: "u-1", CarID: 1, PickupDate: day(2), ReturnDate: day(5)})
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, first.ID, admin, nil)
	require.NoError(t, err)
	_, err = svc.CreateBooking(ctx, CreateBookingInput{UserID: "u-2", CarID: 1, PickupDate: day(2), ReturnDate: day(5)})
	require.NoError(t, err)

	_, err = svc.ForceStatus(ctx, first.ID, domain.BookingStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrBookingConflict)

	blocking, err := svc.GetConflicts(ctx, 1, day(2), day(5))
	require.NoError(t, err)
	assert.Len(t, blocking, 1)

	stored, err := store.GetForUpdate(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
	assert.True(t, stored.IsCancelled)
}
