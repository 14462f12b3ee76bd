package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/metrics"
	"github.com/Domenick1991/carrental/internal/pricing"
	"github.com/Domenick1991/carrental/internal/service/booking"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) one(args mock.Arguments) (*domain.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) many(args mock.Arguments) ([]domain.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	return m.one(m.Called(ctx, input))
}

func (m *MockBookingUseCase) QuotePrice(ctx context.Context, carID int64, pickup, ret time.Time) (pricing.Quote, error) {
	args := m.Called(ctx, carID, pickup, ret)
	return args.Get(0).(pricing.Quote), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return m.one(m.Called(ctx, id))
}

func (m *MockBookingUseCase) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	return m.one(m.Called(ctx, id, status))
}

func (m *MockBookingUseCase) ConfirmBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return m.one(m.Called(ctx, id))
}

func (m *MockBookingUseCase) CompleteBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return m.one(m.Called(ctx, id))
}

func (m *MockBookingUseCase) ForceStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	return m.one(m.Called(ctx, id, status))
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, id int64, requester booking.Requester, reason *string) (*domain.Booking, error) {
	return m.one(m.Called(ctx, id, requester, reason))
}

func (m *MockBookingUseCase) DeleteBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookingUseCase) HasConflict(ctx context.Context, carID int64, pickup, ret time.Time) (bool, error) {
	args := m.Called(ctx, carID, pickup, ret)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingUseCase) GetConflicts(ctx context.Context, carID int64, pickup, ret time.Time) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, carID, pickup, ret))
}

func (m *MockBookingUseCase) CheckAvailability(ctx context.Context, carID int64, pickup, ret time.Time) (domain.AvailabilityReport, error) {
	args := m.Called(ctx, carID, pickup, ret)
	return args.Get(0).(domain.AvailabilityReport), args.Error(1)
}

func (m *MockBookingUseCase) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, userID))
}

func (m *MockBookingUseCase) ListByCar(ctx context.Context, carID int64) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, carID))
}

func (m *MockBookingUseCase) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, status))
}

func (m *MockBookingUseCase) ListAll(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, filter))
}

func (m *MockBookingUseCase) ActiveForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, userID))
}

func (m *MockBookingUseCase) UpcomingForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, userID))
}

func (m *MockBookingUseCase) CompletedForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return m.many(m.Called(ctx, userID))
}

func (m *MockBookingUseCase) Stats(ctx context.Context) (domain.BookingStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BookingStats), args.Error(1)
}

type MockCarUseCase struct {
	mock.Mock
}

func (m *MockCarUseCase) List(ctx context.Context) ([]domain.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Car), args.Error(1)
}

func (m *MockCarUseCase) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Car), args.Error(1)
}

// newTestRouter wires the handlers the way the server does.
func newTestRouter(cars *MockCarUseCase, bookings *MockBookingUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.NewNop()), Metrics(metrics.New()))

	v1 := r.Group("/api/v1")
	NewCarHandler(cars, bookings).Register(v1.Group("/cars"))
	bookingHandler := NewBookingHandler(bookings, pricing.NewCalculator(pricing.Config{RoundUpPartialDays: true}))
	bookingHandler.Register(v1.Group("/bookings", Identity()))
	bookingHandler.RegisterAdmin(v1.Group("/admin", Identity(), RequireAdmin()))
	return r
}
