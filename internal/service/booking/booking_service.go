package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/metrics"
	"github.com/Domenick1991/carrental/internal/pricing"
	"github.com/Domenick1991/carrental/internal/repository"
)

const maxNumberAttempts = 3

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	QuotePrice(ctx context.Context, carID int64, pickup, ret time.Time) (pricing.Quote, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, id int64) (*domain.Booking, error)
	CompleteBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ForceStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64, requester Requester, reason *string) (*domain.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error

	HasConflict(ctx context.Context, carID int64, pickup, ret time.Time) (bool, error)
	GetConflicts(ctx context.Context, carID int64, pickup, ret time.Time) ([]domain.Booking, error)
	CheckAvailability(ctx context.Context, carID int64, pickup, ret time.Time) (domain.AvailabilityReport, error)

	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	ListByCar(ctx context.Context, carID int64) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error)
	ListAll(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	ActiveForUser(ctx context.Context, userID string) ([]domain.Booking, error)
	UpcomingForUser(ctx context.Context, userID string) ([]domain.Booking, error)
	CompletedForUser(ctx context.Context, userID string) ([]domain.Booking, error)
	Stats(ctx context.Context) (domain.BookingStats, error)
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serialises reservation requests for one car. The returned func
// releases the lock and is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, carID int64) (func(), error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Requester is the identity resolved by the caller's authentication layer.
type Requester struct {
	UserID  string
	IsAdmin bool
}

type CreateBookingInput struct {
	UserID     string    `json:"user_id"`
	CarID      int64     `json:"car_id"`
	PickupDate time.Time `json:"pickup_date"`
	ReturnDate time.Time `json:"return_date"`
	Notes      *string   `json:"notes,omitempty"`
}

type BookingService struct {
	bookings  repository.BookingRepository
	cars      repository.CarRepository
	tx        TxManager
	locker    Locker
	calc      *pricing.Calculator
	producer  Producer
	topic     string
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newNumber func(time.Time) string
}

type BookingServiceOption func(*BookingService)

// WithProducer enables lifecycle events on topic.
func WithProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.topic = topic
	}
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithNumberGenerator(gen func(time.Time) string) BookingServiceOption {
	return func(s *BookingService) {
		s.newNumber = gen
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cars repository.CarRepository,
	tx TxManager,
	locker Locker,
	calc *pricing.Calculator,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:  bookings,
		cars:      cars,
		tx:        tx,
		locker:    locker,
		calc:      calc,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newNumber: NewBookingNumber,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// NewBookingNumber returns BK-<year>-<8 upper-case hex characters>.
func NewBookingNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("BK-%d-%s", now.Year(), strings.ToUpper(suffix))
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	const op = "create"

	booking, err := s.createBooking(ctx, input)
	s.metrics.ObserveBookingOp(op, err)
	if err != nil {
		s.logFailure(op, err, zap.Int64("car_id", input.CarID), zap.String("user_id", input.UserID))
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("car_id", booking.CarID),
		zap.String("booking_number", booking.BookingNumber),
		zap.String("total_price", booking.TotalPrice.StringFixed(2)),
	)
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) createBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.checkDates(now, input.PickupDate, input.ReturnDate); err != nil {
		return nil, err
	}

	car, err := s.loadCar(ctx, input.CarID)
	if err != nil {
		return nil, err
	}
	if !car.IsAvailable {
		return nil, fmt.Errorf("%w: car %d is not available for rent", domain.ErrCarUnavailable, car.ID)
	}

	release, err := s.lockCar(ctx, car.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	booking := &domain.Booking{
		CarID:      car.ID,
		UserID:     input.UserID,
		PickupDate: input.PickupDate,
		ReturnDate: input.ReturnDate,
		TotalPrice: s.calc.Total(car.Rates(), input.PickupDate, input.ReturnDate),
		Status:     domain.BookingStatusPending,
		Notes:      input.Notes,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		conflicts, err := s.bookings.QueryConflicts(ctx, car.ID, input.PickupDate, input.ReturnDate)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return fmt.Errorf("%w: car %d is already booked from %s to %s",
				domain.ErrBookingConflict, car.ID,
				conflicts[0].PickupDate.Format(time.DateOnly), conflicts[0].ReturnDate.Format(time.DateOnly))
		}
		return s.insertWithNumber(ctx, booking, now)
	})
	if err != nil {
		return nil, err
	}

	detailed, err := s.bookings.GetWithDetails(ctx, booking.ID)
	if err != nil {
		s.logger.Warn("reload created booking", zap.Int64("booking_id", booking.ID), zap.Error(err))
		return booking, nil
	}
	return detailed, nil
}

// insertWithNumber retries on a booking number collision. Every attempt
// runs on its own savepoint so a failed insert leaves the outer
// transaction usable.
func (s *BookingService) insertWithNumber(ctx context.Context, booking *domain.Booking, now time.Time) error {
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		booking.BookingNumber = s.newNumber(now)
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.bookings.Insert(ctx, booking)
		})
		if !errors.Is(err, repository.ErrDuplicateBookingNumber) {
			return err
		}
		s.logger.Warn("booking number collision", zap.String("booking_number", booking.BookingNumber))
	}
	return err
}

func (s *BookingService) QuotePrice(ctx context.Context, carID int64, pickup, ret time.Time) (pricing.Quote, error) {
	if !ret.After(pickup) {
		return pricing.Quote{}, fmt.Errorf("%w: return date must be after pickup date", domain.ErrInvalidDateRange)
	}
	car, err := s.loadCar(ctx, carID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return s.calc.Quote(car.Rates(), pickup, ret), nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetWithDetails(ctx, id)
}

// UpdateStatus moves a booking along the transition table.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	return s.mutate(ctx, "update_status", id, func(_ context.Context, b *domain.Booking, now time.Time) error {
		if !b.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, status)
		}
		b.SetStatus(status, now)
		return nil
	})
}

func (s *BookingService) ConfirmBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.UpdateStatus(ctx, id, domain.BookingStatusConfirmed)
}

func (s *BookingService) CompleteBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.UpdateStatus(ctx, id, domain.BookingStatusCompleted)
}

// ForceStatus sets any status regardless of the transition table. It is
// meant for administrators correcting records. Reviving a cancelled or
// completed booking takes the car lock and fails with BookingConflict when
// another blocking booking holds the car in the meantime.
func (s *BookingService) ForceStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	const op = "force_status"

	if status.Blocking() {
		current, err := s.bookings.GetForUpdate(ctx, id)
		if err != nil {
			s.metrics.ObserveBookingOp(op, err)
			s.logFailure(op, err, zap.Int64("booking_id", id))
			return nil, err
		}
		release, err := s.lockCar(ctx, current.CarID)
		if err != nil {
			s.metrics.ObserveBookingOp(op, err)
			s.logFailure(op, err, zap.Int64("booking_id", id), zap.Int64("car_id", current.CarID))
			return nil, err
		}
		defer release()
	}

	return s.mutate(ctx, op, id, func(ctx context.Context, b *domain.Booking, now time.Time) error {
		if status.Blocking() && !b.BlocksCar() {
			if err := s.checkRevival(ctx, b); err != nil {
				return err
			}
		}
		b.SetStatus(status, now)
		return nil
	})
}

// checkRevival fails when a booking other than b blocks b's interval.
func (s *BookingService) checkRevival(ctx context.Context, b *domain.Booking) error {
	conflicts, err := s.bookings.QueryConflicts(ctx, b.CarID, b.PickupDate, b.ReturnDate)
	if err != nil {
		return err
	}
	for _, c := range conflicts {
		if c.ID == b.ID {
			continue
		}
		return fmt.Errorf("%w: car %d is booked by %s from %s to %s",
			domain.ErrBookingConflict, b.CarID, c.BookingNumber,
			c.PickupDate.Format(time.DateOnly), c.ReturnDate.Format(time.DateOnly))
	}
	return nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id int64, requester Requester, reason *string) (*domain.Booking, error) {
	return s.mutate(ctx, "cancel", id, func(_ context.Context, b *domain.Booking, now time.Time) error {
		if b.UserID != requester.UserID && !requester.IsAdmin {
			return fmt.Errorf("%w: booking %d belongs to another user", domain.ErrUnauthorized, b.ID)
		}
		if b.IsCancelled {
			return fmt.Errorf("%w: booking %d", domain.ErrAlreadyCancelled, b.ID)
		}
		if !b.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return fmt.Errorf("%w: %s booking cannot be cancelled", domain.ErrInvalidTransition, b.Status)
		}
		b.MarkCancelled(now, reason)
		return nil
	})
}

// DeleteBooking soft-deletes a booking without touching its status.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) error {
	const op = "delete"

	var deleted *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.IsDeleted {
			return fmt.Errorf("%w: booking %d", domain.ErrAlreadyDeleted, id)
		}
		b.IsDeleted = true
		b.UpdatedAt = s.now()
		if err := s.bookings.Update(ctx, b); err != nil {
			return err
		}
		deleted = b
		return nil
	})
	s.metrics.ObserveBookingOp(op, err)
	if err != nil {
		s.logFailure(op, err, zap.Int64("booking_id", id))
		return err
	}

	s.logger.Info("booking deleted", zap.Int64("booking_id", id), zap.String("booking_number", deleted.BookingNumber))
	s.publish(ctx, kafka.EventBookingDeleted, deleted)
	return nil
}

// mutate loads a live booking under a row lock, applies fn and stores the
// result in one transaction.
func (s *BookingService) mutate(ctx context.Context, op string, id int64, fn func(ctx context.Context, b *domain.Booking, now time.Time) error) (*domain.Booking, error) {
	var (
		updated  *domain.Booking
		previous domain.BookingStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.IsDeleted {
			return fmt.Errorf("%w: booking %d is deleted", domain.ErrBookingNotFound, id)
		}
		previous = b.Status
		if err := fn(ctx, b, s.now()); err != nil {
			return err
		}
		if err := s.bookings.Update(ctx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	s.metrics.ObserveBookingOp(op, err)
	if err != nil {
		s.logFailure(op, err, zap.Int64("booking_id", id))
		return nil, err
	}

	s.logger.Info("booking status changed",
		zap.String("operation", op),
		zap.Int64("booking_id", updated.ID),
		zap.Int64("car_id", updated.CarID),
		zap.String("booking_number", updated.BookingNumber),
		zap.String("from", string(previous)),
		zap.String("to", string(updated.Status)),
	)
	s.publish(ctx, eventFor(op, updated.Status), updated)

	detailed, err := s.bookings.GetWithDetails(ctx, id)
	if err != nil {
		s.logger.Warn("reload updated booking", zap.Int64("booking_id", id), zap.Error(err))
		return updated, nil
	}
	return detailed, nil
}

// lockCar takes the per-car lock and records how long the caller waited.
func (s *BookingService) lockCar(ctx context.Context, carID int64) (func(), error) {
	started := time.Now()
	release, err := s.locker.Acquire(ctx, carID)
	s.metrics.ObserveLockWait(time.Since(started))
	return release, err
}

func (s *BookingService) loadCar(ctx context.Context, carID int64) (*domain.Car, error) {
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.IsDeleted {
		return nil, fmt.Errorf("%w: car %d", domain.ErrCarNotFound, carID)
	}
	return car, nil
}

// checkDates compares pickup against today's UTC date, so a pickup earlier
// today is still accepted.
func (s *BookingService) checkDates(now, pickup, ret time.Time) error {
	if !ret.After(pickup) {
		return fmt.Errorf("%w: return date must be after pickup date", domain.ErrInvalidDateRange)
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if pickup.Before(today) {
		return fmt.Errorf("%w: pickup %s is before %s", domain.ErrPickupInPast, pickup.Format(time.DateOnly), today.Format(time.DateOnly))
	}
	return nil
}

func validateInput(input CreateBookingInput) error {
	if strings.TrimSpace(input.UserID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if input.CarID <= 0 {
		return fmt.Errorf("%w: car id must be positive", domain.ErrInvalidInput)
	}
	if input.Notes != nil && utf8.RuneCountInString(*input.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", domain.ErrInvalidInput, domain.MaxNotesLength)
	}
	return nil
}

// logFailure logs rejected requests at Warn and infrastructure failures at Error.
func (s *BookingService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", op), zap.Error(err))
	switch domain.KindOf(err) {
	case domain.KindStoreUnavailable, domain.KindInternal:
		s.logger.Error("booking operation failed", fields...)
	default:
		s.logger.Warn("booking operation rejected", append(fields, zap.String("kind", string(domain.KindOf(err))))...)
	}
}

func eventFor(op string, status domain.BookingStatus) string {
	if op == "force_status" {
		return kafka.EventStatusForced
	}
	switch status {
	case domain.BookingStatusConfirmed:
		return kafka.EventBookingConfirmed
	case domain.BookingStatusCompleted:
		return kafka.EventBookingCompleted
	case domain.BookingStatusCancelled:
		return kafka.EventBookingCancelled
	}
	return kafka.EventStatusForced
}

// publish is best effort: the booking is already committed.
func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		BookingNumber: booking.BookingNumber,
		CarID:         booking.CarID,
		UserID:        booking.UserID,
		Status:        string(booking.Status),
		PickupDate:    booking.PickupDate,
		ReturnDate:    booking.ReturnDate,
		TotalPrice:    booking.TotalPrice,
		OccurredAt:    s.now(),
	}
	if err := s.producer.Publish(ctx, s.topic, booking.BookingNumber, event); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("type", eventType),
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
