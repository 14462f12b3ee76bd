package booking

import (
	"context"

	"github.com/Domenick1991/carrental/internal/domain"
)

func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.List(ctx, domain.BookingFilter{UserID: &userID})
}

func (s *BookingService) ListByCar(ctx context.Context, carID int64) ([]domain.Booking, error) {
	return s.bookings.List(ctx, domain.BookingFilter{CarID: &carID})
}

func (s *BookingService) ListByStatus(ctx context.Context, status domain.BookingStatus) ([]domain.Booking, error) {
	return s.bookings.List(ctx, domain.BookingFilter{Status: &status})
}

func (s *BookingService) ListAll(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	return s.bookings.List(ctx, filter)
}

// ActiveForUser returns the user's bookings in progress now, soonest return first.
func (s *BookingService) ActiveForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.ActiveForUser(ctx, userID, s.now())
}

// UpcomingForUser returns the user's future bookings, soonest pickup first.
func (s *BookingService) UpcomingForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.UpcomingForUser(ctx, userID, s.now())
}

// CompletedForUser filters the user's full list in memory.
func (s *BookingService) CompletedForUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	all, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed := make([]domain.Booking, 0, len(all))
	for _, b := range all {
		if b.Status == domain.BookingStatusCompleted {
			completed = append(completed, b)
		}
	}
	return completed, nil
}

// Stats counts non-deleted bookings and sums the revenue of completed ones.
func (s *BookingService) Stats(ctx context.Context) (domain.BookingStats, error) {
	total, err := s.bookings.Count(ctx, domain.BookingFilter{})
	if err != nil {
		return domain.BookingStats{}, err
	}
	revenue, err := s.bookings.SumRevenue(ctx, domain.BookingFilter{})
	if err != nil {
		return domain.BookingStats{}, err
	}
	return domain.BookingStats{TotalBookings: total, TotalRevenue: revenue}, nil
}
