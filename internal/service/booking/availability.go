package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
)

// GetConflicts returns the blocking bookings of carID that overlap
// [pickup, ret), earliest pickup first.
func (s *BookingService) GetConflicts(ctx context.Context, carID int64, pickup, ret time.Time) ([]domain.Booking, error) {
	if !ret.After(pickup) {
		return nil, fmt.Errorf("%w: return date must be after pickup date", domain.ErrInvalidDateRange)
	}
	return s.bookings.QueryConflicts(ctx, carID, pickup, ret)
}

func (s *BookingService) HasConflict(ctx context.Context, carID int64, pickup, ret time.Time) (bool, error) {
	conflicts, err := s.GetConflicts(ctx, carID, pickup, ret)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

func (s *BookingService) CheckAvailability(ctx context.Context, carID int64, pickup, ret time.Time) (domain.AvailabilityReport, error) {
	conflicts, err := s.GetConflicts(ctx, carID, pickup, ret)
	if err != nil {
		return domain.AvailabilityReport{}, err
	}
	return domain.NewAvailabilityReport(carID, conflicts), nil
}
