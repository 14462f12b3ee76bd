package domain

import "time"

// Overlaps reports whether [p1, r1) and [p2, r2) share any instant.
// A return on day N and a pickup on day N do not overlap.
func Overlaps(p1, r1, p2, r2 time.Time) bool {
	return p1.Before(r2) && p2.Before(r1)
}

type BookingConflict struct {
	BookingID  int64     `json:"booking_id"`
	PickupDate time.Time `json:"pickup_date"`
	ReturnDate time.Time `json:"return_date"`
}

type AvailabilityReport struct {
	CarID         int64             `json:"car_id"`
	IsAvailable   bool              `json:"is_available"`
	AvailableFrom *time.Time        `json:"available_from,omitempty"`
	Conflicts     []BookingConflict `json:"conflicts"`
}

// NewAvailabilityReport summarises the conflicting bookings for a car.
func NewAvailabilityReport(carID int64, conflicts []Booking) AvailabilityReport {
	report := AvailabilityReport{
		CarID:       carID,
		IsAvailable: len(conflicts) == 0,
		Conflicts:   make([]BookingConflict, 0, len(conflicts)),
	}
	for _, b := range conflicts {
		report.Conflicts = append(report.Conflicts, BookingConflict{
			BookingID:  b.ID,
			PickupDate: b.PickupDate,
			ReturnDate: b.ReturnDate,
		})
		if report.AvailableFrom == nil || b.ReturnDate.After(*report.AvailableFrom) {
			r := b.ReturnDate
			report.AvailableFrom = &r
		}
	}
	return report
}
