package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// MaxNotesLength limits customer notes on a reservation request.
const MaxNotesLength = 500

// transitions lists the statuses reachable from each status through the
// regular lifecycle operations. Completed and Cancelled are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, s)
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Blocking reports whether a booking in this status holds the car.
func (s BookingStatus) Blocking() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type Booking struct {
	ID                 int64
	BookingNumber      string
	CarID              int64
	UserID             string
	PickupDate         time.Time
	ReturnDate         time.Time
	TotalPrice         decimal.Decimal
	Status             BookingStatus
	IsCancelled        bool
	CancellationDate   *time.Time
	CancellationReason *string
	CompletedDate      *time.Time
	IsDeleted          bool
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Read-side fields, filled by detail queries only.
	CarBrand     string
	CarModel     string
	CarYear      int
	DailyRate    decimal.Decimal
	UserFullName string
	UserEmail    string
}

// BlocksCar reports whether the booking takes part in conflict detection.
func (b *Booking) BlocksCar() bool {
	return b.Status.Blocking() && !b.IsCancelled && !b.IsDeleted
}

// MarkCancelled applies the cancellation fields together so the
// IsCancelled flag never drifts from the status.
func (b *Booking) MarkCancelled(now time.Time, reason *string) {
	b.Status = BookingStatusCancelled
	b.IsCancelled = true
	b.CancellationDate = &now
	b.CancellationReason = reason
	b.CompletedDate = nil
	b.UpdatedAt = now
}

// SetStatus moves the booking to next without consulting the transition
// table. Cancellation fields exist only on a Cancelled booking and
// CompletedDate only on a Completed one.
func (b *Booking) SetStatus(next BookingStatus, now time.Time) {
	if next == BookingStatusCancelled {
		if !b.IsCancelled {
			b.MarkCancelled(now, b.CancellationReason)
			return
		}
		b.Status = next
		b.UpdatedAt = now
		return
	}

	b.IsCancelled = false
	b.CancellationDate = nil
	b.CancellationReason = nil
	if next == BookingStatusCompleted {
		if b.Status != BookingStatusCompleted || b.CompletedDate == nil {
			b.CompletedDate = &now
		}
	} else {
		b.CompletedDate = nil
	}
	b.Status = next
	b.UpdatedAt = now
}

// BookingFilter narrows list queries. Nil fields are not applied.
type BookingFilter struct {
	UserID *string
	CarID  *int64
	Status *BookingStatus
}

type BookingStats struct {
	TotalBookings int64
	TotalRevenue  decimal.Decimal
}
