package domain

import "errors"

// Every failure the booking engine reports wraps exactly one of these.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrPickupInPast      = errors.New("pickup date is in the past")
	ErrCarNotFound       = errors.New("car not found")
	ErrCarUnavailable    = errors.New("car unavailable")
	ErrBookingConflict   = errors.New("booking conflict")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyCancelled  = errors.New("booking already cancelled")
	ErrAlreadyDeleted    = errors.New("booking already deleted")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

type Kind string

const (
	KindInvalidInput      Kind = "InvalidInput"
	KindInvalidDateRange  Kind = "InvalidDateRange"
	KindPickupInPast      Kind = "PickupInPast"
	KindCarNotFound       Kind = "CarNotFound"
	KindCarUnavailable    Kind = "CarUnavailable"
	KindBookingConflict   Kind = "BookingConflict"
	KindBookingNotFound   Kind = "BookingNotFound"
	KindUnauthorized      Kind = "Unauthorized"
	KindAlreadyCancelled  Kind = "AlreadyCancelled"
	KindAlreadyDeleted    Kind = "AlreadyDeleted"
	KindInvalidTransition Kind = "InvalidTransition"
	KindStoreUnavailable  Kind = "StoreUnavailable"
	KindInternal          Kind = "Internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrInvalidDateRange, KindInvalidDateRange},
	{ErrPickupInPast, KindPickupInPast},
	{ErrCarNotFound, KindCarNotFound},
	{ErrCarUnavailable, KindCarUnavailable},
	{ErrBookingConflict, KindBookingConflict},
	{ErrBookingNotFound, KindBookingNotFound},
	{ErrUnauthorized, KindUnauthorized},
	{ErrAlreadyCancelled, KindAlreadyCancelled},
	{ErrAlreadyDeleted, KindAlreadyDeleted},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
