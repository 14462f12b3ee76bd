package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Domenick1991/carrental/internal/domain"
)

// ErrDuplicateBookingNumber is returned by Insert when the generated
// booking number is already taken. The caller regenerates and retries.
var ErrDuplicateBookingNumber = errors.New("repository: duplicate booking number")

const (
	codeUniqueViolation      = "23505"
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeTooManyConnections   = "53300"
	codeAdminShutdown        = "57P01"

	bookingNumberConstraint = "bookings_booking_number_uq"
)

// mapError wraps err with op and classifies it against the domain errors.
// Transient driver and server failures become domain.ErrStoreUnavailable.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeExclusionViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrBookingConflict, err)
		case codeUniqueViolation:
			if pgErr.ConstraintName == bookingNumberConstraint {
				return fmt.Errorf("%s: %w: %w", op, ErrDuplicateBookingNumber, err)
			}
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable,
			codeQueryCanceled, codeTooManyConnections, codeAdminShutdown:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
		}
		// class 08: connection exception
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err) || errors.As(err, &connErr) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func buildErr(op string, err error) error {
	return fmt.Errorf("%s: build query: %w", op, err)
}
