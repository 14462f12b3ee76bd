package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/carrental/internal/domain"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool, time.Second)
	assert.NotNil(t, repo)
}

func TestNewCarRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewCarRepository(pool, time.Second)
	assert.NotNil(t, repo)
}

func TestMapError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "exclusion violation is a booking conflict",
			err:  &pgconn.PgError{Code: "23P01", ConstraintName: "bookings_no_overlap"},
			want: domain.ErrBookingConflict,
		},
		{
			name: "booking number collision",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "bookings_booking_number_uq"},
			want: ErrDuplicateBookingNumber,
		},
		{
			name: "serialization failure is retryable",
			err:  &pgconn.PgError{Code: "40001"},
			want: domain.ErrStoreUnavailable,
		},
		{
			name: "connection exception class",
			err:  &pgconn.PgError{Code: "08006"},
			want: domain.ErrStoreUnavailable,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("query: %w", context.DeadlineExceeded),
			want: domain.ErrStoreUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError("op", tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err)
			assert.Contains(t, got.Error(), "op: ")
		})
	}
}

func TestMapError_Unclassified(t *testing.T) {
	base := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	got := mapError("op", base)

	assert.ErrorIs(t, got, base)
	assert.False(t, errors.Is(got, ErrDuplicateBookingNumber))
	assert.False(t, domain.IsRetryable(got))
	assert.Equal(t, domain.KindInternal, domain.KindOf(got))
	assert.NoError(t, mapError("op", nil))
}

func TestFilterPredicate(t *testing.T) {
	user := "u-1"
	car := int64(7)
	status := domain.BookingStatusConfirmed

	sql, args, err := filterPredicate(domain.BookingFilter{}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "b.is_deleted = ?", sql)
	assert.Equal(t, []any{false}, args)

	sql, args, err = filterPredicate(domain.BookingFilter{UserID: &user, CarID: &car, Status: &status}).ToSql()
	require.NoError(t, err)
	// squirrel sorts Eq keys
	assert.Equal(t, "b.car_id = ? AND b.is_deleted = ? AND b.status = ? AND b.user_id = ?", sql)
	assert.Equal(t, []any{car, false, "Confirmed", user}, args)
}

func TestConflictQueryShape(t *testing.T) {
	pickup := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ret := pickup.AddDate(0, 0, 3)

	sql, args, err := selectDetails().
		Where(blocking).
		Where("b.pickup_date < ?", ret).
		Where("b.return_date > ?", pickup).
		ToSql()

	require.NoError(t, err)
	assert.Contains(t, sql, "FROM bookings b JOIN cars c ON c.id = b.car_id LEFT JOIN users u ON u.id = b.user_id")
	assert.Contains(t, sql, "b.status IN ($1,$2)")
	assert.Contains(t, sql, "b.pickup_date < $5 AND b.return_date > $6")
	assert.Equal(t, []any{"Pending", "Confirmed", false, false, ret, pickup}, args)
}
