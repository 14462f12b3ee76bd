package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Domenick1991/carrental/internal/domain"
)

type BookingRepository interface {
	// Insert stores a new booking and fills ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, booking *domain.Booking) error
	// Update writes the mutable lifecycle fields of an existing booking.
	Update(ctx context.Context, booking *domain.Booking) error
	// GetForUpdate loads a booking, soft-deleted or not, and locks its row
	// when called inside a transaction.
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	// GetWithDetails loads a non-deleted booking with car and user fields.
	GetWithDetails(ctx context.Context, id int64) (*domain.Booking, error)
	// QueryConflicts returns the blocking bookings for carID whose interval
	// overlaps [pickup, ret), ordered by pickup date.
	QueryConflicts(ctx context.Context, carID int64, pickup, ret time.Time) ([]domain.Booking, error)
	// List returns non-deleted bookings matching filter, newest first.
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	ActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.Booking, error)
	UpcomingForUser(ctx context.Context, userID string, now time.Time) ([]domain.Booking, error)
	Count(ctx context.Context, filter domain.BookingFilter) (int64, error)
	// SumRevenue totals completed, non-cancelled bookings matching filter.
	SumRevenue(ctx context.Context, filter domain.BookingFilter) (decimal.Decimal, error)
}

type PGBookingRepository struct {
	db      DB
	timeout time.Duration
}

func NewBookingRepository(db DB, queryTimeout time.Duration) BookingRepository {
	return &PGBookingRepository{db: db, timeout: queryTimeout}
}

var bookingColumns = []string{
	"b.id",
	"b.booking_number",
	"b.car_id",
	"b.user_id",
	"b.pickup_date",
	"b.return_date",
	"b.total_price",
	"b.status",
	"b.is_cancelled",
	"b.cancellation_date",
	"b.cancellation_reason",
	"b.completed_date",
	"b.is_deleted",
	"b.notes",
	"b.created_at",
	"b.updated_at",
}

var detailColumns = []string{
	"c.brand",
	"c.model",
	"c.year",
	"c.daily_rate",
	"COALESCE(u.full_name, '')",
	"COALESCE(u.email, '')",
}

// blocking restricts a query to bookings that hold their car.
var blocking = squirrel.And{
	squirrel.Eq{"b.status": []string{string(domain.BookingStatusPending), string(domain.BookingStatusConfirmed)}},
	squirrel.Eq{"b.is_cancelled": false},
	squirrel.Eq{"b.is_deleted": false},
}

func selectDetails() squirrel.SelectBuilder {
	cols := make([]string, 0, len(bookingColumns)+len(detailColumns))
	cols = append(cols, bookingColumns...)
	cols = append(cols, detailColumns...)
	return psql.Select(cols...).
		From("bookings b").
		Join("cars c ON c.id = b.car_id").
		LeftJoin("users u ON u.id = b.user_id")
}

func (r *PGBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	const op = "repository.BookingRepo.Insert"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := psql.Insert("bookings").
		Columns(
			"booking_number",
			"car_id",
			"user_id",
			"pickup_date",
			"return_date",
			"total_price",
			"status",
			"is_cancelled",
			"notes",
		).
		Values(
			booking.BookingNumber,
			booking.CarID,
			booking.UserID,
			booking.PickupDate,
			booking.ReturnDate,
			booking.TotalPrice,
			string(booking.Status),
			booking.IsCancelled,
			booking.Notes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return buildErr(op, err)
	}

	if err := executor(ctx, r.db).QueryRow(ctx, query, args...).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return mapError(op, err)
	}
	return nil
}

func (r *PGBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	const op = "repository.BookingRepo.Update"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := psql.Update("bookings").
		Set("status", string(booking.Status)).
		Set("is_cancelled", booking.IsCancelled).
		Set("cancellation_date", booking.CancellationDate).
		Set("cancellation_reason", booking.CancellationReason).
		Set("completed_date", booking.CompletedDate).
		Set("is_deleted", booking.IsDeleted).
		Set("notes", booking.Notes).
		Set("updated_at", booking.UpdatedAt).
		Where(squirrel.Eq{"id": booking.ID}).
		ToSql()
	if err != nil {
		return buildErr(op, err)
	}

	tag, err := executor(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return mapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *PGBookingRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "repository.BookingRepo.GetForUpdate"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := psql.Select(bookingColumns...).
		From("bookings b").
		Where(squirrel.Eq{"b.id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, buildErr(op, err)
	}

	b, err := scanBooking(executor(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, mapError(op, err)
	}
	return &b, nil
}

func (r *PGBookingRepository) GetWithDetails(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "repository.BookingRepo.GetWithDetails"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := selectDetails().
		Where(squirrel.Eq{"b.id": id, "b.is_deleted": false}).
		ToSql()
	if err != nil {
		return nil, buildErr(op, err)
	}

	b, err := scanBookingDetails(executor(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, mapError(op, err)
	}
	return &b, nil
}

func (r *PGBookingRepository) QueryConflicts(ctx context.Context, carID int64, pickup, ret time.Time) ([]domain.Booking, error) {
	builder := selectDetails().
		Where(squirrel.Eq{"b.car_id": carID}).
		Where(blocking).
		Where(squirrel.Lt{"b.pickup_date": ret}).
		Where(squirrel.Gt{"b.return_date": pickup}).
		OrderBy("b.pickup_date ASC")
	return r.queryList(ctx, "repository.BookingRepo.QueryConflicts", builder)
}

func (r *PGBookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	builder := selectDetails().
		Where(filterPredicate(filter)).
		OrderBy("b.created_at DESC", "b.id DESC")
	return r.queryList(ctx, "repository.BookingRepo.List", builder)
}

func (r *PGBookingRepository) ActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.Booking, error) {
	builder := selectDetails().
		Where(squirrel.Eq{"b.user_id": userID}).
		Where(blocking).
		Where(squirrel.LtOrEq{"b.pickup_date": now}).
		Where(squirrel.GtOrEq{"b.return_date": now}).
		OrderBy("b.return_date ASC")
	return r.queryList(ctx, "repository.BookingRepo.ActiveForUser", builder)
}

func (r *PGBookingRepository) UpcomingForUser(ctx context.Context, userID string, now time.Time) ([]domain.Booking, error) {
	builder := selectDetails().
		Where(squirrel.Eq{"b.user_id": userID}).
		Where(blocking).
		Where(squirrel.Gt{"b.pickup_date": now}).
		OrderBy("b.pickup_date ASC")
	return r.queryList(ctx, "repository.BookingRepo.UpcomingForUser", builder)
}

func (r *PGBookingRepository) Count(ctx context.Context, filter domain.BookingFilter) (int64, error) {
	const op = "repository.BookingRepo.Count"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := psql.Select("COUNT(*)").
		From("bookings b").
		Where(filterPredicate(filter)).
		ToSql()
	if err != nil {
		return 0, buildErr(op, err)
	}

	var n int64
	if err := executor(ctx, r.db).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(op, err)
	}
	return n, nil
}

func (r *PGBookingRepository) SumRevenue(ctx context.Context, filter domain.BookingFilter) (decimal.Decimal, error) {
	const op = "repository.BookingRepo.SumRevenue"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := psql.Select("COALESCE(SUM(b.total_price), 0)").
		From("bookings b").
		Where(filterPredicate(filter)).
		Where(squirrel.Eq{"b.status": string(domain.BookingStatusCompleted), "b.is_cancelled": false}).
		ToSql()
	if err != nil {
		return decimal.Zero, buildErr(op, err)
	}

	var sum decimal.Decimal
	if err := executor(ctx, r.db).QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, mapError(op, err)
	}
	return sum, nil
}

func (r *PGBookingRepository) queryList(ctx context.Context, op string, builder squirrel.SelectBuilder) ([]domain.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, buildErr(op, err)
	}

	rows, err := executor(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBookingDetails(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return bookings, nil
}

// filterPredicate always excludes soft-deleted rows.
func filterPredicate(filter domain.BookingFilter) squirrel.Sqlizer {
	eq := squirrel.Eq{"b.is_deleted": false}
	if filter.UserID != nil {
		eq["b.user_id"] = *filter.UserID
	}
	if filter.CarID != nil {
		eq["b.car_id"] = *filter.CarID
	}
	if filter.Status != nil {
		eq["b.status"] = string(*filter.Status)
	}
	return eq
}

func bookingDest(b *domain.Booking) []any {
	return []any{
		&b.ID,
		&b.BookingNumber,
		&b.CarID,
		&b.UserID,
		&b.PickupDate,
		&b.ReturnDate,
		&b.TotalPrice,
		&b.Status,
		&b.IsCancelled,
		&b.CancellationDate,
		&b.CancellationReason,
		&b.CompletedDate,
		&b.IsDeleted,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(bookingDest(&b)...)
	return b, err
}

func scanBookingDetails(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	dest := append(bookingDest(&b),
		&b.CarBrand,
		&b.CarModel,
		&b.CarYear,
		&b.DailyRate,
		&b.UserFullName,
		&b.UserEmail,
	)
	err := row.Scan(dest...)
	return b, err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
