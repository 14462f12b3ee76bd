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

type CarRepository interface {
	// GetByID returns the car even when it is soft-deleted; callers decide.
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
	// List returns the non-deleted cars.
	List(ctx context.Context) ([]domain.Car, error)
}

type PGCarRepository struct {
	db      DB
	timeout time.Duration
}

func NewCarRepository(db DB, queryTimeout time.Duration) CarRepository {
	return &PGCarRepository{db: db, timeout: queryTimeout}
}

var carColumns = []string{
	"id",
	"brand",
	"model",
	"year",
	"daily_rate",
	"weekly_rate",
	"monthly_rate",
	"is_available",
	"is_deleted",
	"created_at",
	"updated_at",
}

func (r *PGCarRepository) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	const op = "repository.CarRepo.GetByID"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := psql.Select(carColumns...).
		From("cars").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, buildErr(op, err)
	}

	c, err := scanCar(executor(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCarNotFound
		}
		return nil, mapError(op, err)
	}
	return &c, nil
}

func (r *PGCarRepository) List(ctx context.Context) ([]domain.Car, error) {
	const op = "repository.CarRepo.List"
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := psql.Select(carColumns...).
		From("cars").
		Where(squirrel.Eq{"is_deleted": false}).
		OrderBy("brand", "model", "id").
		ToSql()
	if err != nil {
		return nil, buildErr(op, err)
	}

	rows, err := executor(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	cars := make([]domain.Car, 0)
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		cars = append(cars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return cars, nil
}

func scanCar(row pgx.Row) (domain.Car, error) {
	var (
		c               domain.Car
		weekly, monthly decimal.NullDecimal
	)
	if err := row.Scan(
		&c.ID,
		&c.Brand,
		&c.Model,
		&c.Year,
		&c.DailyRate,
		&weekly,
		&monthly,
		&c.IsAvailable,
		&c.IsDeleted,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return domain.Car{}, err
	}
	if weekly.Valid {
		c.WeeklyRate = &weekly.Decimal
	}
	if monthly.Valid {
		c.MonthlyRate = &monthly.Decimal
	}
	return c, nil
}

var _ CarRepository = (*PGCarRepository)(nil)
