package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Car is owned by the catalog; the booking engine only reads it.
type Car struct {
	ID          int64
	Brand       string
	Model       string
	Year        int
	DailyRate   decimal.Decimal
	WeeklyRate  *decimal.Decimal
	MonthlyRate *decimal.Decimal
	IsAvailable bool
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rates returns the pricing view of the car.
func (c *Car) Rates() Rates {
	return Rates{Daily: c.DailyRate, Weekly: c.WeeklyRate, Monthly: c.MonthlyRate}
}

type Rates struct {
	Daily   decimal.Decimal
	Weekly  *decimal.Decimal
	Monthly *decimal.Decimal
}
