// Package pricing computes the total price of a stay from a car's tiered rates.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Domenick1991/carrental/internal/domain"
)

const day = 24 * time.Hour

// Config holds the tier thresholds. Zero values fall back to 7 and 30 days.
type Config struct {
	WeekDays           int
	MonthDays          int
	RoundUpPartialDays bool
}

// Quote breaks a price down by tier.
type Quote struct {
	Days          int
	Months        int
	Weeks         int
	RemainderDays int
	Total         decimal.Decimal
}

type Calculator struct {
	weekDays  int
	monthDays int
	roundUp   bool
}

func NewCalculator(cfg Config) *Calculator {
	c := &Calculator{weekDays: cfg.WeekDays, monthDays: cfg.MonthDays, roundUp: cfg.RoundUpPartialDays}
	if c.weekDays <= 0 {
		c.weekDays = 7
	}
	if c.monthDays <= 0 {
		c.monthDays = 30
	}
	return c
}

// Days returns the billable days between pickup and return.
// A non-positive interval is zero days.
func (c *Calculator) Days(pickup, ret time.Time) int {
	d := ret.Sub(pickup)
	if d <= 0 {
		return 0
	}
	days := int(d / day)
	if c.roundUp && d%day != 0 {
		days++
	}
	return days
}

// Quote applies the first matching tier: monthly, then weekly, then daily.
func (c *Calculator) Quote(rates domain.Rates, pickup, ret time.Time) Quote {
	q := Quote{Days: c.Days(pickup, ret)}

	switch {
	case q.Days >= c.monthDays && rates.Monthly != nil:
		q.Months = q.Days / c.monthDays
		q.RemainderDays = q.Days % c.monthDays
		q.Total = rates.Monthly.Mul(decimal.NewFromInt(int64(q.Months))).
			Add(rates.Daily.Mul(decimal.NewFromInt(int64(q.RemainderDays))))
	case q.Days >= c.weekDays && rates.Weekly != nil:
		q.Weeks = q.Days / c.weekDays
		q.RemainderDays = q.Days % c.weekDays
		q.Total = rates.Weekly.Mul(decimal.NewFromInt(int64(q.Weeks))).
			Add(rates.Daily.Mul(decimal.NewFromInt(int64(q.RemainderDays))))
	default:
		q.RemainderDays = q.Days
		q.Total = rates.Daily.Mul(decimal.NewFromInt(int64(q.Days)))
	}
	return q
}

// Total is Quote(...).Total.
func (c *Calculator) Total(rates domain.Rates, pickup, ret time.Time) decimal.Decimal {
	return c.Quote(rates, pickup, ret).Total
}
