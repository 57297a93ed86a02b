package bond

import (
	"time"

	"github.com/meenmo/keyrate/utils"
)

// CashflowCents mirrors the Bloomberg-style cashflow feed where coupon/principal
// are stored as integer minor units (e.g., cents for EUR).
type CashflowCents struct {
	Date           time.Time
	CouponCents    int64
	PrincipalCents int64
}

// ToCashflow converts a dated feed row to a cashflow timed from settlement.
func (c CashflowCents) ToCashflow(settlement time.Time, dc utils.DayCount) Cashflow {
	return Cashflow{
		Time:      utils.YearFraction(settlement, c.Date, dc),
		Coupon:    float64(c.CouponCents) / 100.0,
		Principal: float64(c.PrincipalCents) / 100.0,
	}
}

// ToCashflows converts feed rows, skipping payments dated before settlement.
func ToCashflows(settlement time.Time, in []CashflowCents, dc utils.DayCount) []Cashflow {
	out := make([]Cashflow, 0, len(in))
	for _, cf := range in {
		if cf.Date.Before(settlement) {
			continue
		}
		out = append(out, cf.ToCashflow(settlement, dc))
	}
	return out
}
