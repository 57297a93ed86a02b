package bond

import (
	"fmt"

	"github.com/meenmo/keyrate/valuation"
)

// Cashflow is a single cash payment of a bond.
//
// Time is in years from the valuation date; amounts are in currency units, not
// price-per-100.
type Cashflow struct {
	Time      float64
	Coupon    float64
	Principal float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// Stream splits cashflows into the amount and time vectors of a standard
// valuation.
func Stream(cfs []Cashflow) (amounts, times []float64) {
	amounts = make([]float64, len(cfs))
	times = make([]float64, len(cfs))
	for i, cf := range cfs {
		amounts[i] = cf.Amount()
		times[i] = cf.Time
	}
	return amounts, times
}

// Standard returns the plain discounted-cashflow valuation of cfs.
func Standard(cfs []Cashflow) (valuation.Single, error) {
	amounts, times := Stream(cfs)
	v, err := valuation.Standard(amounts, times)
	if err != nil {
		return valuation.Single{}, fmt.Errorf("bond.Standard: %w", err)
	}
	return v, nil
}
