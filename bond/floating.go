package bond

import (
	"fmt"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/valuation"
)

// FloatingValue prices a floating-rate note whose coupons fix at the curve's
// own simple forwards plus spread. The first period starts today.
//
// With zero spread the coupons telescope: the note prices at face and its
// key-rate sensitivities vanish.
func FloatingValue[T ad.Scalar[T]](c *curve.Curve[T], face, spread float64, frequency int, maturity float64) T {
	times := couponTimes(frequency, maturity)
	var pv T
	start := 0.0
	for _, end := range times {
		accrual := end - start
		coupon := c.Forward(start, end).Shift(spread).Scale(face * accrual)
		pv = pv.Add(coupon.Mul(c.DF(end)))
		start = end
	}
	return pv.Add(c.DF(maturity).Scale(face))
}

// FloatingRate returns the custom valuation of a floating-rate note.
func FloatingRate(face, spread float64, frequency int, maturity float64) (valuation.Single, error) {
	if frequency <= 0 {
		return valuation.Single{}, fmt.Errorf("bond.FloatingRate: frequency must be positive")
	}
	if maturity <= 0 {
		return valuation.Single{}, fmt.Errorf("bond.FloatingRate: maturity must be positive")
	}
	return valuation.Custom(
		func(c *curve.Curve[ad.D1]) ad.D1 { return FloatingValue(c, face, spread, frequency, maturity) },
		func(c *curve.Curve[ad.D2]) ad.D2 { return FloatingValue(c, face, spread, frequency, maturity) },
	), nil
}
