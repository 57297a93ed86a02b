package bond

import (
	"fmt"
	"math"
)

// Fixed returns the cashflows of a fixed-coupon bullet bond.
//
// couponRate is a decimal annual rate paid frequency times a year; coupon
// dates roll backward from maturity (years from today) so the final period is
// regular and any stub sits at the front. Every coupon is a full coupon.
func Fixed(face, couponRate float64, frequency int, maturity float64) ([]Cashflow, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("bond.Fixed: frequency must be positive")
	}
	if maturity <= 0 {
		return nil, fmt.Errorf("bond.Fixed: maturity must be positive")
	}

	times := couponTimes(frequency, maturity)
	coupon := face * couponRate / float64(frequency)
	out := make([]Cashflow, len(times))
	for i, t := range times {
		out[i] = Cashflow{Time: t, Coupon: coupon}
	}
	out[len(out)-1].Principal = face
	return out, nil
}

// couponTimes rolls back from maturity in steps of 1/frequency and returns
// the positive payment times in increasing order.
func couponTimes(frequency int, maturity float64) []float64 {
	step := 1.0 / float64(frequency)
	// Guard against maturity*frequency landing just above an integer.
	n := int(math.Ceil(maturity*float64(frequency) - 1e-9))
	times := make([]float64, 0, n)
	for k := n - 1; k >= 0; k-- {
		t := maturity - float64(k)*step
		if t > 1e-12 {
			times = append(times, t)
		}
	}
	return times
}
