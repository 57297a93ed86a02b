package stochastic

import "github.com/meenmo/keyrate/ad"

// Payoff values one scenario, discounted to today.
type Payoff[T ad.Scalar[T]] func(p *Path[T]) T

// CashflowPayoff discounts fixed cashflows along the path. Times must be grid
// points.
func CashflowPayoff[T ad.Scalar[T]](cashflows, times []float64) Payoff[T] {
	return func(p *Path[T]) T {
		var pv T
		for i, cf := range cashflows {
			pv = pv.Add(p.DiscountAt(times[i]).Scale(cf))
		}
		return pv
	}
}

// CapPayoff pays notional·dt·max(r_k - strike, 0) at the end of every step.
func CapPayoff[T ad.Scalar[T]](strike, notional float64) Payoff[T] {
	return func(p *Path[T]) T {
		var pv T
		dt := p.TimeStep()
		for k := 0; k < p.Steps(); k++ {
			r := p.Rate(k)
			caplet := ad.Max(r.Shift(-strike), r.Lift(0))
			pv = pv.Add(caplet.Mul(p.Discount(k + 1)).Scale(notional * dt))
		}
		return pv
	}
}

// DigitalPayoff pays notional when the short rate fixing at fixing exceeds
// strike, undiscounted. The indicator is flat almost everywhere, so its
// pathwise derivative is zero even though the price moves with the curve.
func DigitalPayoff[T ad.Scalar[T]](strike, notional, fixing float64) Payoff[T] {
	return func(p *Path[T]) T {
		r := p.RateAt(fixing)
		if ad.Less(r.Lift(strike), r) {
			return r.Lift(notional)
		}
		return r.Lift(0)
	}
}
