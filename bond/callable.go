package bond

import (
	"fmt"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/valuation"
)

// CallableValue prices a bond the issuer may redeem at callPrice on callTime
// as the cheaper of holding to maturity and being called.
//
// The called leg receives coupons paid up to and including callTime and
// principal paid strictly before it. The min switches branch when the two legs
// cross, so the derivative jumps there.
func CallableValue[T ad.Scalar[T]](c *curve.Curve[T], cfs []Cashflow, callTime, callPrice float64) T {
	var hold, called T
	for _, cf := range cfs {
		df := c.DF(cf.Time)
		hold = hold.Add(df.Scale(cf.Amount()))
		if cf.Time <= callTime {
			called = called.Add(df.Scale(cf.Coupon))
		}
		if cf.Time < callTime {
			called = called.Add(df.Scale(cf.Principal))
		}
	}
	called = called.Add(c.DF(callTime).Scale(callPrice))
	return ad.Min(hold, called)
}

// Callable returns the custom valuation of a bullet bond callable once.
func Callable(cfs []Cashflow, callTime, callPrice float64) (valuation.Single, error) {
	amounts, times := Stream(cfs)
	if err := valuation.CheckStream(amounts, times); err != nil {
		return valuation.Single{}, fmt.Errorf("bond.Callable: %w", err)
	}
	if callTime < 0 {
		return valuation.Single{}, fmt.Errorf("bond.Callable: call time %g: %w", callTime, valuation.ErrNegativeTime)
	}
	own := append([]Cashflow(nil), cfs...)
	return valuation.Custom(
		func(c *curve.Curve[ad.D1]) ad.D1 { return CallableValue(c, own, callTime, callPrice) },
		func(c *curve.Curve[ad.D2]) ad.D2 { return CallableValue(c, own, callTime, callPrice) },
	), nil
}
