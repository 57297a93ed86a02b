package task

import (
	"fmt"

	"github.com/meenmo/keyrate/bond"
	"github.com/meenmo/keyrate/config"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/utils"
	"github.com/meenmo/keyrate/valuation"
)

// buildCurve applies the configured conventions where the task names none.
func buildCurve(in CurveInput, cfg config.Config) (curve.RateCurve, error) {
	methodName := in.Method
	if methodName == "" {
		methodName = cfg.Curve.Method
	}
	method, err := curve.ParseMethod(methodName)
	if err != nil {
		return curve.RateCurve{}, err
	}
	compName := in.Compounding
	if compName == "" {
		compName = cfg.Curve.Compounding
	}
	comp, err := curve.ParseCompounding(compName)
	if err != nil {
		return curve.RateCurve{}, err
	}

	if len(in.Quotes) > 0 {
		if len(in.Rates) > 0 || len(in.Tenors) > 0 {
			return curve.RateCurve{}, fmt.Errorf("curve: give either quotes or rates/tenors, not both")
		}
		return curve.FromQuotes(in.Quotes, method, comp)
	}
	return curve.New(in.Rates, in.Tenors, method, comp)
}

// stream returns the fixed cashflows of a task.
func stream(in Input, cfg config.Config) ([]float64, []float64, error) {
	switch {
	case in.Bond != nil:
		if in.Bond.Type != "" && in.Bond.Type != "fixed" {
			return nil, nil, fmt.Errorf("bond type %q has no fixed cashflow stream", in.Bond.Type)
		}
		cfs, err := bond.Fixed(in.Bond.Face, in.Bond.Coupon, in.Bond.Frequency, in.Bond.Maturity)
		if err != nil {
			return nil, nil, err
		}
		amounts, times := bond.Stream(cfs)
		return amounts, times, nil
	case len(in.DatedCashflows) > 0:
		cfs, err := datedCashflows(in, cfg)
		if err != nil {
			return nil, nil, err
		}
		amounts, times := bond.Stream(cfs)
		return amounts, times, nil
	}
	return in.Cashflows, in.Times, nil
}

func datedCashflows(in Input, cfg config.Config) ([]bond.Cashflow, error) {
	settlement, err := utils.ParseDate(in.SettlementDate)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement_date: %w", err)
	}
	dcName := in.DayCount
	if dcName == "" {
		dcName = cfg.Curve.DayCount
	}
	dc, err := utils.ParseDayCount(dcName)
	if err != nil {
		return nil, err
	}

	feed := make([]bond.CashflowCents, 0, len(in.DatedCashflows))
	for _, cf := range in.DatedCashflows {
		d, err := utils.ParseDate(cf.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid cashflow date %s: %w", cf.Date, err)
		}
		feed = append(feed, bond.CashflowCents{Date: d, CouponCents: cf.Coupon, PrincipalCents: cf.Principal})
	}
	return bond.ToCashflows(settlement, feed, dc), nil
}

// single returns the one-curve valuation of a task.
func single(in Input, cfg config.Config) (valuation.Single, error) {
	if b := in.Bond; b != nil {
		switch b.Type {
		case "callable":
			cfs, err := bond.Fixed(b.Face, b.Coupon, b.Frequency, b.Maturity)
			if err != nil {
				return valuation.Single{}, err
			}
			return bond.Callable(cfs, b.CallTime, b.CallPrice)
		case "floating", "frn":
			return bond.FloatingRate(b.Face, b.Spread, b.Frequency, b.Maturity)
		}
	}
	amounts, times, err := stream(in, cfg)
	if err != nil {
		return valuation.Single{}, err
	}
	return valuation.Standard(amounts, times)
}

// pair returns the default two-curve valuation of a task's cashflows.
func pair(in Input, cfg config.Config) (valuation.Pair, error) {
	amounts, times, err := stream(in, cfg)
	if err != nil {
		return valuation.Pair{}, err
	}
	return valuation.StandardPair(amounts, times)
}
