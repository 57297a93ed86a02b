// Package valuation turns cashflow streams and caller-supplied pricing
// functions into the curve -> scalar functions the sensitivity engines
// differentiate.
//
// A valuation is written once as a generic function over ad.Scalar and handed
// over at the two orders the engines evaluate it at, for example
//
//	valuation.Custom(price[ad.D1], price[ad.D2])
//
// The function must be pure in its curve arguments: anything else it reads must
// be fixed for the duration of the call (an explicitly passed random source is
// fine), otherwise the computed derivatives are silently wrong.
package valuation

import (
	"errors"
	"fmt"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
)

var (
	// ErrDimensionMismatch reports cashflows and times of different lengths.
	ErrDimensionMismatch = errors.New("valuation: cashflows and times differ in length")
	// ErrNegativeTime reports a cashflow dated before the valuation time.
	ErrNegativeTime = errors.New("valuation: cashflow time is negative")
	// ErrNoSecondOrder reports a second-order request on a valuation that was
	// given without its second-order instantiation.
	ErrNoSecondOrder = errors.New("valuation: no second-order instantiation")
	// ErrNoValuation reports an empty valuation.
	ErrNoValuation = errors.New("valuation: no valuation function")
)

// Func values a single curve.
type Func[T ad.Scalar[T]] func(c *curve.Curve[T]) T

// PairFunc values a base (risk-free) and a credit curve together.
type PairFunc[T ad.Scalar[T]] func(base, credit *curve.Curve[T]) T

// Single is a one-curve valuation at first and second order.
type Single struct {
	first  Func[ad.D1]
	second Func[ad.D2]
	stream *stream
}

// stream keeps the cashflows behind a standard valuation.
type stream struct {
	cashflows []float64
	times     []float64
}

// Custom wraps caller-supplied instantiations of one valuation. second may be
// nil when only gradients are needed.
func Custom(first Func[ad.D1], second Func[ad.D2]) Single {
	return Single{first: first, second: second}
}

// Standard values Σ cashflows[i] × DF(times[i]).
func Standard(cashflows, times []float64) (Single, error) {
	if err := CheckStream(cashflows, times); err != nil {
		return Single{}, err
	}
	cfs, ts := clone(cashflows), clone(times)
	return Single{
		first:  func(c *curve.Curve[ad.D1]) ad.D1 { return PresentValue(c, cfs, ts) },
		second: func(c *curve.Curve[ad.D2]) ad.D2 { return PresentValue(c, cfs, ts) },
		stream: &stream{cashflows: cfs, times: ts},
	}, nil
}

// Stream returns the cashflows of a standard valuation (or a sum of standard
// valuations). ok is false for custom valuations.
func (s Single) Stream() (cashflows, times []float64, ok bool) {
	if s.stream == nil {
		return nil, nil, false
	}
	return clone(s.stream.cashflows), clone(s.stream.times), true
}

// First returns the first-order instantiation, or an error if there is none.
func (s Single) First() (Func[ad.D1], error) {
	if s.first == nil {
		return nil, ErrNoValuation
	}
	return s.first, nil
}

// Second returns the second-order instantiation, or an error if there is none.
func (s Single) Second() (Func[ad.D2], error) {
	if s.second == nil {
		if s.first == nil {
			return nil, ErrNoValuation
		}
		return nil, ErrNoSecondOrder
	}
	return s.second, nil
}

// Add returns the valuation of both positions held together. The result has a
// second order only if both operands do.
func (s Single) Add(o Single) Single {
	out := Single{}
	if s.first != nil && o.first != nil {
		f, g := s.first, o.first
		out.first = func(c *curve.Curve[ad.D1]) ad.D1 { return f(c).Add(g(c)) }
	}
	if s.second != nil && o.second != nil {
		f, g := s.second, o.second
		out.second = func(c *curve.Curve[ad.D2]) ad.D2 { return f(c).Add(g(c)) }
	}
	if s.stream != nil && o.stream != nil {
		out.stream = &stream{
			cashflows: append(clone(s.stream.cashflows), o.stream.cashflows...),
			times:     append(clone(s.stream.times), o.stream.times...),
		}
	}
	return out
}

// Pair is a two-curve valuation at first and second order.
type Pair struct {
	first  PairFunc[ad.D1]
	second PairFunc[ad.D2]
}

// CustomPair wraps caller-supplied instantiations of a two-curve valuation.
func CustomPair(first PairFunc[ad.D1], second PairFunc[ad.D2]) Pair {
	return Pair{first: first, second: second}
}

// StandardPair values Σ cashflows[i] × base(times[i]) × credit(times[i]).
// Multiplying discount factors is adding continuously compounded rates, so
// IR01 and CS01 of the same stream agree only when both curves are
// curve.Continuous. Under periodic compounding they differ by the ratio of the
// two curves' (1 + r/m) factors.
func StandardPair(cashflows, times []float64) (Pair, error) {
	if err := CheckStream(cashflows, times); err != nil {
		return Pair{}, err
	}
	cfs, ts := clone(cashflows), clone(times)
	return Pair{
		first: func(b, c *curve.Curve[ad.D1]) ad.D1 {
			return PairPresentValue(b, c, cfs, ts)
		},
		second: func(b, c *curve.Curve[ad.D2]) ad.D2 {
			return PairPresentValue(b, c, cfs, ts)
		},
	}, nil
}

func (p Pair) First() (PairFunc[ad.D1], error) {
	if p.first == nil {
		return nil, ErrNoValuation
	}
	return p.first, nil
}

func (p Pair) Second() (PairFunc[ad.D2], error) {
	if p.second == nil {
		if p.first == nil {
			return nil, ErrNoValuation
		}
		return nil, ErrNoSecondOrder
	}
	return p.second, nil
}

// Add returns the two-curve valuation of both positions held together.
func (p Pair) Add(o Pair) Pair {
	out := Pair{}
	if p.first != nil && o.first != nil {
		f, g := p.first, o.first
		out.first = func(b, c *curve.Curve[ad.D1]) ad.D1 { return f(b, c).Add(g(b, c)) }
	}
	if p.second != nil && o.second != nil {
		f, g := p.second, o.second
		out.second = func(b, c *curve.Curve[ad.D2]) ad.D2 { return f(b, c).Add(g(b, c)) }
	}
	return out
}

// PresentValue discounts a cashflow stream on c.
func PresentValue[T ad.Scalar[T]](c *curve.Curve[T], cashflows, times []float64) T {
	var pv T
	for i, cf := range cashflows {
		pv = pv.Add(c.DF(times[i]).Scale(cf))
	}
	return pv
}

// PairPresentValue discounts a cashflow stream on the product of two curves.
func PairPresentValue[T ad.Scalar[T]](base, credit *curve.Curve[T], cashflows, times []float64) T {
	var pv T
	for i, cf := range cashflows {
		pv = pv.Add(base.DF(times[i]).Mul(credit.DF(times[i])).Scale(cf))
	}
	return pv
}

// CheckStream validates a cashflow stream before any valuation runs.
func CheckStream(cashflows, times []float64) error {
	if len(cashflows) != len(times) {
		return fmt.Errorf("%w: %d cashflows, %d times", ErrDimensionMismatch, len(cashflows), len(times))
	}
	for i, t := range times {
		if t < 0 {
			return fmt.Errorf("%w: times[%d] = %g", ErrNegativeTime, i, t)
		}
	}
	return nil
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}
