// Package curve builds discount curves from zero rates on a tenor grid.
//
// The builder is generic over ad.Scalar so that seeded dual numbers flow through
// interpolation and discounting untouched: building a Curve[ad.D1] from seeded
// rates gives discount factors whose tangents are the key-rate partials.
package curve

import (
	"errors"
	"fmt"
	"slices"

	"github.com/meenmo/keyrate/ad"
)

var (
	ErrEmptyCurve     = errors.New("curve: at least one tenor is required")
	ErrLengthMismatch = errors.New("curve: rates and tenors differ in length")
	ErrTenorOrder     = errors.New("curve: tenors must be positive and strictly increasing")
	ErrUnknownMethod  = errors.New("curve: unknown interpolation method")
)

// RateCurve is the immutable description of a zero curve: one rate per tenor,
// an interpolation method and a compounding convention.
type RateCurve struct {
	rates       []float64
	tenors      []float64
	method      Method
	compounding Compounding
}

// New validates and copies its inputs. Rates are decimals (0.03 for 3%), tenors
// are in years.
func New(rates, tenors []float64, method Method, comp Compounding) (RateCurve, error) {
	if err := validate(len(rates), tenors, method); err != nil {
		return RateCurve{}, err
	}
	return RateCurve{
		rates:       slices.Clone(rates),
		tenors:      slices.Clone(tenors),
		method:      normalizeMethod(method),
		compounding: comp,
	}, nil
}

// Rates returns a copy of the zero rates.
func (rc RateCurve) Rates() []float64 { return slices.Clone(rc.rates) }

// Tenors returns a copy of the tenor grid.
func (rc RateCurve) Tenors() []float64 { return slices.Clone(rc.tenors) }

func (rc RateCurve) Method() Method { return rc.method }

func (rc RateCurve) Compounding() Compounding { return rc.compounding }

// Len returns the number of rate parameters.
func (rc RateCurve) Len() int { return len(rc.rates) }

// WithRates returns a curve on the same grid with different rates.
func (rc RateCurve) WithRates(rates []float64) (RateCurve, error) {
	return New(rates, rc.tenors, rc.method, rc.compounding)
}

// SameTenors reports whether both curves share one tenor grid.
func (rc RateCurve) SameTenors(other RateCurve) bool {
	return slices.Equal(rc.tenors, other.tenors)
}

// Curve is a built discount curve over numbers of type T.
type Curve[T ad.Scalar[T]] struct {
	tenors []float64
	rates  []T
	comp   Compounding
	zero   func(t float64) T
}

// Build interpolates rates on tenors. It never modifies its arguments.
func Build[T ad.Scalar[T]](rates []T, tenors []float64, method Method, comp Compounding) (*Curve[T], error) {
	if err := validate(len(rates), tenors, method); err != nil {
		return nil, err
	}
	c := &Curve[T]{
		tenors: slices.Clone(tenors),
		rates:  slices.Clone(rates),
		comp:   comp,
	}
	c.zero = interpolator(normalizeMethod(method), c.tenors, c.rates)
	return c, nil
}

// Rebuild builds rc's grid, method and compounding over replacement rates,
// typically the seeded variables of an AD pass.
func Rebuild[T ad.Scalar[T]](rc RateCurve, rates []T) (*Curve[T], error) {
	return Build(rates, rc.tenors, rc.method, rc.compounding)
}

// Lift builds rc with its rates as constants of type T.
func Lift[T ad.Scalar[T]](rc RateCurve) *Curve[T] {
	var zero T
	rates := make([]T, len(rc.rates))
	for i, r := range rc.rates {
		rates[i] = zero.Lift(r)
	}
	c, err := Rebuild(rc, rates)
	if err != nil {
		// rc was validated by New.
		panic(fmt.Sprintf("curve.Lift: %v", err))
	}
	return c
}

// Zero returns the interpolated zero rate at t, flat beyond the grid.
func (c *Curve[T]) Zero(t float64) T {
	return c.zero(t)
}

// DF returns the discount factor to time t (years). DF is 1 for t <= 0.
func (c *Curve[T]) DF(t float64) T {
	r := c.zero(t)
	if t <= 0 {
		return r.Lift(1)
	}
	m := c.comp.periods()
	if m < 0 {
		return r.Scale(-t).Exp()
	}
	fm := float64(m)
	return r.Scale(1 / fm).Shift(1).Pow(-fm * t)
}

// Forward returns the simply compounded forward rate between t1 and t2.
func (c *Curve[T]) Forward(t1, t2 float64) T {
	if t2 <= t1 {
		ad.Raise("forward", t2-t1, ErrTenorOrder)
	}
	return c.DF(t1).Div(c.DF(t2)).Shift(-1).Scale(1 / (t2 - t1))
}

// Len returns the number of rate parameters.
func (c *Curve[T]) Len() int { return len(c.rates) }

// Tenors returns a copy of the tenor grid.
func (c *Curve[T]) Tenors() []float64 { return slices.Clone(c.tenors) }

// Rates returns a copy of the rate parameters.
func (c *Curve[T]) Rates() []T { return slices.Clone(c.rates) }

func validate(n int, tenors []float64, method Method) error {
	if len(tenors) == 0 {
		return ErrEmptyCurve
	}
	if n != len(tenors) {
		return fmt.Errorf("%w: %d rates, %d tenors", ErrLengthMismatch, n, len(tenors))
	}
	prev := 0.0
	for i, t := range tenors {
		if t <= prev {
			return fmt.Errorf("%w: tenor[%d] = %g", ErrTenorOrder, i, t)
		}
		prev = t
	}
	if !slices.Contains(Methods, normalizeMethod(method)) {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return nil
}

func normalizeMethod(m Method) Method {
	if m == "" {
		return Linear
	}
	return m
}
