// Package ad implements forward-mode automatic differentiation with dual numbers.
//
// Valuation code is written once against the Scalar constraint and runs unchanged
// on plain numbers (Real), first-order duals (D1) and nested second-order duals (D2).
// Seeding n variables and evaluating once yields the exact gradient (D1), or the
// gradient and the full Hessian (D2), of the evaluated expression.
package ad

import "math"

// Scalar is the arithmetic every differentiable number supports.
//
// Comparisons go through Value: branches pick a side by the primal value and
// carry that side's derivative.
type Scalar[T any] interface {
	// Value returns the primal value.
	Value() float64
	// Lift returns the constant c as a number of the same kind (zero tangent).
	Lift(c float64) T

	Add(y T) T
	Sub(y T) T
	Mul(y T) T
	Div(y T) T
	Neg() T
	// Scale multiplies by a constant.
	Scale(c float64) T
	// Shift adds a constant.
	Shift(c float64) T

	Exp() T
	Log() T
	Sqrt() T
	// Pow raises to a constant power.
	Pow(p float64) T
}

// Real is a float64 that satisfies Scalar.
type Real float64

var _ Scalar[Real] = Real(0)

func (x Real) Value() float64       { return float64(x) }
func (Real) Lift(c float64) Real    { return Real(c) }
func (x Real) Add(y Real) Real      { return x + y }
func (x Real) Sub(y Real) Real      { return x - y }
func (x Real) Mul(y Real) Real      { return x * y }
func (x Real) Neg() Real            { return -x }
func (x Real) Scale(c float64) Real { return x * Real(c) }
func (x Real) Shift(c float64) Real { return x + Real(c) }
func (x Real) Exp() Real            { return Real(math.Exp(float64(x))) }

func (x Real) Div(y Real) Real {
	if y == 0 {
		raise("div", float64(x), ErrDivisionByZero)
	}
	return x / y
}

func (x Real) Log() Real {
	if x <= 0 {
		raise("log", float64(x), ErrDomain)
	}
	return Real(math.Log(float64(x)))
}

func (x Real) Sqrt() Real {
	if x < 0 {
		raise("sqrt", float64(x), ErrDomain)
	}
	return Real(math.Sqrt(float64(x)))
}

func (x Real) Pow(p float64) Real {
	switch {
	case x == 0 && p < 0:
		raise("pow", float64(x), ErrDivisionByZero)
	case x < 0 && p != math.Trunc(p):
		raise("pow", float64(x), ErrDomain)
	}
	return Real(math.Pow(float64(x), p))
}

// Reals converts plain numbers to Real.
func Reals(x []float64) []Real {
	out := make([]Real, len(x))
	for i, v := range x {
		out[i] = Real(v)
	}
	return out
}

// Values returns the primal values of xs.
func Values[T Scalar[T]](xs []T) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Value()
	}
	return out
}
