package sensitivity

import (
	"fmt"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/valuation"
)

// Result holds the value of a valuation and its partials with respect to each
// curve rate. Hessian is nil for first-order results.
type Result struct {
	Value    float64
	Tenors   []float64
	Gradient []float64
	Hessian  [][]float64
}

// KeyRateDurations returns -∂V/∂r_i / V.
func (r Result) KeyRateDurations() ([]float64, error) {
	return relative(r.Value, r.Gradient, -1)
}

// KeyRateDV01 returns -∂V/∂r_i / 10000: the value change per basis point.
func (r Result) KeyRateDV01() []float64 {
	return dv01(r.Gradient)
}

// KeyRateConvexities returns ∂²V/∂r_i∂r_j / V.
func (r Result) KeyRateConvexities() ([][]float64, error) {
	return relativeMatrix(r.Value, r.Hessian)
}

// Gradient returns the value and gradient of v on rc in one first-order pass.
func Gradient(rc curve.RateCurve, v valuation.Single, opts ...Option) (Result, error) {
	o := apply(opts)
	f, err := v.First()
	if err != nil {
		return Result{}, fmt.Errorf("sensitivity.Gradient: %w", err)
	}
	n := rc.Len()
	c, err := curve.Rebuild(rc, ad.Seed(rc.Rates()))
	if err != nil {
		return Result{}, fmt.Errorf("sensitivity.Gradient: %w", err)
	}

	y, err := pass(o, "Gradient", "first", n, func() ad.D1 { return f(c) })
	if err != nil {
		return Result{}, err
	}
	value, grad := ad.GradientOf(y, n)
	return Result{Value: value, Tenors: rc.Tenors(), Gradient: grad}, nil
}

// Hessian returns value, gradient and Hessian of v on rc in one nested pass.
func Hessian(rc curve.RateCurve, v valuation.Single, opts ...Option) (Result, error) {
	o := apply(opts)
	f, err := v.Second()
	if err != nil {
		return Result{}, fmt.Errorf("sensitivity.Hessian: %w", err)
	}
	n := rc.Len()
	c, err := curve.Rebuild(rc, ad.SeedSecond(rc.Rates()))
	if err != nil {
		return Result{}, fmt.Errorf("sensitivity.Hessian: %w", err)
	}

	y, err := pass(o, "Hessian", "second", n, func() ad.D2 { return f(c) })
	if err != nil {
		return Result{}, err
	}
	value, grad, hess := ad.HessianOf(y, n)
	return Result{Value: value, Tenors: rc.Tenors(), Gradient: grad, Hessian: hess}, nil
}
