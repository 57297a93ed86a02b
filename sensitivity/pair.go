package sensitivity

import (
	"fmt"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/valuation"
)

// PairResult partitions one pass over [base rates; credit rates].
// The Hessian blocks are nil for first-order results; Cross[i][j] is
// ∂²V/∂base_i∂credit_j.
type PairResult struct {
	Value          float64
	Tenors         []float64
	BaseGradient   []float64
	CreditGradient []float64
	BaseHessian    [][]float64
	CreditHessian  [][]float64
	CrossHessian   [][]float64
}

// BaseDurations returns key-rate durations against the base curve.
func (r PairResult) BaseDurations() ([]float64, error) {
	return relative(r.Value, r.BaseGradient, -1)
}

// CreditDurations returns key-rate durations against the credit curve.
func (r PairResult) CreditDurations() ([]float64, error) {
	return relative(r.Value, r.CreditGradient, -1)
}

// IR01 returns the per-tenor value change for a basis point on the base curve.
func (r PairResult) IR01() []float64 { return dv01(r.BaseGradient) }

// CS01 returns the per-tenor value change for a basis point on the credit curve.
func (r PairResult) CS01() []float64 { return dv01(r.CreditGradient) }

// Convexities returns the base, credit and cross Hessian blocks divided by value.
func (r PairResult) Convexities() (base, credit, cross [][]float64, err error) {
	if base, err = relativeMatrix(r.Value, r.BaseHessian); err != nil {
		return nil, nil, nil, err
	}
	if credit, err = relativeMatrix(r.Value, r.CreditHessian); err != nil {
		return nil, nil, nil, err
	}
	if cross, err = relativeMatrix(r.Value, r.CrossHessian); err != nil {
		return nil, nil, nil, err
	}
	return base, credit, cross, nil
}

func checkPair(base, credit curve.RateCurve) error {
	if base.Len() == 0 {
		return curve.ErrEmptyCurve
	}
	if !base.SameTenors(credit) {
		return fmt.Errorf("%w: %v vs %v", ErrTenorMismatch, base.Tenors(), credit.Tenors())
	}
	return nil
}

// PairGradient differentiates a two-curve valuation with respect to both rate
// vectors in one first-order pass.
func PairGradient(base, credit curve.RateCurve, v valuation.Pair, opts ...Option) (PairResult, error) {
	o := apply(opts)
	if err := checkPair(base, credit); err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairGradient: %w", err)
	}
	f, err := v.First()
	if err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairGradient: %w", err)
	}

	n := base.Len()
	seeds := ad.Seed(append(base.Rates(), credit.Rates()...))
	bc, err := curve.Rebuild(base, seeds[:n])
	if err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairGradient: %w", err)
	}
	cc, err := curve.Rebuild(credit, seeds[n:])
	if err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairGradient: %w", err)
	}

	y, err := pass(o, "PairGradient", "first", 2*n, func() ad.D1 { return f(bc, cc) })
	if err != nil {
		return PairResult{}, err
	}
	value, grad := ad.GradientOf(y, 2*n)
	return PairResult{
		Value:          value,
		Tenors:         base.Tenors(),
		BaseGradient:   grad[:n:n],
		CreditGradient: grad[n:],
	}, nil
}

// PairHessian is PairGradient at second order. The full 2n×2n Hessian is
// computed and split into base, credit and cross blocks.
func PairHessian(base, credit curve.RateCurve, v valuation.Pair, opts ...Option) (PairResult, error) {
	o := apply(opts)
	if err := checkPair(base, credit); err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairHessian: %w", err)
	}
	f, err := v.Second()
	if err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairHessian: %w", err)
	}

	n := base.Len()
	seeds := ad.SeedSecond(append(base.Rates(), credit.Rates()...))
	bc, err := curve.Rebuild(base, seeds[:n])
	if err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairHessian: %w", err)
	}
	cc, err := curve.Rebuild(credit, seeds[n:])
	if err != nil {
		return PairResult{}, fmt.Errorf("sensitivity.PairHessian: %w", err)
	}

	y, err := pass(o, "PairHessian", "second", 2*n, func() ad.D2 { return f(bc, cc) })
	if err != nil {
		return PairResult{}, err
	}
	value, grad, hess := ad.HessianOf(y, 2*n)
	return PairResult{
		Value:          value,
		Tenors:         base.Tenors(),
		BaseGradient:   grad[:n:n],
		CreditGradient: grad[n:],
		BaseHessian:    block(hess, 0, n, 0, n),
		CreditHessian:  block(hess, n, 2*n, n, 2*n),
		CrossHessian:   block(hess, 0, n, n, 2*n),
	}, nil
}
