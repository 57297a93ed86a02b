// Package sensitivity differentiates valuations with respect to curve rates.
//
// Each call seeds the rate vector once, rebuilds the curve over the seeded
// numbers and evaluates the valuation a single time: first-order duals give
// the gradient, nested duals give gradient and Hessian together. No rate is
// ever bumped.
package sensitivity

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meenmo/keyrate/ad"
)

var (
	// ErrTenorMismatch reports base and credit curves on different grids.
	ErrTenorMismatch = errors.New("sensitivity: base and credit curves have different tenors")
	// ErrNoHessian reports a second-order normalisation of a first-order result.
	ErrNoHessian = errors.New("sensitivity: result carries no Hessian")
)

const basisPoint = 1e-4

// pass evaluates one AD pass, converting numeric panics into errors.
func pass[T any](o *options, name, order string, n int, eval func() T) (T, error) {
	start := time.Now()
	y, err := ad.Try(eval)
	o.logger.Debug("ad pass",
		zap.String("engine", name),
		zap.String("order", order),
		zap.Int("parameters", n),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return y, fmt.Errorf("sensitivity.%s: %w", name, err)
	}
	return y, nil
}

// relative divides every entry by value, failing on a zero value.
func relative(value float64, xs []float64, scale float64) ([]float64, error) {
	if value == 0 {
		return nil, fmt.Errorf("sensitivity: normalising by a zero value: %w", ad.ErrDivisionByZero)
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = scale * x / value
	}
	return out, nil
}

func relativeMatrix(value float64, m [][]float64) ([][]float64, error) {
	if m == nil {
		return nil, ErrNoHessian
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		r, err := relative(value, row, 1)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func dv01(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = -x * basisPoint
	}
	return out
}

// Sum adds every entry of xs.
func Sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// SumMatrix adds every entry of m.
func SumMatrix(m [][]float64) float64 {
	var s float64
	for _, row := range m {
		s += Sum(row)
	}
	return s
}

// block copies m[r0:r1][c0:c1].
func block(m [][]float64, r0, r1, c0, c1 int) [][]float64 {
	out := make([][]float64, r1-r0)
	for i := range out {
		out[i] = append([]float64(nil), m[r0+i][c0:c1]...)
	}
	return out
}
