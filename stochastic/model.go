package stochastic

import (
	"fmt"
	"math"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
)

// Model is a discretised Ho-Lee short rate:
//
//	r_k = θ_k + σ √dt W_k,  W_k = z_1 + ... + z_k,  W_0 = 0
//
// with r_k the rate over [k·dt, (k+1)·dt). The drift θ is fitted so that the
// expected pathwise discount factor to every grid point equals the curve's.
type Model[T ad.Scalar[T]] struct {
	dt    float64
	sigma float64
	theta []T
}

// Drift returns a copy of the fitted drift.
func (m *Model[T]) Drift() []T {
	return append([]T(nil), m.theta...)
}

// Calibrate fits the drift to c one step at a time.
//
// Step j solves exp(-dt (θ_0 + ... + θ_{j-1}) + v_j/2) = DF(t_j) for θ_{j-1}
// by Newton. The Newton slope comes from ad.Derivative one nesting level above
// T, so any curve tangents T carries pass through the solve. At least two
// Newton steps are always taken: the first carries first-order tangents into
// θ, the second completes the second-order ones.
func Calibrate[T ad.Scalar[T]](c *curve.Curve[T], cfg Config) (*Model[T], error) {
	steps, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	dt, sigma := cfg.TimeStep, cfg.Volatility
	tol, maxIter := cfg.tolerance(), cfg.maxIterations()

	theta := make([]T, steps)
	var cum T // θ_0 + ... + θ_{j-2}
	var squares float64
	guess := 0.0
	for j := 1; j <= steps; j++ {
		// v_j = σ² dt³ Σ_{i<j} i²
		squares += float64((j - 1) * (j - 1))
		half := 0.5 * sigma * sigma * dt * dt * dt * squares
		df := c.DF(float64(j) * dt)

		residual := func(th ad.Dual[T]) ad.Dual[T] {
			return ad.Constant(cum).Add(th).Scale(-dt).Shift(half).Exp().Sub(ad.Constant(df))
		}

		th := df.Lift(guess)
		converged := false
		for it := 0; it < maxIter; it++ {
			f, slope := ad.Derivative(residual, th)
			step := f.Div(slope)
			th = th.Sub(step)
			if it > 0 && math.Abs(step.Value()) <= tol {
				converged = true
				break
			}
		}
		if !converged {
			return nil, fmt.Errorf("%w: step %d after %d iterations", ErrNoConvergence, j, maxIter)
		}
		theta[j-1] = th
		cum = cum.Add(th)
		guess = th.Value()
	}
	return &Model[T]{dt: dt, sigma: sigma, theta: theta}, nil
}

// Path builds the short rates and discount factors of one scenario.
func (m *Model[T]) Path(z []float64) *Path[T] {
	n := len(m.theta)
	rates := make([]T, n)
	discount := make([]T, n+1)
	discount[0] = m.theta[0].Lift(1)

	vol := m.sigma * math.Sqrt(m.dt)
	var w float64
	var integral T
	for k := 0; k < n; k++ {
		if k > 0 {
			w += z[k-1]
		}
		rates[k] = m.theta[k].Shift(vol * w)
		integral = integral.Add(rates[k])
		discount[k+1] = integral.Scale(-m.dt).Exp()
	}
	return &Path[T]{dt: m.dt, rates: rates, discount: discount}
}

// Simulate builds every scenario's path.
func Simulate[T ad.Scalar[T]](m *Model[T], s *Shocks) []*Path[T] {
	out := make([]*Path[T], s.Scenarios())
	for i := range out {
		out[i] = m.Path(s.z[i])
	}
	return out
}

// Path is one simulated scenario.
type Path[T ad.Scalar[T]] struct {
	dt       float64
	rates    []T
	discount []T
}

// Steps returns the number of short-rate steps.
func (p *Path[T]) Steps() int { return len(p.rates) }

// TimeStep returns the grid spacing.
func (p *Path[T]) TimeStep() float64 { return p.dt }

// Rate returns the short rate over step k.
func (p *Path[T]) Rate(k int) T { return p.rates[k] }

// Discount returns the pathwise discount factor to grid point j.
func (p *Path[T]) Discount(j int) T { return p.discount[j] }

// DiscountAt returns the pathwise discount factor to time t, which must be a
// grid point within the horizon.
func (p *Path[T]) DiscountAt(t float64) T {
	j, ok := gridIndex(t, p.dt, len(p.rates))
	if !ok {
		ad.Raise("discount", t, ErrOffGrid)
	}
	return p.discount[j]
}

// RateAt returns the short rate of the step starting at t.
func (p *Path[T]) RateAt(t float64) T {
	j, ok := gridIndex(t, p.dt, len(p.rates))
	if !ok || j == len(p.rates) {
		ad.Raise("rate", t, ErrOffGrid)
	}
	return p.rates[j]
}
