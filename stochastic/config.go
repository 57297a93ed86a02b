// Package stochastic values path-dependent payoffs by Monte Carlo under a
// Gaussian short-rate model fitted to a curve, in a form the sensitivity
// engines can differentiate.
//
// Shocks are drawn once per valuation and reused for every evaluation, so
// the AD gradient is the exact pathwise derivative of the Monte Carlo
// estimator. Payoffs that jump in the curve rates (digitals, barriers) get a
// biased derivative; nothing here detects that.
package stochastic

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

var (
	// ErrInvalidConfig reports an unusable simulation configuration.
	ErrInvalidConfig = errors.New("stochastic: invalid configuration")
	// ErrOffGrid reports a time that is not a simulation grid point.
	ErrOffGrid = errors.New("stochastic: time is not on the simulation grid")
	// ErrNoConvergence reports a drift fit that did not converge.
	ErrNoConvergence = errors.New("stochastic: drift calibration did not converge")
)

const gridTolerance = 1e-9

// Config sets up the simulation grid, the model and the drift solver.
type Config struct {
	// Scenarios is the number of simulated paths.
	Scenarios int
	// TimeStep is the grid spacing in years; Horizon must be a multiple of it.
	TimeStep float64
	Horizon  float64
	// Volatility is the absolute short-rate volatility (0.01 = 100bp a year).
	Volatility float64
	// Workers bounds the goroutines used to draw and evaluate paths. Zero
	// means GOMAXPROCS. Results do not depend on it.
	Workers int
	// Tolerance and MaxIterations control the per-step Newton drift fit.
	// Zero selects the defaults.
	Tolerance     float64
	MaxIterations int
}

const (
	defaultTolerance     = 1e-12
	defaultMaxIterations = 50
)

// Validate checks the configuration and returns the number of time steps.
func (c Config) Validate() (int, error) {
	switch {
	case c.Scenarios <= 0:
		return 0, fmt.Errorf("%w: scenarios must be positive, got %d", ErrInvalidConfig, c.Scenarios)
	case !(c.TimeStep > 0):
		return 0, fmt.Errorf("%w: time step must be positive, got %g", ErrInvalidConfig, c.TimeStep)
	case !(c.Horizon >= c.TimeStep):
		return 0, fmt.Errorf("%w: horizon %g shorter than one step", ErrInvalidConfig, c.Horizon)
	case c.Volatility < 0 || math.IsNaN(c.Volatility):
		return 0, fmt.Errorf("%w: volatility must be non-negative, got %g", ErrInvalidConfig, c.Volatility)
	case c.Workers < 0:
		return 0, fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	case c.Tolerance < 0 || c.MaxIterations < 0:
		return 0, fmt.Errorf("%w: negative solver settings", ErrInvalidConfig)
	}
	steps := math.Round(c.Horizon / c.TimeStep)
	if math.Abs(steps*c.TimeStep-c.Horizon) > gridTolerance*math.Max(1, c.Horizon) {
		return 0, fmt.Errorf("%w: horizon %g is not a multiple of time step %g", ErrInvalidConfig, c.Horizon, c.TimeStep)
	}
	return int(steps), nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) tolerance() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return defaultTolerance
}

func (c Config) maxIterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return defaultMaxIterations
}

// gridIndex returns j with j·dt = t, or false when t is off the grid or
// beyond the horizon.
func gridIndex(t, dt float64, steps int) (int, bool) {
	j := math.Round(t / dt)
	if math.Abs(j*dt-t) > gridTolerance*math.Max(1, t) || j < 0 || int(j) > steps {
		return 0, false
	}
	return int(j), true
}
