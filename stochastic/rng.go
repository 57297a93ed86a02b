package stochastic

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// RNG hands out one independent PCG stream per scenario. A scenario's draws
// depend only on the seed and its index, never on scheduling.
type RNG struct {
	seed uint64
}

func NewRNG(seed uint64) *RNG {
	return &RNG{seed: seed}
}

func (r *RNG) Seed() uint64 { return r.seed }

// Stream returns a fresh generator for scenario i.
func (r *RNG) Stream(i int) *rand.Rand {
	return rand.New(rand.NewPCG(r.seed, uint64(i)))
}

// Shocks are the standard normal increments of every scenario, fixed for the
// lifetime of a valuation.
type Shocks struct {
	dt    float64
	steps int
	z     [][]float64
}

// Scenarios returns the number of drawn scenarios.
func (s *Shocks) Scenarios() int { return len(s.z) }

// Steps returns the number of time steps per path.
func (s *Shocks) Steps() int { return s.steps }

// Scenario returns a copy of scenario i's increments.
func (s *Shocks) Scenario(i int) []float64 {
	return append([]float64(nil), s.z[i]...)
}

// Draw samples steps-1 increments per scenario: the first short rate is
// known today, each later one adds a Brownian increment.
func Draw(ctx context.Context, cfg Config, rng *RNG) (*Shocks, error) {
	steps, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil RNG", ErrInvalidConfig)
	}

	z := make([][]float64, cfg.Scenarios)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i := range z {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := rng.Stream(i)
			row := make([]float64, steps-1)
			for k := range row {
				row[k] = src.NormFloat64()
			}
			z[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stochastic.Draw: %w", err)
	}
	return &Shocks{dt: cfg.TimeStep, steps: steps, z: z}, nil
}
