package stochastic

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/valuation"
)

// Option configures a Monte Carlo valuation.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger for draw and evaluation debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewValuation draws the shocks once and returns a valuation that, on every
// call, fits the model to the curve it is given, replays the same shocks and
// averages the payoff. second may be nil when only gradients are needed.
func NewValuation(ctx context.Context, cfg Config, rng *RNG, first Payoff[ad.D1], second Payoff[ad.D2], opts ...Option) (valuation.Single, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if first == nil {
		return valuation.Single{}, fmt.Errorf("stochastic.NewValuation: %w", valuation.ErrNoValuation)
	}

	start := time.Now()
	shocks, err := Draw(ctx, cfg, rng)
	if err != nil {
		return valuation.Single{}, fmt.Errorf("stochastic.NewValuation: %w", err)
	}
	o.logger.Debug("drew shocks",
		zap.Int("scenarios", shocks.Scenarios()),
		zap.Int("steps", shocks.Steps()),
		zap.Uint64("seed", rng.Seed()),
		zap.Duration("elapsed", time.Since(start)))

	f1 := func(c *curve.Curve[ad.D1]) ad.D1 { return Expectation(c, cfg, shocks, first) }
	if second == nil {
		return valuation.Custom(f1, nil), nil
	}
	f2 := func(c *curve.Curve[ad.D2]) ad.D2 { return Expectation(c, cfg, shocks, second) }
	return valuation.Custom(f1, f2), nil
}

// FixedCashflows is NewValuation for a fixed cashflow stream, the risk-neutral
// counterpart of valuation.Standard.
func FixedCashflows(ctx context.Context, cfg Config, rng *RNG, cashflows, times []float64, opts ...Option) (valuation.Single, error) {
	if err := valuation.CheckStream(cashflows, times); err != nil {
		return valuation.Single{}, fmt.Errorf("stochastic.FixedCashflows: %w", err)
	}
	steps, err := cfg.Validate()
	if err != nil {
		return valuation.Single{}, fmt.Errorf("stochastic.FixedCashflows: %w", err)
	}
	for i, t := range times {
		if _, ok := gridIndex(t, cfg.TimeStep, steps); !ok {
			return valuation.Single{}, fmt.Errorf("stochastic.FixedCashflows: times[%d] = %g: %w", i, t, ErrOffGrid)
		}
	}
	cfs := append([]float64(nil), cashflows...)
	ts := append([]float64(nil), times...)
	return NewValuation(ctx, cfg, rng, CashflowPayoff[ad.D1](cfs, ts), CashflowPayoff[ad.D2](cfs, ts), opts...)
}

// Expectation fits the model to c and averages payoff over the shocks.
// Scenario values are summed in index order whatever the worker count, so
// the result is reproducible bit for bit. Failures are raised, as the
// caller is itself a valuation function.
func Expectation[T ad.Scalar[T]](c *curve.Curve[T], cfg Config, shocks *Shocks, payoff Payoff[T]) T {
	m, err := Calibrate(c, cfg)
	if err != nil {
		ad.Raise("calibrate", cfg.TimeStep, err)
	}

	values := make([]T, shocks.Scenarios())
	eval := func(i int) { values[i] = payoff(m.Path(shocks.z[i])) }

	if workers := cfg.workers(); workers == 1 {
		for i := range values {
			eval(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i := range values {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = &workerPanic{value: r}
					}
				}()
				eval(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Re-raise on the caller's goroutine, where ad.Try can see it.
			panic(err.(*workerPanic).value)
		}
	}

	var sum T
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(values)))
}

type workerPanic struct {
	value any
}

func (w *workerPanic) Error() string {
	return fmt.Sprintf("stochastic: path evaluation panicked: %v", w.value)
}
