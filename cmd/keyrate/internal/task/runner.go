package task

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/config"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/risk"
	"github.com/meenmo/keyrate/stochastic"
	"github.com/meenmo/keyrate/valuation"
)

// Runner executes tasks with one configuration and logger.
type Runner struct {
	cfg    config.Config
	logger *zap.Logger
}

func NewRunner(cfg config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Func is one subcommand's computation.
type Func func(ctx context.Context, in Input) (Output, error)

// RunAll runs every task, turning failures into error outputs. It reports
// whether any task failed.
func (r *Runner) RunAll(ctx context.Context, inputs []Input, run Func) ([]Output, bool) {
	hadError := false
	outputs := make([]Output, 0, len(inputs))
	for _, in := range inputs {
		start := time.Now()
		out, err := run(ctx, in)
		if err != nil {
			hadError = true
			r.logger.Warn("task failed", zap.String("task_id", in.TaskID), zap.Error(err))
			outputs = append(outputs, Output{TaskID: in.TaskID, Error: err.Error()})
			continue
		}
		r.logger.Debug("task done", zap.String("task_id", in.TaskID), zap.Duration("elapsed", time.Since(start)))
		out.TaskID = in.TaskID
		outputs = append(outputs, out)
	}
	return outputs, hadError
}

func (r *Runner) riskOpts() []risk.Option {
	return []risk.Option{risk.WithLogger(r.logger)}
}

// Duration computes measure (default modified) on the task's curve, or IR01
// and CS01 on its curve and credit_curve.
func (r *Runner) Duration(_ context.Context, in Input) (Output, error) {
	kind, dec, err := r.measure(in)
	if err != nil {
		return Output{}, err
	}
	base, err := buildCurve(in.Curve, r.cfg)
	if err != nil {
		return Output{}, err
	}

	var m risk.Measure
	if kind == risk.IR01 || kind == risk.CS01 {
		if in.CreditCurve == nil {
			return Output{}, fmt.Errorf("%s needs a credit_curve", kind)
		}
		credit, err := buildCurve(*in.CreditCurve, r.cfg)
		if err != nil {
			return Output{}, err
		}
		v, err := pair(in, r.cfg)
		if err != nil {
			return Output{}, err
		}
		r.checkCompounding(in.TaskID, base, credit)
		if m, err = risk.PairDuration(kind, dec, base, credit, v, r.riskOpts()...); err != nil {
			return Output{}, err
		}
	} else {
		v, err := single(in, r.cfg)
		if err != nil {
			return Output{}, err
		}
		if m, err = risk.Duration(kind, dec, base, v, r.riskOpts()...); err != nil {
			return Output{}, err
		}
	}
	return r.measureOutput(m), nil
}

// Convexity computes the parallel convexity or the key-rate matrix.
func (r *Runner) Convexity(_ context.Context, in Input) (Output, error) {
	dec, err := risk.ParseDecomposition(in.Decomposition)
	if err != nil {
		return Output{}, err
	}
	rc, err := buildCurve(in.Curve, r.cfg)
	if err != nil {
		return Output{}, err
	}
	v, err := single(in, r.cfg)
	if err != nil {
		return Output{}, err
	}
	c, err := risk.Convexity(dec, rc, v, r.riskOpts()...)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Measure:       "convexity",
		Decomposition: dec.String(),
		Value:         r.ptr(c.Value),
		Total:         r.ptr(c.Total),
		Tenors:        c.Tenors,
		Convexities:   r.roundMatrix(c.Matrix),
	}, nil
}

// Sensitivities reports value, durations and convexities, split into base,
// credit and cross blocks when a credit_curve is given.
func (r *Runner) Sensitivities(_ context.Context, in Input) (Output, error) {
	base, err := buildCurve(in.Curve, r.cfg)
	if err != nil {
		return Output{}, err
	}
	if in.CreditCurve == nil {
		v, err := single(in, r.cfg)
		if err != nil {
			return Output{}, err
		}
		rep, err := risk.Sensitivities(base, v, r.riskOpts()...)
		if err != nil {
			return Output{}, err
		}
		return Output{
			Measure:     "sensitivities",
			Value:       r.ptr(rep.Value),
			Tenors:      rep.Tenors,
			Durations:   r.roundAll(rep.Durations),
			Convexities: r.roundMatrix(rep.Convexities),
		}, nil
	}

	credit, err := buildCurve(*in.CreditCurve, r.cfg)
	if err != nil {
		return Output{}, err
	}
	v, err := pair(in, r.cfg)
	if err != nil {
		return Output{}, err
	}
	r.checkCompounding(in.TaskID, base, credit)
	rep, err := risk.PairSensitivities(base, credit, v, r.riskOpts()...)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Measure:           "sensitivities",
		Value:             r.ptr(rep.Value),
		Tenors:            rep.Tenors,
		BaseDurations:     r.roundAll(rep.BaseDurations),
		CreditDurations:   r.roundAll(rep.CreditDurations),
		BaseConvexities:   r.roundMatrix(rep.Convexities.Base),
		CreditConvexities: r.roundMatrix(rep.Convexities.Credit),
		CrossConvexities:  r.roundMatrix(rep.Convexities.Cross),
	}, nil
}

// MonteCarlo computes a duration measure of a simulated valuation: the
// task's fixed cashflows by default, or a cap or digital payoff.
func (r *Runner) MonteCarlo(ctx context.Context, in Input) (Output, error) {
	kind, dec, err := r.measure(in)
	if err != nil {
		return Output{}, err
	}
	rc, err := buildCurve(in.Curve, r.cfg)
	if err != nil {
		return Output{}, err
	}

	sim, seed := r.simulation(in.MonteCarlo)
	rng := stochastic.NewRNG(seed)
	opt := stochastic.WithLogger(r.logger)

	payoff := ""
	if in.MonteCarlo != nil {
		payoff = in.MonteCarlo.Payoff
	}
	var v valuation.Single
	switch payoff {
	case "", "cashflows":
		amounts, times, err := stream(in, r.cfg)
		if err != nil {
			return Output{}, err
		}
		v, err = stochastic.FixedCashflows(ctx, sim, rng, amounts, times, opt)
		if err != nil {
			return Output{}, err
		}
	case "cap":
		mc := in.MonteCarlo
		v, err = stochastic.NewValuation(ctx, sim, rng,
			stochastic.CapPayoff[ad.D1](mc.Strike, mc.Notional),
			stochastic.CapPayoff[ad.D2](mc.Strike, mc.Notional), opt)
	case "digital":
		mc := in.MonteCarlo
		r.logger.Warn("digital payoff: pathwise derivatives are zero", zap.String("task_id", in.TaskID))
		v, err = stochastic.NewValuation(ctx, sim, rng,
			stochastic.DigitalPayoff[ad.D1](mc.Strike, mc.Notional, mc.Fixing),
			stochastic.DigitalPayoff[ad.D2](mc.Strike, mc.Notional, mc.Fixing), opt)
	default:
		return Output{}, fmt.Errorf("unknown payoff %q", payoff)
	}
	if err != nil {
		return Output{}, err
	}

	m, err := risk.Duration(kind, dec, rc, v, r.riskOpts()...)
	if err != nil {
		return Output{}, err
	}
	out := r.measureOutput(m)
	out.SimulatedScenarios = sim.Scenarios
	return out, nil
}

// checkCompounding warns when a two-curve task discounts with periodic
// compounding, where base and credit sensitivities are not interchangeable.
func (r *Runner) checkCompounding(taskID string, base, credit curve.RateCurve) {
	if base.Compounding() == curve.Continuous && credit.Compounding() == curve.Continuous {
		return
	}
	r.logger.Warn("two-curve task with periodic compounding: IR01 and CS01 are not symmetric",
		zap.String("task_id", taskID),
		zap.Stringer("base_compounding", base.Compounding()),
		zap.Stringer("credit_compounding", credit.Compounding()))
}

func (r *Runner) measure(in Input) (risk.Kind, risk.Decomposition, error) {
	name := in.Measure
	if name == "" {
		name = risk.Modified.String()
	}
	kind, err := risk.ParseKind(name)
	if err != nil {
		return 0, 0, err
	}
	dec, err := risk.ParseDecomposition(in.Decomposition)
	if err != nil {
		return 0, 0, err
	}
	return kind, dec, nil
}

// simulation overlays a task's Monte Carlo settings on the configured ones.
func (r *Runner) simulation(mc *MonteCarloInput) (stochastic.Config, uint64) {
	sim := r.cfg.Simulation()
	seed := r.cfg.Stochastic.Seed
	if mc == nil {
		return sim, seed
	}
	if mc.Scenarios > 0 {
		sim.Scenarios = mc.Scenarios
	}
	if mc.TimeStep > 0 {
		sim.TimeStep = mc.TimeStep
	}
	if mc.Horizon > 0 {
		sim.Horizon = mc.Horizon
	}
	if mc.Volatility != nil {
		sim.Volatility = *mc.Volatility
	}
	if mc.Workers > 0 {
		sim.Workers = mc.Workers
	}
	if mc.Seed != nil {
		seed = *mc.Seed
	}
	return sim, seed
}

func (r *Runner) measureOutput(m risk.Measure) Output {
	return Output{
		Measure:       m.Kind.String(),
		Decomposition: m.Decomposition.String(),
		Value:         r.ptr(m.Value),
		Total:         r.ptr(m.Total),
		Tenors:        m.Tenors,
		KeyRates:      r.roundAll(m.KeyRates),
	}
}

// round rounds to the configured number of decimals.
func (r *Runner) round(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(r.cfg.Output.Decimals).InexactFloat64()
}

func (r *Runner) ptr(x float64) *float64 {
	v := r.round(x)
	return &v
}

func (r *Runner) roundAll(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = r.round(x)
	}
	return out
}

func (r *Runner) roundMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = r.roundAll(row)
	}
	return out
}
