// Package risk maps a requested measure, decomposition and curve count onto
// the sensitivity engines and shapes the answer.
//
// Parallel figures are sums of the key-rate figures: a uniform shift of all
// rates moves the value by the sum of the single-rate partials.
package risk

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/sensitivity"
	"github.com/meenmo/keyrate/valuation"
)

// ErrUnsupportedMeasure reports a measure that cannot be computed for the
// given curve count, decomposition or valuation.
var ErrUnsupportedMeasure = errors.New("risk: unsupported measure")

// Option configures a risk call.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger logs each request and forwards the logger to the engines.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func apply(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) engine() sensitivity.Option {
	return sensitivity.WithLogger(o.logger)
}

// Measure is a duration-type answer. KeyRates is nil for Parallel requests;
// Total is always set.
type Measure struct {
	Kind          Kind
	Decomposition Decomposition
	Value         float64
	Total         float64
	KeyRates      []float64
	Tenors        []float64
}

func newMeasure(kind Kind, dec Decomposition, value float64, tenors, keyRates []float64) Measure {
	m := Measure{Kind: kind, Decomposition: dec, Value: value, Total: sensitivity.Sum(keyRates), Tenors: tenors}
	if dec == KeyRates {
		m.KeyRates = keyRates
	}
	return m
}

// ConvexityMeasure is a convexity answer. Matrix is nil for Parallel requests.
type ConvexityMeasure struct {
	Decomposition Decomposition
	Value         float64
	Total         float64
	Matrix        [][]float64
	Tenors        []float64
}

// Report bundles value, key-rate durations and key-rate convexities.
type Report struct {
	Value       float64
	Tenors      []float64
	Durations   []float64
	Convexities [][]float64
}

// PairConvexities are the three blocks of a two-curve convexity.
type PairConvexities struct {
	Base   [][]float64
	Credit [][]float64
	Cross  [][]float64
}

// PairReport bundles the two-curve value, durations and convexity blocks.
type PairReport struct {
	Value           float64
	Tenors          []float64
	BaseDurations   []float64
	CreditDurations []float64
	Convexities     PairConvexities
}

func checkDecomposition(dec Decomposition) error {
	if dec != Parallel && dec != KeyRates {
		return fmt.Errorf("%w: %s", ErrUnsupportedMeasure, dec)
	}
	return nil
}

// Duration computes a single-curve duration measure: Macaulay (parallel only,
// standard valuations only), Modified or DV01.
func Duration(kind Kind, dec Decomposition, rc curve.RateCurve, v valuation.Single, opts ...Option) (Measure, error) {
	o := apply(opts)
	if err := checkDecomposition(dec); err != nil {
		return Measure{}, err
	}
	o.logger.Debug("duration", zap.Stringer("kind", kind), zap.Stringer("decomposition", dec), zap.Int("tenors", rc.Len()))

	switch kind {
	case Macaulay:
		if dec != Parallel {
			return Measure{}, fmt.Errorf("%w: Macaulay duration has no key-rate decomposition", ErrUnsupportedMeasure)
		}
		return macaulay(rc, v)
	case Modified, DV01:
		res, err := sensitivity.Gradient(rc, v, o.engine())
		if err != nil {
			return Measure{}, err
		}
		keyRates := res.KeyRateDV01()
		if kind == Modified {
			if keyRates, err = res.KeyRateDurations(); err != nil {
				return Measure{}, err
			}
		}
		return newMeasure(kind, dec, res.Value, res.Tenors, keyRates), nil
	case IR01, CS01:
		return Measure{}, fmt.Errorf("%w: %s needs a base and a credit curve", ErrUnsupportedMeasure, kind)
	}
	return Measure{}, fmt.Errorf("%w: %s", ErrUnsupportedMeasure, kind)
}

// macaulay is Σ t·cf·DF(t) / Σ cf·DF(t) on the curve.
func macaulay(rc curve.RateCurve, v valuation.Single) (Measure, error) {
	cashflows, times, ok := v.Stream()
	if !ok {
		return Measure{}, fmt.Errorf("%w: Macaulay duration needs a cashflow stream", ErrUnsupportedMeasure)
	}
	if rc.Len() == 0 {
		return Measure{}, curve.ErrEmptyCurve
	}
	c := curve.Lift[ad.Real](rc)
	var total float64
	d, err := ad.Try(func() ad.Real {
		var value, weighted ad.Real
		for i, cf := range cashflows {
			pv := c.DF(times[i]).Scale(cf)
			value = value.Add(pv)
			weighted = weighted.Add(pv.Scale(times[i]))
		}
		total = float64(value)
		return weighted.Div(value)
	})
	if err != nil {
		return Measure{}, fmt.Errorf("risk.Duration: %w", err)
	}
	return Measure{Kind: Macaulay, Decomposition: Parallel, Value: total, Total: float64(d), Tenors: rc.Tenors()}, nil
}

// PairDuration computes IR01 (base curve) or CS01 (credit curve) from one
// two-curve pass.
func PairDuration(kind Kind, dec Decomposition, base, credit curve.RateCurve, v valuation.Pair, opts ...Option) (Measure, error) {
	o := apply(opts)
	if err := checkDecomposition(dec); err != nil {
		return Measure{}, err
	}
	if kind != IR01 && kind != CS01 {
		return Measure{}, fmt.Errorf("%w: %s is a single-curve measure", ErrUnsupportedMeasure, kind)
	}
	o.logger.Debug("pair duration", zap.Stringer("kind", kind), zap.Stringer("decomposition", dec), zap.Int("tenors", base.Len()))

	res, err := sensitivity.PairGradient(base, credit, v, o.engine())
	if err != nil {
		return Measure{}, err
	}
	keyRates := res.IR01()
	if kind == CS01 {
		keyRates = res.CS01()
	}
	return newMeasure(kind, dec, res.Value, res.Tenors, keyRates), nil
}

// Convexity computes the convexity of v: the Hessian divided by value.
func Convexity(dec Decomposition, rc curve.RateCurve, v valuation.Single, opts ...Option) (ConvexityMeasure, error) {
	o := apply(opts)
	if err := checkDecomposition(dec); err != nil {
		return ConvexityMeasure{}, err
	}
	o.logger.Debug("convexity", zap.Stringer("decomposition", dec), zap.Int("tenors", rc.Len()))

	res, err := sensitivity.Hessian(rc, v, o.engine())
	if err != nil {
		return ConvexityMeasure{}, err
	}
	matrix, err := res.KeyRateConvexities()
	if err != nil {
		return ConvexityMeasure{}, err
	}
	out := ConvexityMeasure{Decomposition: dec, Value: res.Value, Total: sensitivity.SumMatrix(matrix), Tenors: res.Tenors}
	if dec == KeyRates {
		out.Matrix = matrix
	}
	return out, nil
}

// Sensitivities returns value, key-rate durations and key-rate convexities
// from a single second-order pass.
func Sensitivities(rc curve.RateCurve, v valuation.Single, opts ...Option) (Report, error) {
	o := apply(opts)
	o.logger.Debug("sensitivities", zap.Int("tenors", rc.Len()))

	res, err := sensitivity.Hessian(rc, v, o.engine())
	if err != nil {
		return Report{}, err
	}
	durations, err := res.KeyRateDurations()
	if err != nil {
		return Report{}, err
	}
	convexities, err := res.KeyRateConvexities()
	if err != nil {
		return Report{}, err
	}
	return Report{Value: res.Value, Tenors: res.Tenors, Durations: durations, Convexities: convexities}, nil
}

// PairSensitivities is Sensitivities for a base and a credit curve.
func PairSensitivities(base, credit curve.RateCurve, v valuation.Pair, opts ...Option) (PairReport, error) {
	o := apply(opts)
	o.logger.Debug("pair sensitivities", zap.Int("tenors", base.Len()))

	res, err := sensitivity.PairHessian(base, credit, v, o.engine())
	if err != nil {
		return PairReport{}, err
	}
	baseDur, err := res.BaseDurations()
	if err != nil {
		return PairReport{}, err
	}
	creditDur, err := res.CreditDurations()
	if err != nil {
		return PairReport{}, err
	}
	b, c, x, err := res.Convexities()
	if err != nil {
		return PairReport{}, err
	}
	return PairReport{
		Value:           res.Value,
		Tenors:          res.Tenors,
		BaseDurations:   baseDur,
		CreditDurations: creditDur,
		Convexities:     PairConvexities{Base: b, Credit: c, Cross: x},
	}, nil
}
