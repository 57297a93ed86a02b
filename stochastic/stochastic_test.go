package stochastic_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/sensitivity"
	"github.com/meenmo/keyrate/stochastic"
	"github.com/meenmo/keyrate/valuation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	testTenors = []float64{1, 2, 3, 5}
	testRates  = []float64{0.020, 0.025, 0.030, 0.035}
)

func testCurve(t *testing.T) curve.RateCurve {
	t.Helper()
	rc, err := curve.New(testRates, testTenors, curve.Linear, curve.Continuous)
	require.NoError(t, err)
	return rc
}

func baseConfig() stochastic.Config {
	return stochastic.Config{
		Scenarios:  400,
		TimeStep:   0.25,
		Horizon:    5,
		Volatility: 0.01,
		Workers:    1,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*stochastic.Config)
		ok     bool
	}{
		{"valid", func(*stochastic.Config) {}, true},
		{"no scenarios", func(c *stochastic.Config) { c.Scenarios = 0 }, false},
		{"zero step", func(c *stochastic.Config) { c.TimeStep = 0 }, false},
		{"short horizon", func(c *stochastic.Config) { c.Horizon = 0.1 }, false},
		{"horizon off grid", func(c *stochastic.Config) { c.Horizon = 5.1 }, false},
		{"negative volatility", func(c *stochastic.Config) { c.Volatility = -0.01 }, false},
		{"negative workers", func(c *stochastic.Config) { c.Workers = -1 }, false},
		{"negative tolerance", func(c *stochastic.Config) { c.Tolerance = -1 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := baseConfig()
			tc.mutate(&cfg)
			steps, err := cfg.Validate()
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, 20, steps)
				return
			}
			assert.ErrorIs(t, err, stochastic.ErrInvalidConfig)
		})
	}
}

func TestDraw_IndependentOfWorkers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := baseConfig()
	one, err := stochastic.Draw(ctx, cfg, stochastic.NewRNG(7))
	require.NoError(t, err)
	cfg.Workers = 5
	many, err := stochastic.Draw(ctx, cfg, stochastic.NewRNG(7))
	require.NoError(t, err)

	require.Equal(t, cfg.Scenarios, many.Scenarios())
	assert.Equal(t, 20, many.Steps())
	for i := 0; i < cfg.Scenarios; i++ {
		require.Equal(t, one.Scenario(i), many.Scenario(i), "scenario %d", i)
	}
	assert.Len(t, one.Scenario(0), 19)

	other, err := stochastic.Draw(ctx, cfg, stochastic.NewRNG(8))
	require.NoError(t, err)
	assert.NotEqual(t, one.Scenario(0), other.Scenario(0))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = stochastic.Draw(canceled, cfg, stochastic.NewRNG(7))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalibrate_MatchesCurve(t *testing.T) {
	t.Parallel()

	rc := testCurve(t)
	cfg := baseConfig()
	c := curve.Lift[ad.Real](rc)
	m, err := stochastic.Calibrate(c, cfg)
	require.NoError(t, err)

	theta := m.Drift()
	require.Len(t, theta, 20)
	dt, sigma := cfg.TimeStep, cfg.Volatility
	var cum, squares float64
	for j := 1; j <= 20; j++ {
		cum += float64(theta[j-1])
		squares += float64((j - 1) * (j - 1))
		v := sigma * sigma * dt * dt * dt * squares
		assert.InDelta(t, float64(c.DF(float64(j)*dt)), math.Exp(-dt*cum+v/2), 1e-14, "grid point %d", j)
	}
}

func TestCalibrate_DriftTangents(t *testing.T) {
	t.Parallel()

	const eps = 1e-6
	rc := testCurve(t)
	cfg := baseConfig()

	seeded, err := curve.Rebuild(rc, ad.Seed(rc.Rates()))
	require.NoError(t, err)
	m, err := stochastic.Calibrate(seeded, cfg)
	require.NoError(t, err)
	theta := m.Drift()

	drift := func(rates []float64) []ad.Real {
		bumped, err := rc.WithRates(rates)
		require.NoError(t, err)
		mm, err := stochastic.Calibrate(curve.Lift[ad.Real](bumped), cfg)
		require.NoError(t, err)
		return mm.Drift()
	}
	for i := range testRates {
		up := append([]float64(nil), testRates...)
		dn := append([]float64(nil), testRates...)
		up[i] += eps
		dn[i] -= eps
		thUp, thDn := drift(up), drift(dn)
		for k, th := range theta {
			_, grad := ad.GradientOf(th, len(testRates))
			fd := float64(thUp[k]-thDn[k]) / (2 * eps)
			assert.InDelta(t, fd, grad[i], 1e-6, "theta[%d] / rate %d", k, i)
		}
	}

	cfg.MaxIterations = 1
	cfg.Tolerance = 1e-300
	_, err = stochastic.Calibrate(seeded, cfg)
	assert.ErrorIs(t, err, stochastic.ErrNoConvergence)
}

func TestFixedCashflows_ZeroVolatilityIsDeterministic(t *testing.T) {
	t.Parallel()

	rc := testCurve(t)
	cfg := baseConfig()
	cfg.Volatility = 0
	cfg.Scenarios = 3

	cfs := []float64{4, 4, 4, 4, 104}
	times := []float64{1, 2, 3, 4, 5}
	mc, err := stochastic.FixedCashflows(context.Background(), cfg, stochastic.NewRNG(1), cfs, times)
	require.NoError(t, err)
	det, err := valuation.Standard(cfs, times)
	require.NoError(t, err)

	got, err := sensitivity.Hessian(rc, mc)
	require.NoError(t, err)
	want, err := sensitivity.Hessian(rc, det)
	require.NoError(t, err)

	assert.InDelta(t, want.Value, got.Value, 1e-10)
	assert.InDeltaSlice(t, want.Gradient, got.Gradient, 1e-8)
	for i := range want.Hessian {
		assert.InDeltaSlice(t, want.Hessian[i], got.Hessian[i], 1e-6)
	}
}

func TestFixedCashflows_SummedDurationMatchesDeterministic(t *testing.T) {
	t.Parallel()

	rc := testCurve(t)
	cfg := baseConfig()
	cfg.Scenarios = 2000
	cfg.Workers = 4

	cfs := []float64{4, 4, 4, 4, 104}
	times := []float64{1, 2, 3, 4, 5}
	mc, err := stochastic.FixedCashflows(context.Background(), cfg, stochastic.NewRNG(42), cfs, times)
	require.NoError(t, err)
	det, err := valuation.Standard(cfs, times)
	require.NoError(t, err)

	mcRes, err := sensitivity.Gradient(rc, mc)
	require.NoError(t, err)
	detRes, err := sensitivity.Gradient(rc, det)
	require.NoError(t, err)

	mcKRD, err := mcRes.KeyRateDurations()
	require.NoError(t, err)
	detKRD, err := detRes.KeyRateDurations()
	require.NoError(t, err)
	assert.InDelta(t, sensitivity.Sum(detKRD), sensitivity.Sum(mcKRD), 0.05)
	assert.InDelta(t, detRes.Value, mcRes.Value, 0.01*detRes.Value)
}

func TestValuation_ReproducibleAcrossWorkers(t *testing.T) {
	t.Parallel()

	rc := testCurve(t)
	results := make([]sensitivity.Result, 0, 2)
	for _, workers := range []int{1, 3} {
		cfg := baseConfig()
		cfg.Workers = workers
		v, err := stochastic.NewValuation(context.Background(), cfg, stochastic.NewRNG(3),
			stochastic.CapPayoff[ad.D1](0.03, 100), stochastic.CapPayoff[ad.D2](0.03, 100))
		require.NoError(t, err)
		res, err := sensitivity.Hessian(rc, v)
		require.NoError(t, err)
		results = append(results, res)
	}
	assert.Equal(t, results[0].Value, results[1].Value)
	assert.Equal(t, results[0].Gradient, results[1].Gradient)
	assert.Equal(t, results[0].Hessian, results[1].Hessian)
}

func TestCapPayoff_MatchesFiniteDifferences(t *testing.T) {
	t.Parallel()

	// Small enough that no caplet is likely to straddle its strike.
	const eps = 1e-6
	rc := testCurve(t)
	cfg := baseConfig()
	cfg.Scenarios = 200
	cfg.Horizon = 3
	cfg.Workers = 2

	v, err := stochastic.NewValuation(context.Background(), cfg, stochastic.NewRNG(11),
		stochastic.CapPayoff[ad.D1](0.025, 100), nil)
	require.NoError(t, err)
	res, err := sensitivity.Gradient(rc, v)
	require.NoError(t, err)
	require.Greater(t, res.Value, 0.0)

	f, err := v.First()
	require.NoError(t, err)
	value := func(rates []float64) float64 {
		bumped, err := rc.WithRates(rates)
		require.NoError(t, err)
		return f(curve.Lift[ad.D1](bumped)).Value()
	}
	for i := range testRates {
		up := append([]float64(nil), testRates...)
		dn := append([]float64(nil), testRates...)
		up[i] += eps
		dn[i] -= eps
		fd := (value(up) - value(dn)) / (2 * eps)
		assert.InDelta(t, fd, res.Gradient[i], 1e-4, "tenor %g", testTenors[i])
	}

	_, err = sensitivity.Hessian(rc, v)
	assert.ErrorIs(t, err, valuation.ErrNoSecondOrder)
}

func TestDigitalPayoff_ZeroPathwiseDerivative(t *testing.T) {
	t.Parallel()

	rc := testCurve(t)
	cfg := baseConfig()
	cfg.Scenarios = 2000
	cfg.Horizon = 3
	cfg.Workers = 4

	v, err := stochastic.NewValuation(context.Background(), cfg, stochastic.NewRNG(5),
		stochastic.DigitalPayoff[ad.D1](0.03, 100, 2), nil)
	require.NoError(t, err)
	res, err := sensitivity.Gradient(rc, v)
	require.NoError(t, err)

	assert.Greater(t, res.Value, 0.0)
	assert.Less(t, res.Value, 100.0)
	for _, g := range res.Gradient {
		assert.Zero(t, g)
	}

	// The price itself does move: a 10bp parallel shift flips paths across
	// the strike.
	f, err := v.First()
	require.NoError(t, err)
	shifted := make([]float64, len(testRates))
	for i, r := range testRates {
		shifted[i] = r + 0.001
	}
	up, err := rc.WithRates(shifted)
	require.NoError(t, err)
	assert.Greater(t, f(curve.Lift[ad.D1](up)).Value(), res.Value)
}

func TestOffGrid(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	_, err := stochastic.FixedCashflows(context.Background(), cfg, stochastic.NewRNG(1), []float64{100}, []float64{1.1})
	assert.ErrorIs(t, err, stochastic.ErrOffGrid)
	_, err = stochastic.FixedCashflows(context.Background(), cfg, stochastic.NewRNG(1), []float64{100}, []float64{6})
	assert.ErrorIs(t, err, stochastic.ErrOffGrid)
	_, err = stochastic.FixedCashflows(context.Background(), cfg, stochastic.NewRNG(1), []float64{100, 1}, []float64{1})
	assert.ErrorIs(t, err, valuation.ErrDimensionMismatch)

	// Raised inside a worker goroutine and still surfaced as an error.
	cfg.Workers = 3
	v, err := stochastic.NewValuation(context.Background(), cfg, stochastic.NewRNG(1),
		func(p *stochastic.Path[ad.D1]) ad.D1 { return p.DiscountAt(1.1) }, nil)
	require.NoError(t, err)
	_, err = sensitivity.Gradient(testCurve(t), v)
	assert.ErrorIs(t, err, stochastic.ErrOffGrid)
}

func TestNoConvergence_SurfacesThroughEngine(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.MaxIterations = 1
	cfg.Tolerance = 1e-300
	v, err := stochastic.FixedCashflows(context.Background(), cfg, stochastic.NewRNG(1), []float64{100}, []float64{2})
	require.NoError(t, err)
	_, err = sensitivity.Gradient(testCurve(t), v)
	assert.ErrorIs(t, err, stochastic.ErrNoConvergence)
}
