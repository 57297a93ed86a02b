package sensitivity_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/meenmo/keyrate/ad"
	"github.com/meenmo/keyrate/bond"
	"github.com/meenmo/keyrate/curve"
	"github.com/meenmo/keyrate/sensitivity"
	"github.com/meenmo/keyrate/valuation"
)

var (
	slopedTenors = []float64{0.5, 1, 2, 3, 5, 7, 10}
	slopedRates  = []float64{0.021, 0.024, 0.027, 0.029, 0.032, 0.034, 0.036}
)

func newCurve(t *testing.T, rates, tenors []float64, m curve.Method, comp curve.Compounding) curve.RateCurve {
	t.Helper()
	rc, err := curve.New(rates, tenors, m, comp)
	require.NoError(t, err)
	return rc
}

func standard(t *testing.T, cfs, times []float64) valuation.Single {
	t.Helper()
	v, err := valuation.Standard(cfs, times)
	require.NoError(t, err)
	return v
}

// couponBond pays off-grid so every interpolation segment contributes.
func couponBond(t *testing.T) valuation.Single {
	t.Helper()
	cfs, err := bond.Fixed(100, 0.045, 2, 8.3)
	require.NoError(t, err)
	v, err := bond.Standard(cfs)
	require.NoError(t, err)
	return v
}

func valueAt(t *testing.T, rc curve.RateCurve, v valuation.Single) float64 {
	t.Helper()
	f, err := v.First()
	require.NoError(t, err)
	return f(curve.Lift[ad.D1](rc)).Value()
}

// parallelDerivative differentiates along a uniform shift of every rate.
func parallelDerivative(t *testing.T, rc curve.RateCurve, cfs, times []float64) (float64, float64) {
	t.Helper()
	v, d := ad.Derivative(func(s ad.D1) ad.D1 {
		rates := make([]ad.D1, rc.Len())
		for i, r := range rc.Rates() {
			rates[i] = ad.Constant(ad.Real(r)).Add(s)
		}
		c, err := curve.Build(rates, rc.Tenors(), rc.Method(), rc.Compounding())
		require.NoError(t, err)
		return valuation.PresentValue(c, cfs, times)
	}, ad.Real(0))
	return float64(v), float64(d)
}

func TestEndToEnd_FlatCurve(t *testing.T) {
	t.Parallel()

	rc := newCurve(t, []float64{0.03, 0.03, 0.03}, []float64{1, 2, 3}, curve.Linear, curve.Annual)
	res, err := sensitivity.Hessian(rc, standard(t, []float64{5, 5, 105}, []float64{1, 2, 3}))
	require.NoError(t, err)

	assert.InDelta(t, 105.6572, res.Value, 1e-4)

	krd, err := res.KeyRateDurations()
	require.NoError(t, err)
	assert.InDelta(t, 2.7801, sensitivity.Sum(krd), 1e-4)

	conv, err := res.KeyRateConvexities()
	require.NoError(t, err)
	assert.InDelta(t, 10.6258, sensitivity.SumMatrix(conv), 1e-4)

	// Off-diagonal entries vanish: each cashflow sits on its own node.
	assert.InDelta(t, 0, conv[0][1], 1e-14)
	assert.InDelta(t, 0, conv[1][2], 1e-14)
}

func TestLocality_ZeroCouponOnNode(t *testing.T) {
	t.Parallel()

	tenors := []float64{1, 2, 3, 5}
	rc := newCurve(t, []float64{0.02, 0.025, 0.03, 0.035}, tenors, curve.Linear, curve.Continuous)

	for k, tk := range tenors {
		res, err := sensitivity.Gradient(rc, standard(t, []float64{100}, []float64{tk}))
		require.NoError(t, err)
		krd, err := res.KeyRateDurations()
		require.NoError(t, err)
		for i, d := range krd {
			want := 0.0
			if i == k {
				want = tk
			}
			assert.InDelta(t, want, d, 1e-6, "zero at %g, tenor %g", tk, tenors[i])
		}
	}
}

func TestSummationIdentity_AllMethods(t *testing.T) {
	t.Parallel()

	cfs, err := bond.Fixed(100, 0.045, 2, 8.3)
	require.NoError(t, err)
	amounts, times := bond.Stream(cfs)

	for _, m := range curve.Methods {
		for _, comp := range []curve.Compounding{curve.Annual, curve.Continuous} {
			t.Run(string(m)+"/"+comp.String(), func(t *testing.T) {
				t.Parallel()

				rc := newCurve(t, slopedRates, slopedTenors, m, comp)
				res, err := sensitivity.Gradient(rc, standard(t, amounts, times))
				require.NoError(t, err)
				krd, err := res.KeyRateDurations()
				require.NoError(t, err)

				value, slope := parallelDerivative(t, rc, amounts, times)
				assert.InDelta(t, value, res.Value, 1e-10)
				assert.InDelta(t, -slope/value, sensitivity.Sum(krd), 1e-4)
			})
		}
	}
}

// centralDifference bumps rate i by ±eps and reprices.
func centralDifference(t *testing.T, rc curve.RateCurve, v valuation.Single, i int, eps float64) float64 {
	t.Helper()
	up := rc.Rates()
	dn := rc.Rates()
	up[i] += eps
	dn[i] -= eps
	rcUp, err := rc.WithRates(up)
	require.NoError(t, err)
	rcDn, err := rc.WithRates(dn)
	require.NoError(t, err)
	return (valueAt(t, rcUp, v) - valueAt(t, rcDn, v)) / (2 * eps)
}

// Where the ε=1e-5 truncation error exceeds the tolerance (PCHIP slopes
// built from nearly equal secants), the error must fall off as ε²: a tenfold
// smaller bump leaves at least fifty times less error.
func TestGradient_MatchesCentralDifferences(t *testing.T) {
	t.Parallel()

	const (
		eps = 1e-5
		tol = 1e-4
	)
	v := couponBond(t)

	for _, m := range curve.Methods {
		t.Run(string(m), func(t *testing.T) {
			t.Parallel()

			rc := newCurve(t, slopedRates, slopedTenors, m, curve.Annual)
			res, err := sensitivity.Gradient(rc, v)
			require.NoError(t, err)

			for i := range slopedRates {
				coarse := math.Abs(centralDifference(t, rc, v, i, eps) - res.Gradient[i])
				if coarse <= tol {
					continue
				}
				fine := math.Abs(centralDifference(t, rc, v, i, eps/10) - res.Gradient[i])
				assert.LessOrEqual(t, fine, tol, "tenor %g", slopedTenors[i])
				assert.Less(t, 50*fine, coarse, "tenor %g: error does not decay as eps^2", slopedTenors[i])
			}
		})
	}
}

func TestGradient_PCHIPSteepCurveWithinTolerance(t *testing.T) {
	t.Parallel()

	rates := []float64{0.010, 0.018, 0.030, 0.026, 0.041, 0.037, 0.052}
	rc := newCurve(t, rates, slopedTenors, curve.PCHIP, curve.Annual)
	v := couponBond(t)
	res, err := sensitivity.Gradient(rc, v)
	require.NoError(t, err)

	for i := range rates {
		fd := centralDifference(t, rc, v, i, 1e-6)
		assert.InDelta(t, fd, res.Gradient[i], 1e-4, "tenor %g", slopedTenors[i])
	}
}

func TestHessian_Symmetric(t *testing.T) {
	t.Parallel()

	for _, m := range []curve.Method{curve.NaturalCubic, curve.PCHIP, curve.Akima} {
		t.Run(string(m), func(t *testing.T) {
			t.Parallel()

			rc := newCurve(t, slopedRates, slopedTenors, m, curve.Annual)
			res, err := sensitivity.Hessian(rc, couponBond(t))
			require.NoError(t, err)
			conv, err := res.KeyRateConvexities()
			require.NoError(t, err)

			transposed := make([][]float64, len(conv))
			for i := range conv {
				transposed[i] = make([]float64, len(conv))
				for j := range conv {
					transposed[i][j] = conv[j][i]
				}
			}
			if diff := cmp.Diff(conv, transposed, cmpopts.EquateApprox(0, 1e-10)); diff != "" {
				t.Errorf("convexity matrix not symmetric (-got +transposed):\n%s", diff)
			}

			grad, err := sensitivity.Gradient(rc, couponBond(t))
			require.NoError(t, err)
			assert.InDeltaSlice(t, grad.Gradient, res.Gradient, 1e-12)
		})
	}
}

func TestDV01_Additive(t *testing.T) {
	t.Parallel()

	rc := newCurve(t, slopedRates, slopedTenors, curve.NaturalCubic, curve.SemiAnnual)
	a := standard(t, []float64{3, 3, 103}, []float64{0.7, 1.7, 2.7})
	b := couponBond(t)

	ra, err := sensitivity.Gradient(rc, a)
	require.NoError(t, err)
	rb, err := sensitivity.Gradient(rc, b)
	require.NoError(t, err)
	rab, err := sensitivity.Gradient(rc, a.Add(b))
	require.NoError(t, err)

	da, db, dab := ra.KeyRateDV01(), rb.KeyRateDV01(), rab.KeyRateDV01()
	for i := range dab {
		assert.InDelta(t, da[i]+db[i], dab[i], 1e-10)
	}
	assert.InDelta(t, sensitivity.Sum(da)+sensitivity.Sum(db), sensitivity.Sum(dab), 1e-10)
}

func TestPair_IR01EqualsCS01(t *testing.T) {
	t.Parallel()

	tenors := []float64{1, 2, 3, 5}
	baseRates := []float64{0.020, 0.023, 0.026, 0.030}
	creditRates := []float64{0.010, 0.012, 0.013, 0.015}
	base := newCurve(t, baseRates, tenors, curve.Linear, curve.Continuous)
	credit := newCurve(t, creditRates, tenors, curve.Linear, curve.Continuous)

	cfs := []float64{4, 4, 4, 104}
	times := []float64{1, 2, 3.5, 5}
	p, err := valuation.StandardPair(cfs, times)
	require.NoError(t, err)

	res, err := sensitivity.PairHessian(base, credit, p)
	require.NoError(t, err)

	combinedRates := make([]float64, len(tenors))
	for i := range tenors {
		combinedRates[i] = baseRates[i] + creditRates[i]
	}
	combined := newCurve(t, combinedRates, tenors, curve.Linear, curve.Continuous)
	single, err := sensitivity.Hessian(combined, standard(t, cfs, times))
	require.NoError(t, err)

	assert.InDelta(t, single.Value, res.Value, 1e-10)
	assert.InDeltaSlice(t, single.KeyRateDV01(), res.IR01(), 1e-10)
	assert.InDeltaSlice(t, single.KeyRateDV01(), res.CS01(), 1e-10)

	baseConv, creditConv, crossConv, err := res.Convexities()
	require.NoError(t, err)
	want, err := single.KeyRateConvexities()
	require.NoError(t, err)
	approx := cmpopts.EquateApprox(0, 1e-10)
	assert.True(t, cmp.Equal(want, baseConv, approx))
	assert.True(t, cmp.Equal(want, creditConv, approx))
	assert.True(t, cmp.Equal(want, crossConv, approx))

	first, err := sensitivity.PairGradient(base, credit, p)
	require.NoError(t, err)
	assert.InDeltaSlice(t, res.BaseGradient, first.BaseGradient, 1e-12)
	assert.Nil(t, first.CrossHessian)
	_, _, _, err = first.Convexities()
	assert.ErrorIs(t, err, sensitivity.ErrNoHessian)
}

func TestPair_TenorMismatch(t *testing.T) {
	t.Parallel()

	base := newCurve(t, []float64{0.02, 0.03}, []float64{1, 2}, curve.Linear, curve.Continuous)
	credit := newCurve(t, []float64{0.01, 0.01}, []float64{1, 3}, curve.Linear, curve.Continuous)

	called := false
	p := valuation.CustomPair(func(b, c *curve.Curve[ad.D1]) ad.D1 {
		called = true
		return b.DF(1)
	}, nil)

	_, err := sensitivity.PairGradient(base, credit, p)
	assert.ErrorIs(t, err, sensitivity.ErrTenorMismatch)
	_, err = sensitivity.PairHessian(base, credit, p)
	assert.ErrorIs(t, err, sensitivity.ErrTenorMismatch)
	assert.False(t, called)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	rc := newCurve(t, []float64{0.02, 0.03}, []float64{1, 2}, curve.Linear, curve.Continuous)

	t.Run("division by zero propagates", func(t *testing.T) {
		t.Parallel()
		v := valuation.Custom(func(c *curve.Curve[ad.D1]) ad.D1 {
			return c.DF(1).Div(c.DF(0).Shift(-1))
		}, nil)
		_, err := sensitivity.Gradient(rc, v)
		assert.ErrorIs(t, err, ad.ErrDivisionByZero)
		var numErr *ad.NumericError
		assert.ErrorAs(t, err, &numErr)
	})

	t.Run("zero value", func(t *testing.T) {
		t.Parallel()
		res, err := sensitivity.Gradient(rc, standard(t, []float64{100, -100}, []float64{1, 1}))
		require.NoError(t, err)
		_, err = res.KeyRateDurations()
		assert.ErrorIs(t, err, ad.ErrDivisionByZero)
	})

	t.Run("first order only", func(t *testing.T) {
		t.Parallel()
		v := valuation.Custom(func(c *curve.Curve[ad.D1]) ad.D1 { return c.DF(1) }, nil)
		_, err := sensitivity.Hessian(rc, v)
		assert.ErrorIs(t, err, valuation.ErrNoSecondOrder)

		res, err := sensitivity.Gradient(rc, v)
		require.NoError(t, err)
		_, err = res.KeyRateConvexities()
		assert.ErrorIs(t, err, sensitivity.ErrNoHessian)
	})

	t.Run("empty curve", func(t *testing.T) {
		t.Parallel()
		_, err := sensitivity.Gradient(curve.RateCurve{}, standard(t, []float64{1}, []float64{1}))
		assert.ErrorIs(t, err, curve.ErrEmptyCurve)
	})
}

func TestCallable_KinkedDerivative(t *testing.T) {
	t.Parallel()

	cfs, err := bond.Fixed(100, 0.05, 1, 3)
	require.NoError(t, err)
	v, err := bond.Callable(cfs, 1, 100)
	require.NoError(t, err)

	rc := newCurve(t, []float64{0.03, 0.03, 0.03}, []float64{1, 2, 3}, curve.Linear, curve.Annual)
	res, err := sensitivity.Hessian(rc, v)
	require.NoError(t, err)

	// The call branch is active: only the one-year rate matters.
	assert.InDelta(t, 105/1.03, res.Value, 1e-10)
	assert.InDelta(t, -105/math.Pow(1.03, 2), res.Gradient[0], 1e-10)
	assert.InDelta(t, 0, res.Gradient[1], 1e-14)
	assert.InDelta(t, 0, res.Gradient[2], 1e-14)
}

func TestWithLogger_OneEntryPerPass(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	rc := newCurve(t, []float64{0.02, 0.03}, []float64{1, 2}, curve.Linear, curve.Continuous)
	v := standard(t, []float64{100}, []float64{1.5})

	_, err := sensitivity.Gradient(rc, v, sensitivity.WithLogger(zap.New(core)))
	require.NoError(t, err)
	_, err = sensitivity.Hessian(rc, v, sensitivity.WithLogger(zap.New(core)))
	require.NoError(t, err)

	entries := logs.FilterMessage("ad pass").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].ContextMap()["order"])
	assert.Equal(t, "second", entries[1].ContextMap()["order"])
	assert.Equal(t, int64(2), entries[1].ContextMap()["parameters"])
}
