package curve

import "github.com/meenmo/keyrate/ad"

// interpolator returns t -> zero rate. Rates are flat outside [xs[0], xs[n-1]].
// Cubic methods need three points and fall back to linear below that.
func interpolator[T ad.Scalar[T]](m Method, xs []float64, ys []T) func(float64) T {
	n := len(xs)
	if n == 1 {
		y := ys[0]
		return func(float64) T { return y }
	}

	var inner func(i int, t float64) T
	switch {
	case m == LogLinear:
		inner = logLinear(xs, ys)
	case n < 3 || m == Linear:
		inner = linear(xs, ys)
	case m == NaturalCubic:
		inner = naturalCubic(xs, ys)
	case m == PCHIP:
		inner = hermite(xs, ys, pchipSlopes(xs, ys))
	case m == Akima:
		inner = hermite(xs, ys, akimaSlopes(xs, ys))
	default:
		inner = linear(xs, ys)
	}

	return func(t float64) T {
		switch {
		case t <= xs[0]:
			return ys[0]
		case t >= xs[n-1]:
			return ys[n-1]
		}
		return inner(bracket(xs, t), t)
	}
}

func linear[T ad.Scalar[T]](xs []float64, ys []T) func(int, float64) T {
	return func(i int, t float64) T {
		w := (t - xs[i]) / (xs[i+1] - xs[i])
		return ys[i].Scale(1 - w).Add(ys[i+1].Scale(w))
	}
}

// logLinear interpolates r·t linearly, which is linear in log discount factors
// under continuous compounding.
func logLinear[T ad.Scalar[T]](xs []float64, ys []T) func(int, float64) T {
	return func(i int, t float64) T {
		w := (t - xs[i]) / (xs[i+1] - xs[i])
		return ys[i].Scale(xs[i] * (1 - w) / t).Add(ys[i+1].Scale(xs[i+1] * w / t))
	}
}

// naturalCubic solves for the spline's second derivatives with the Thomas
// algorithm. The system matrix depends on the grid only, so the solve is a
// fixed linear map of ys and needs no division by T.
func naturalCubic[T ad.Scalar[T]](xs []float64, ys []T) func(int, float64) T {
	n := len(xs)
	var zero T
	m := make([]T, n)
	for i := range m {
		m[i] = zero.Lift(0)
	}

	// Interior rows i = 1..n-2:
	// h[i-1] M[i-1] + 2(h[i-1]+h[i]) M[i] + h[i] M[i+1] = 6 (d[i] - d[i-1])
	cp := make([]float64, n)
	dp := make([]T, n)
	for i := 1; i < n-1; i++ {
		h0 := xs[i] - xs[i-1]
		h1 := xs[i+1] - xs[i]
		rhs := ys[i+1].Sub(ys[i]).Scale(6 / h1).Sub(ys[i].Sub(ys[i-1]).Scale(6 / h0))
		diag := 2 * (h0 + h1)
		if i > 1 {
			diag -= h0 * cp[i-1]
			rhs = rhs.Sub(dp[i-1].Scale(h0))
		}
		cp[i] = h1 / diag
		dp[i] = rhs.Scale(1 / diag)
	}
	for i := n - 2; i >= 1; i-- {
		m[i] = dp[i]
		if i < n-2 {
			m[i] = m[i].Sub(m[i+1].Scale(cp[i]))
		}
	}

	return func(i int, t float64) T {
		h := xs[i+1] - xs[i]
		a := (xs[i+1] - t) / h
		b := 1 - a
		out := ys[i].Scale(a).Add(ys[i+1].Scale(b))
		out = out.Add(m[i].Scale((a*a*a - a) * h * h / 6))
		return out.Add(m[i+1].Scale((b*b*b - b) * h * h / 6))
	}
}

// hermite evaluates the cubic Hermite interpolant with node slopes d.
func hermite[T ad.Scalar[T]](xs []float64, ys []T, d []T) func(int, float64) T {
	return func(i int, t float64) T {
		h := xs[i+1] - xs[i]
		u := (t - xs[i]) / h
		u2, u3 := u*u, u*u*u
		h00 := 2*u3 - 3*u2 + 1
		h10 := u3 - 2*u2 + u
		h01 := -2*u3 + 3*u2
		h11 := u3 - u2
		out := ys[i].Scale(h00).Add(ys[i+1].Scale(h01))
		return out.Add(d[i].Scale(h10 * h)).Add(d[i+1].Scale(h11 * h))
	}
}

func secants[T ad.Scalar[T]](xs []float64, ys []T) []T {
	out := make([]T, len(xs)-1)
	for i := range out {
		out[i] = ys[i+1].Sub(ys[i]).Scale(1 / (xs[i+1] - xs[i]))
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// pchipSlopes follows Fritsch-Carlson: weighted harmonic means of adjacent
// secants, zero at local extrema, and the shape-preserving three-point formula
// at both ends.
func pchipSlopes[T ad.Scalar[T]](xs []float64, ys []T) []T {
	n := len(xs)
	delta := secants(xs, ys)
	d := make([]T, n)

	for k := 1; k < n-1; k++ {
		s0, s1 := delta[k-1], delta[k]
		if sign(s0.Value())*sign(s1.Value()) <= 0 {
			d[k] = s0.Lift(0)
			continue
		}
		h0 := xs[k] - xs[k-1]
		h1 := xs[k+1] - xs[k]
		w1 := 2*h1 + h0
		w2 := h1 + 2*h0
		den := s0.Lift(w1).Div(s0).Add(s1.Lift(w2).Div(s1))
		d[k] = den.Lift(w1 + w2).Div(den)
	}

	d[0] = pchipEnd(xs[1]-xs[0], xs[2]-xs[1], delta[0], delta[1])
	d[n-1] = pchipEnd(xs[n-1]-xs[n-2], xs[n-2]-xs[n-3], delta[n-2], delta[n-3])
	return d
}

func pchipEnd[T ad.Scalar[T]](h0, h1 float64, s0, s1 T) T {
	d := s0.Scale((2*h0 + h1) / (h0 + h1)).Sub(s1.Scale(h0 / (h0 + h1)))
	switch {
	case sign(d.Value()) != sign(s0.Value()):
		return d.Lift(0)
	case sign(s0.Value()) != sign(s1.Value()) && ad.Abs(d).Value() > 3*ad.Abs(s0).Value():
		return s0.Scale(3)
	}
	return d
}

// akimaSlopes uses Akima's weights |m[i+1]-m[i]| and |m[i-1]-m[i-2]| with two
// extrapolated secants at each end. Equal weights of zero average the secants.
func akimaSlopes[T ad.Scalar[T]](xs []float64, ys []T) []T {
	n := len(xs)
	s := secants(xs, ys)

	// e[j+2] = m[j] for j = -2 .. n.
	e := make([]T, n+3)
	copy(e[2:], s)
	e[1] = s[0].Scale(2).Sub(s[1])
	e[0] = e[1].Scale(2).Sub(s[0])
	e[n+1] = s[n-2].Scale(2).Sub(s[n-3])
	e[n+2] = e[n+1].Scale(2).Sub(s[n-2])

	d := make([]T, n)
	for i := range d {
		mm2, mm1, m0, m1 := e[i], e[i+1], e[i+2], e[i+3]
		w1 := ad.Abs(m1.Sub(m0))
		w2 := ad.Abs(mm1.Sub(mm2))
		if w1.Value()+w2.Value() == 0 {
			d[i] = mm1.Add(m0).Scale(0.5)
			continue
		}
		d[i] = w1.Mul(mm1).Add(w2.Mul(m0)).Div(w1.Add(w2))
	}
	return d
}
