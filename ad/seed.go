package ad

// D1 carries first derivatives.
type D1 = Dual[Real]

// D2 carries first and second derivatives: the tangent of each component is
// itself a tangent.
type D2 = Dual[Dual[Real]]

// Constant lifts v one nesting level up with a zero tangent.
func Constant[T Scalar[T]](v T) Dual[T] {
	return Dual[T]{V: v}
}

// Variables seeds x as len(x) independent variables: entry i has value x[i]
// and the i-th unit vector as tangent.
func Variables[T Scalar[T]](x []T) []Dual[T] {
	n := len(x)
	out := make([]Dual[T], n)
	for i, v := range x {
		d := make([]T, n)
		for j := range d {
			d[j] = v.Lift(0)
		}
		d[i] = v.Lift(1)
		out[i] = Dual[T]{V: v, D: d}
	}
	return out
}

// Seed returns first-order variables over x.
func Seed(x []float64) []D1 {
	return Variables(Reals(x))
}

// SeedSecond returns second-order variables over x: an outer seed whose
// components are inner-seeded duals.
func SeedSecond(x []float64) []D2 {
	return Variables(Seed(x))
}

// GradientOf returns the value and the n partials carried by y.
func GradientOf(y D1, n int) (float64, []float64) {
	grad := make([]float64, n)
	if y.D != nil {
		checkLen(n, len(y.D))
		for i, d := range y.D {
			grad[i] = float64(d)
		}
	}
	return y.Value(), grad
}

// HessianOf returns the value, gradient and n×n Hessian carried by a
// second-order result.
func HessianOf(y D2, n int) (float64, []float64, [][]float64) {
	_, grad := GradientOf(y.V, n)
	hess := make([][]float64, n)
	for i := range hess {
		hess[i] = make([]float64, n)
	}
	if y.D != nil {
		checkLen(n, len(y.D))
		for i, row := range y.D {
			if row.D == nil {
				continue
			}
			checkLen(n, len(row.D))
			for j, d := range row.D {
				hess[i][j] = float64(d)
			}
		}
	}
	return y.Value(), grad, hess
}

// Derivative evaluates f at x and its derivative along x, using a nesting level
// above T. Any tangent already carried by x (outer variables) flows through
// both results, so f's root or fixed point stays differentiable in them.
//
// Values captured by f from the enclosing computation must enter through
// Constant, which keeps the inner and outer directions apart.
func Derivative[T Scalar[T]](f func(Dual[T]) Dual[T], x T) (T, T) {
	y := f(Dual[T]{V: x, D: []T{x.Lift(1)}})
	return y.V, y.Partial(0)
}
