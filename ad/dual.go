package ad

import "fmt"

// Dual is a number carrying its partial derivatives with respect to a fixed set
// of seed variables.
//
// V is the value and D the tangent, one entry per seed variable. A nil tangent
// marks a constant. T is the component type: Dual[Real] carries first
// derivatives, Dual[Dual[Real]] carries first and second derivatives.
// Tangent slices are never modified after construction, so they may be shared.
//
// The zero value is the constant 0.
type Dual[T Scalar[T]] struct {
	V T
	D []T
}

var _ Scalar[Dual[Real]] = Dual[Real]{}

func (x Dual[T]) Value() float64 { return x.V.Value() }

func (x Dual[T]) Lift(c float64) Dual[T] { return Dual[T]{V: x.V.Lift(c)} }

// Partial returns the i-th tangent component, zero for constants.
func (x Dual[T]) Partial(i int) T {
	if x.D == nil {
		return x.V.Lift(0)
	}
	return x.D[i]
}

func (x Dual[T]) String() string {
	return fmt.Sprintf("%g%+v", x.Value(), x.D)
}

func (x Dual[T]) Add(y Dual[T]) Dual[T] {
	return Dual[T]{V: x.V.Add(y.V), D: sum(x.D, y.D, false)}
}

func (x Dual[T]) Sub(y Dual[T]) Dual[T] {
	return Dual[T]{V: x.V.Sub(y.V), D: sum(x.D, y.D, true)}
}

func (x Dual[T]) Mul(y Dual[T]) Dual[T] {
	return Dual[T]{V: x.V.Mul(y.V), D: axpby(y.V, x.D, x.V, y.D)}
}

func (x Dual[T]) Div(y Dual[T]) Dual[T] {
	if y.Value() == 0 {
		raise("div", x.Value(), ErrDivisionByZero)
	}
	q := x.V.Div(y.V)
	inv := y.V.Lift(1).Div(y.V)
	return Dual[T]{V: q, D: axpby(inv, x.D, q.Mul(inv).Neg(), y.D)}
}

func (x Dual[T]) Neg() Dual[T] {
	return Dual[T]{V: x.V.Neg(), D: mapTangent(x.D, func(d T) T { return d.Neg() })}
}

func (x Dual[T]) Scale(c float64) Dual[T] {
	return Dual[T]{V: x.V.Scale(c), D: mapTangent(x.D, func(d T) T { return d.Scale(c) })}
}

func (x Dual[T]) Shift(c float64) Dual[T] {
	return Dual[T]{V: x.V.Shift(c), D: x.D}
}

func (x Dual[T]) Exp() Dual[T] {
	e := x.V.Exp()
	return Dual[T]{V: e, D: scale(e, x.D)}
}

func (x Dual[T]) Log() Dual[T] {
	l := x.V.Log()
	if x.D == nil {
		return Dual[T]{V: l}
	}
	return Dual[T]{V: l, D: scale(x.V.Lift(1).Div(x.V), x.D)}
}

func (x Dual[T]) Sqrt() Dual[T] {
	s := x.V.Sqrt()
	if x.D == nil {
		return Dual[T]{V: s}
	}
	// d sqrt(x) = dx / (2 sqrt(x)); infinite at zero.
	return Dual[T]{V: s, D: scale(s.Lift(0.5).Div(s), x.D)}
}

func (x Dual[T]) Pow(p float64) Dual[T] {
	switch p {
	case 0:
		return x.Lift(1)
	case 1:
		return x
	}
	f := x.V.Pow(p)
	if x.D == nil {
		return Dual[T]{V: f}
	}
	return Dual[T]{V: f, D: scale(x.V.Pow(p-1).Scale(p), x.D)}
}

func checkLen(n, m int) {
	if n != m {
		panic(fmt.Sprintf("ad: tangent length mismatch (%d vs %d): operands seeded over different variables", n, m))
	}
}

func sum[T Scalar[T]](x, y []T, negate bool) []T {
	switch {
	case y == nil:
		return x
	case x == nil:
		if !negate {
			return y
		}
		return mapTangent(y, func(d T) T { return d.Neg() })
	}
	checkLen(len(x), len(y))
	out := make([]T, len(x))
	for i := range x {
		if negate {
			out[i] = x[i].Sub(y[i])
		} else {
			out[i] = x[i].Add(y[i])
		}
	}
	return out
}

// axpby returns a*x + b*y.
func axpby[T Scalar[T]](a T, x []T, b T, y []T) []T {
	switch {
	case x == nil:
		return scale(b, y)
	case y == nil:
		return scale(a, x)
	}
	checkLen(len(x), len(y))
	out := make([]T, len(x))
	for i := range x {
		out[i] = a.Mul(x[i]).Add(b.Mul(y[i]))
	}
	return out
}

func scale[T Scalar[T]](a T, x []T) []T {
	return mapTangent(x, func(d T) T { return a.Mul(d) })
}

func mapTangent[T any](x []T, f func(T) T) []T {
	if x == nil {
		return nil
	}
	out := make([]T, len(x))
	for i, d := range x {
		out[i] = f(d)
	}
	return out
}
