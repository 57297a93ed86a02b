package ad

// Less compares primal values.
func Less[T Scalar[T]](x, y T) bool {
	return x.Value() < y.Value()
}

// Min returns the smaller of x and y together with its derivative. On a tie x
// wins, so the derivative jumps when the ordering of the arguments flips.
func Min[T Scalar[T]](x, y T) T {
	if y.Value() < x.Value() {
		return y
	}
	return x
}

// Max returns the larger of x and y; x wins ties.
func Max[T Scalar[T]](x, y T) T {
	if y.Value() > x.Value() {
		return y
	}
	return x
}

// Abs returns |x|. At zero the derivative of x is kept.
func Abs[T Scalar[T]](x T) T {
	if x.Value() < 0 {
		return x.Neg()
	}
	return x
}

// Sum adds xs; the empty sum is the zero value of T.
func Sum[T Scalar[T]](xs []T) T {
	var acc T
	for i, x := range xs {
		if i == 0 {
			acc = x
			continue
		}
		acc = acc.Add(x)
	}
	return acc
}
