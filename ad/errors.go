package ad

import (
	"errors"
	"fmt"
)

var (
	// ErrDivisionByZero is raised when a denominator evaluates to exactly zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrDomain is raised when an elementary function is evaluated outside its domain
	// (log of a non-positive number, sqrt of a negative number, ...).
	ErrDomain = errors.New("argument outside function domain")
)

// NumericError reports a failed elementary operation.
//
// Arithmetic methods cannot return errors, so a NumericError is raised with panic
// and turned back into an ordinary error by Try at the API boundary.
type NumericError struct {
	Op    string
	Value float64
	Err   error
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("ad: %s(%g): %v", e.Op, e.Value, e.Err)
}

func (e *NumericError) Unwrap() error { return e.Err }

func raise(op string, v float64, err error) {
	panic(&NumericError{Op: op, Value: v, Err: err})
}

// Raise aborts the current evaluation with err. It is meant for collaborators
// (solvers, simulators) running inside a valuation function, which has no error
// return. Try recovers it like any other numeric failure.
func Raise(op string, v float64, err error) {
	raise(op, v, err)
}

// Try runs f and converts a NumericError raised during the evaluation into an
// error. Any other panic is re-raised unchanged.
func Try[T any](f func() T) (res T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if ne, ok := r.(*NumericError); ok {
			err = ne
			return
		}
		panic(r)
	}()
	return f(), nil
}
