package risk

import (
	"fmt"
	"strings"
)

// Kind selects a risk measure.
type Kind int

const (
	Macaulay Kind = iota + 1
	Modified
	DV01
	IR01
	CS01
)

var kindNames = map[Kind]string{
	Macaulay: "macaulay",
	Modified: "modified",
	DV01:     "dv01",
	IR01:     "ir01",
	CS01:     "cs01",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind reads a measure name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown measure %q", ErrUnsupportedMeasure, s)
}

// Decomposition selects a scalar or a per-tenor answer.
type Decomposition int

const (
	// Parallel reports the single number for a uniform shift of every rate.
	Parallel Decomposition = iota
	// KeyRates reports one entry per tenor (one row and column for matrices).
	KeyRates
)

func (d Decomposition) String() string {
	switch d {
	case Parallel:
		return "parallel"
	case KeyRates:
		return "key-rates"
	}
	return fmt.Sprintf("Decomposition(%d)", int(d))
}

// ParseDecomposition accepts "parallel" (or empty) and "key-rates".
func ParseDecomposition(s string) (Decomposition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "parallel", "scalar":
		return Parallel, nil
	case "key-rates", "keyrates", "krd":
		return KeyRates, nil
	}
	return 0, fmt.Errorf("risk: unknown decomposition %q", s)
}
