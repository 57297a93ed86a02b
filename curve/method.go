package curve

import (
	"fmt"
	"strconv"
	"strings"
)

// Method selects how zero rates are interpolated between tenors.
type Method string

const (
	Linear       Method = "linear"     // linear in the zero rate
	LogLinear    Method = "log-linear" // linear in r·t, i.e. flat forwards
	NaturalCubic Method = "cubic"      // natural cubic spline
	PCHIP        Method = "pchip"      // Fritsch-Carlson monotone cubic
	Akima        Method = "akima"
)

// Methods lists every supported interpolation method.
var Methods = []Method{Linear, LogLinear, NaturalCubic, PCHIP, Akima}

// ParseMethod maps user input to a Method. An empty string selects Linear.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return Linear, nil
	case "log-linear", "loglinear", "flat-forward", "raw":
		return LogLinear, nil
	case "cubic", "natural-cubic", "spline":
		return NaturalCubic, nil
	case "pchip", "monotone-cubic":
		return PCHIP, nil
	case "akima":
		return Akima, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Compounding is the compounding frequency of the curve's zero rates.
type Compounding int

const (
	Continuous Compounding = -1
	Annual     Compounding = 1
	SemiAnnual Compounding = 2
	Quarterly  Compounding = 4
	Monthly    Compounding = 12
)

// Periodic returns m compounding periods per year. It panics unless m is
// positive; use Continuous for continuous compounding and ParseCompounding
// for untrusted input.
func Periodic(m int) Compounding {
	if m <= 0 {
		panic(fmt.Sprintf("curve.Periodic: periods per year must be positive, got %d", m))
	}
	return Compounding(m)
}

// periods returns the compounding frequency; the zero value means Annual.
func (c Compounding) periods() int {
	if c == 0 {
		return 1
	}
	return int(c)
}

func (c Compounding) String() string {
	switch c.periods() {
	case -1:
		return "continuous"
	case 1:
		return "annual"
	case 2:
		return "semi-annual"
	case 4:
		return "quarterly"
	case 12:
		return "monthly"
	default:
		return "periodic(" + strconv.Itoa(int(c)) + ")"
	}
}

// ParseCompounding accepts "continuous", "annual", "semi-annual", "quarterly",
// "monthly" or a positive number of periods per year. Empty selects Annual.
func ParseCompounding(s string) (Compounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "annual", "periodic":
		return Annual, nil
	case "continuous", "cc":
		return Continuous, nil
	case "semi-annual", "semiannual":
		return SemiAnnual, nil
	case "quarterly":
		return Quarterly, nil
	case "monthly":
		return Monthly, nil
	}
	m, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || m <= 0 {
		return 0, fmt.Errorf("curve: unknown compounding %q", s)
	}
	return Periodic(m), nil
}
