package curve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseTenor converts tenor strings like "1W", "3M", "10Y" or "30D" to year
// fractions. Weeks and days use a 365-day year; a bare number is read as years.
func ParseTenor(tenor string) (float64, error) {
	s := strings.TrimSpace(strings.ToUpper(tenor))
	if s == "" {
		return 0, fmt.Errorf("curve: empty tenor")
	}
	unit := s[len(s)-1]
	count := func() (float64, error) {
		v, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("curve: invalid tenor %q: %w", tenor, err)
		}
		return float64(v), nil
	}
	switch unit {
	case 'W':
		v, err := count()
		return v * 7.0 / 365.0, err
	case 'M':
		v, err := count()
		return v / 12.0, err
	case 'Y':
		return count()
	case 'D':
		v, err := count()
		return v / 365.0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("curve: invalid tenor %q: %w", tenor, err)
	}
	return v, nil
}

// FromQuotes builds a RateCurve from tenor -> zero rate in percent
// (e.g. {"1Y": 3.0, "18M": 3.1}).
func FromQuotes(quotes map[string]float64, method Method, comp Compounding) (RateCurve, error) {
	type point struct {
		label string
		years float64
		rate  float64
	}
	points := make([]point, 0, len(quotes))
	for label, pct := range quotes {
		years, err := ParseTenor(label)
		if err != nil {
			return RateCurve{}, err
		}
		points = append(points, point{label: label, years: years, rate: pct / 100.0})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].years < points[j].years })

	rates := make([]float64, len(points))
	tenors := make([]float64, len(points))
	for i, p := range points {
		if i > 0 && p.years == points[i-1].years {
			return RateCurve{}, fmt.Errorf("curve: tenors %q and %q coincide", points[i-1].label, p.label)
		}
		rates[i] = p.rate
		tenors[i] = p.years
	}
	return New(rates, tenors, method, comp)
}
