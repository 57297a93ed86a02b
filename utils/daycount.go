package utils

import (
	"fmt"
	"strings"
	"time"
)

// DayCount names a day count convention.
type DayCount string

const (
	Act360    DayCount = "ACT/360"
	Act365F   DayCount = "ACT/365F"
	Thirty360 DayCount = "30/360"
)

// ParseDayCount normalises a convention name. Empty selects ACT/365F, the
// curve time basis.
func ParseDayCount(s string) (DayCount, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ACT/365F", "ACT/365", "ACT365F":
		return Act365F, nil
	case "ACT/360", "ACT360":
		return Act360, nil
	case "30/360", "30E/360":
		return Thirty360, nil
	default:
		return "", fmt.Errorf("utils: unsupported day count %q", s)
	}
}

// YearFraction computes the year fraction between two dates.
// Supported conventions: ACT/360, ACT/365F, 30E/360 (as 30/360).
func YearFraction(start, end time.Time, convention DayCount) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Thirty360:
		// 30E/360: day-of-month capped at 30 on both ends.
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}

// Days returns the number of calendar days from start to end.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("utils: invalid date %q: %w", s, err)
	}
	return t, nil
}
