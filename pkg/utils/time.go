package utils

import (
	"fmt"
	"time"
)

// FormatDuration rounds d to a precision that suits its magnitude.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}

// FormatRate renders n evaluations over d as a per-second rate.
// A zero duration yields "n/a".
func FormatRate(n int, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f/s", float64(n)/d.Seconds())
}
