// Package robustness reduces a per-frame signal to a signed robustness value
// with signal temporal logic "always" and "eventually" semantics.
package robustness

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptySignal is returned when a signal has no samples
var ErrEmptySignal = errors.New("signal is empty")

// Margin returns signal[t] - threshold for every t
func Margin(signal []float64, threshold float64) []float64 {
	m := make([]float64, len(signal))
	copy(m, signal)
	floats.AddConst(-threshold, m)
	return m
}

// Always returns min_t(signal[t] - threshold). A positive value means the
// signal stayed above threshold at every sample by at least that much; a
// non-positive value is the worst violation.
func Always(signal []float64, threshold float64) (float64, error) {
	if len(signal) == 0 {
		return 0, ErrEmptySignal
	}
	return floats.Min(signal) - threshold, nil
}

// Eventually returns max_t(signal[t] - threshold)
func Eventually(signal []float64, threshold float64) (float64, error) {
	if len(signal) == 0 {
		return 0, ErrEmptySignal
	}
	return floats.Max(signal) - threshold, nil
}
