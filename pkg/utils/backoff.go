package utils

import (
	"context"
	"fmt"
	"math"
	"time"
)

// BackoffKind names a retry delay progression
type BackoffKind string

const (
	BackoffConstant    BackoffKind = "constant"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// Backoff computes the delay before a retry attempt.
type Backoff struct {
	Kind       BackoffKind
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool
}

// Delay returns the delay before retry number attempt (0-indexed)
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	var delay float64
	switch b.Kind {
	case BackoffConstant:
		delay = float64(b.Base)
	case BackoffLinear:
		delay = float64(b.Base) * float64(attempt+1)
	default:
		multiplier := b.Multiplier
		if multiplier <= 0 {
			multiplier = 2.0
		}
		delay = float64(b.Base) * math.Pow(multiplier, float64(attempt))
	}

	if b.Jitter {
		// between 0.5*delay and 1.5*delay
		delay *= 0.5 + Float64()
	}

	// jitter never pushes a delay past Max
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	return time.Duration(delay)
}

// ParseBackoff builds a Backoff from config values. Exponential backoff gets jitter.
func ParseBackoff(kind string, baseMs, maxMs int) (Backoff, error) {
	if baseMs < 0 || maxMs < 0 {
		return Backoff{}, fmt.Errorf("backoff delays cannot be negative (base_ms=%d, max_ms=%d)", baseMs, maxMs)
	}
	b := Backoff{
		Base: time.Duration(baseMs) * time.Millisecond,
		Max:  time.Duration(maxMs) * time.Millisecond,
	}
	if b.Max == 0 {
		b.Max = 30 * time.Second
	}

	switch BackoffKind(kind) {
	case BackoffConstant, BackoffLinear:
		b.Kind = BackoffKind(kind)
	case BackoffExponential, "":
		b.Kind = BackoffExponential
		b.Multiplier = 2.0
		b.Jitter = true
	default:
		return Backoff{}, fmt.Errorf("invalid backoff type: %s (must be exponential, linear, or constant)", kind)
	}
	return b, nil
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
