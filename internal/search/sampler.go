package search

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

// Sampler proposes the next candidate of a chain from its current accepted sample.
type Sampler interface {
	// Next returns a new sample inside space. It must not modify current.
	Next(current Sample, space *Space, rng *utils.RandSource) Sample
	// Name returns the name of the sampling strategy
	Name() string
}

// HitAndRun moves a random fraction of the feasible chord along a uniformly
// random direction. It works in the unit hypercube so that boxes with very
// different widths per dimension are explored isotropically.
type HitAndRun struct {
	// MaxFraction is the upper end of the uniform travel fraction draw.
	MaxFraction float64
	// Overshoot replaces draws above 1, keeping the step off the boundary
	// while still allowing near-boundary moves.
	Overshoot float64
}

// NewHitAndRun returns the sampler with a (0, 1.2) fraction draw clamped to 0.99.
func NewHitAndRun() *HitAndRun {
	return &HitAndRun{MaxFraction: 1.2, Overshoot: 0.99}
}

func (h *HitAndRun) Name() string {
	return "hit_and_run"
}

// Next returns the next hit-and-run sample from current.
func (h *HitAndRun) Next(current Sample, space *Space, rng *utils.RandSource) Sample {
	u := space.Normalize(current)
	d := unitDirection(len(u), rng)
	forward, backward := StepBounds(u, d)
	if math.IsInf(forward, 1) && math.IsInf(backward, 1) {
		// only reachable with an all-zero direction
		return current.Clone()
	}

	z := rng.UniformFloat64(0, h.MaxFraction)
	if z > 1 {
		z = h.Overshoot
	}

	if rng.Float64() < backward/(forward+backward) {
		z *= -backward
	} else {
		z *= forward
	}

	next := make([]float64, len(u))
	for i := range u {
		next[i] = u[i] + z*d[i]
	}
	return space.Denormalize(next)
}

// unitDirection draws a standard normal vector and scales it to unit length,
// which makes it uniform on the unit sphere.
func unitDirection(n int, rng *utils.RandSource) []float64 {
	for {
		d := rng.NormVector(n)
		norm := floats.Norm(d, 2)
		if norm > 0 && utils.IsFinite(norm) {
			floats.Scale(1/norm, d)
			return d
		}
	}
}

// StepBounds returns the largest steps t >= 0 such that u + t*d (forward) and
// u - t*d (backward) stay inside [0,1]^k. Components with d_i == 0 do not
// constrain either direction; a direction no component constrains is +Inf.
func StepBounds(u, d []float64) (forward, backward float64) {
	forward, backward = inf, inf
	for i, di := range d {
		switch {
		case di > 0:
			forward = math.Min(forward, (1-u[i])/di)
			backward = math.Min(backward, math.Abs(-u[i]/di))
		case di < 0:
			forward = math.Min(forward, -u[i]/di)
			backward = math.Min(backward, math.Abs((1-u[i])/di))
		}
	}
	return forward, backward
}
