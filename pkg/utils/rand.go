package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource is a seeded random number generator that is safe for concurrent use.
type RandSource struct {
	mu   sync.Mutex
	seed int64
	rng  *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed is replaced by the current time.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the source was created with
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Derive returns an independent source for stream i, deterministic in (seed, i)
func (r *RandSource) Derive(i int) *RandSource {
	// splitmix64 constant keeps neighbouring streams apart
	s := r.seed + int64(i+1)*-7046029254386353131
	if s == 0 {
		s = 1
	}
	return NewRandSource(s)
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// NormFloat64 returns a normally distributed random number with mean and stddev
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.NormFloat64()*stddev + mean
}

// NormVector returns n independent standard normal draws
func (r *RandSource) NormVector(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, n)
	for i := range out {
		out[i] = r.rng.NormFloat64()
	}
	return out
}

// UniformFloat64 returns a uniformly distributed random number in [lo, hi)
func (r *RandSource) UniformFloat64(lo, hi float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rng.Float64()*(hi-lo)
}

var defaultRand = NewRandSource(0)

// Float64 returns a random float64 from the default source
func Float64() float64 {
	return defaultRand.Float64()
}
