package search

import (
	"context"
	"math"
)

// Objective maps a sample to a scalar. Lower is better.
// Implementations must return a finite value or an error; the annealer treats
// either failure as fatal, so transient failures are retried inside Evaluate.
type Objective interface {
	Evaluate(ctx context.Context, x Sample) (float64, error)
}

// ObjectiveFunc adapts a function to Objective
type ObjectiveFunc func(ctx context.Context, x Sample) (float64, error)

func (f ObjectiveFunc) Evaluate(ctx context.Context, x Sample) (float64, error) {
	return f(ctx, x)
}

// BenchmarkType names a synthetic objective
type BenchmarkType string

const (
	// BenchmarkSphere is sum(x_i^2)
	BenchmarkSphere BenchmarkType = "sphere"
	// BenchmarkRastrigin is 10n + sum(x_i^2 - 10 cos(2 pi x_i))
	BenchmarkRastrigin BenchmarkType = "rastrigin"
	// BenchmarkRosenbrock is sum(100 (x_{i+1} - x_i^2)^2 + (1 - x_i)^2)
	BenchmarkRosenbrock BenchmarkType = "rosenbrock"
)

// NewBenchmarkObjective creates a synthetic objective from its name
func NewBenchmarkObjective(name string) (Objective, error) {
	switch BenchmarkType(name) {
	case BenchmarkSphere:
		return ObjectiveFunc(sphere), nil
	case BenchmarkRastrigin:
		return ObjectiveFunc(rastrigin), nil
	case BenchmarkRosenbrock:
		return ObjectiveFunc(rosenbrock), nil
	default:
		return nil, &UnknownObjectiveError{ObjectiveType: name}
	}
}

// IsBenchmark reports whether name is a known synthetic objective
func IsBenchmark(name string) bool {
	switch BenchmarkType(name) {
	case BenchmarkSphere, BenchmarkRastrigin, BenchmarkRosenbrock:
		return true
	}
	return false
}

func sphere(_ context.Context, x Sample) (float64, error) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum, nil
}

func rastrigin(_ context.Context, x Sample) (float64, error) {
	const a = 10.0
	sum := a * float64(len(x))
	for _, v := range x {
		sum += v*v - a*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

func rosenbrock(_ context.Context, x Sample) (float64, error) {
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		d := x[i+1] - x[i]*x[i]
		sum += 100*d*d + (1-x[i])*(1-x[i])
	}
	return sum, nil
}

// UnknownObjectiveError indicates an unknown objective type
type UnknownObjectiveError struct {
	ObjectiveType string
}

func (e *UnknownObjectiveError) Error() string {
	return "unknown objective type: " + e.ObjectiveType
}
