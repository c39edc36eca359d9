package search

import (
	"fmt"
)

// StopCondition ends a run early. It is checked after every persisted iteration.
type StopCondition interface {
	// ShouldStop inspects the history and returns true with a reason to stop
	ShouldStop(h *History) (bool, string)
	// Name returns the name of the stop condition
	Name() string
}

// FalsifiedStop stops once any chain's best objective drops below Threshold,
// i.e. once a sample violating the monitored property has been found.
type FalsifiedStop struct {
	Threshold float64
}

func (s FalsifiedStop) Name() string {
	return "falsified"
}

func (s FalsifiedStop) ShouldStop(h *History) (bool, string) {
	_, best, chain, ok := h.Best()
	if !ok || !(best < s.Threshold) {
		return false, ""
	}
	return true, fmt.Sprintf("chain %d reached objective %g below %g", chain, best, s.Threshold)
}

// NoImprovementStop stops when the best objective over all chains has not
// improved by more than Tolerance during the last Iterations iterations.
type NoImprovementStop struct {
	Iterations int
	Tolerance  float64
}

func (s NoImprovementStop) Name() string {
	return "no_improvement"
}

func (s NoImprovementStop) ShouldStop(h *History) (bool, string) {
	if s.Iterations <= 0 || h.Len() <= s.Iterations {
		return false, ""
	}
	now := bestOf(h.Iteration(h.Len() - 1))
	then := bestOf(h.Iteration(h.Len() - 1 - s.Iterations))
	if then-now > s.Tolerance {
		return false, ""
	}
	return true, fmt.Sprintf("no improvement in %d iterations", s.Iterations)
}

func bestOf(it Iteration) float64 {
	best := it.Chains[0].BestObjective
	for _, c := range it.Chains[1:] {
		if c.BestObjective < best {
			best = c.BestObjective
		}
	}
	return best
}
