package search

import (
	"math"

	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

// DefaultTSched is the default cooling-rate constant of LinearSchedule.
const DefaultTSched = 100.0

// Schedule maps an iteration index to the acceptance temperature.
type Schedule interface {
	Temperature(iteration int) float64
}

// LinearSchedule returns iteration/TSched. The value grows without bound, so
// non-improving moves become less likely as the run progresses.
type LinearSchedule struct {
	TSched float64
}

// NewLinearSchedule returns a linear schedule; non-positive tsched falls back to DefaultTSched.
func NewLinearSchedule(tsched float64) LinearSchedule {
	if tsched <= 0 || !utils.IsFinite(tsched) {
		tsched = DefaultTSched
	}
	return LinearSchedule{TSched: tsched}
}

func (s LinearSchedule) Temperature(iteration int) float64 {
	return float64(iteration) / s.TSched
}

// AcceptanceProbability is 1 for improvements and min(1, exp((current-proposed)*temperature)) otherwise.
func AcceptanceProbability(proposed, current, temperature float64) float64 {
	if proposed < current {
		return 1
	}
	return math.Min(1, math.Exp((current-proposed)*temperature))
}

// Accept decides whether a chain moves to the proposed objective value.
// Improvements are always accepted; otherwise a single uniform draw is
// compared against exp((current-proposed)*temperature).
func Accept(proposed, current, temperature float64, rng *utils.RandSource) bool {
	if proposed < current {
		return true
	}
	threshold := math.Exp((current - proposed) * temperature)
	return rng.Float64() <= threshold
}
