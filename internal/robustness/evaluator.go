package robustness

import (
	"fmt"

	"github.com/GoSim-25-26J-441/scenario-search/internal/trajectory"
)

// Semantics selects the temporal reduction
type Semantics string

const (
	// SemanticsAlways is the minimum margin
	SemanticsAlways Semantics = "always"
	// SemanticsEventually is the maximum margin
	SemanticsEventually Semantics = "eventually"
)

// Evaluator scores a trajectory table by one of its columns.
type Evaluator struct {
	// Column is the index of the monitored signal
	Column int
	// Threshold is subtracted from every sample
	Threshold float64
	// CollisionColumn holds a 0/1 collision flag per frame; negative disables it.
	CollisionColumn int
	// Semantics defaults to SemanticsAlways
	Semantics Semantics
}

// NewEvaluator returns an "always" evaluator of the separation column with no collision column.
func NewEvaluator() Evaluator {
	return Evaluator{
		Column:          trajectory.ColumnSeparation,
		CollisionColumn: -1,
		Semantics:       SemanticsAlways,
	}
}

// Verdict is the outcome of evaluating one trajectory
type Verdict struct {
	Robustness float64
	Collision  bool
	Frames     int
}

// Evaluate scores the table. Empty tables and missing columns are errors.
func (e Evaluator) Evaluate(table trajectory.Table) (Verdict, error) {
	signal, err := table.Column(e.Column)
	if err != nil {
		return Verdict{}, err
	}

	var rob float64
	switch e.Semantics {
	case SemanticsAlways, "":
		rob, err = Always(signal, e.Threshold)
	case SemanticsEventually:
		rob, err = Eventually(signal, e.Threshold)
	default:
		return Verdict{}, fmt.Errorf("unknown robustness semantics: %s", e.Semantics)
	}
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Robustness: rob, Frames: table.Frames()}
	if e.CollisionColumn >= 0 {
		flags, err := table.Column(e.CollisionColumn)
		if err != nil {
			return Verdict{}, fmt.Errorf("collision column: %w", err)
		}
		peak, _ := Eventually(flags, 0)
		v.Collision = peak > 0
	}
	return v, nil
}

// EvaluateFile reads a trajectory file and scores it
func (e Evaluator) EvaluateFile(path string) (Verdict, error) {
	table, err := trajectory.ReadFile(path)
	if err != nil {
		return Verdict{}, err
	}
	v, err := e.Evaluate(table)
	if err != nil {
		return Verdict{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
