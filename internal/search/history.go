package search

import (
	"fmt"
)

// Table names one of the persisted history tables.
type Table int

const (
	// TableBestX holds the best sample of each chain
	TableBestX Table = iota
	// TableBestF holds the best objective of each chain
	TableBestF
	// TableX holds the proposed sample of each chain
	TableX
	// TableF holds the proposed objective of each chain
	TableF
	// TableAcceptedX holds the current (accepted) sample of each chain
	TableAcceptedX
	// TableAccepted holds the accept flag of each chain (1 or 0)
	TableAccepted
)

// Tables lists every history table in persistence order.
var Tables = []Table{TableBestX, TableBestF, TableX, TableF, TableAcceptedX, TableAccepted}

func (t Table) String() string {
	switch t {
	case TableBestX:
		return "best_x_history"
	case TableBestF:
		return "best_f_history"
	case TableX:
		return "x_history"
	case TableF:
		return "f_history"
	case TableAcceptedX:
		return "accept_x_history"
	case TableAccepted:
		return "accept_flags"
	default:
		return fmt.Sprintf("table(%d)", int(t))
	}
}

// Width returns the flattened row width of the table for the given shape.
func (t Table) Width(dim, chains int) int {
	switch t {
	case TableBestX, TableX, TableAcceptedX:
		return dim * chains
	default:
		return chains
	}
}

// ChainStep is what one chain did in one iteration.
type ChainStep struct {
	Proposed          Sample
	ProposedObjective float64
	Accepted          bool
	Current           Sample
	CurrentObjective  float64
	Best              Sample
	BestObjective     float64
}

func (c ChainStep) clone() ChainStep {
	c.Proposed = c.Proposed.Clone()
	c.Current = c.Current.Clone()
	c.Best = c.Best.Clone()
	return c
}

// Iteration is one history row: the steps of every chain at one iteration index.
// Index 0 is the seed state.
type Iteration struct {
	Index       int
	Temperature float64
	Chains      []ChainStep
}

func (it Iteration) clone() Iteration {
	chains := make([]ChainStep, len(it.Chains))
	for j, c := range it.Chains {
		chains[j] = c.clone()
	}
	it.Chains = chains
	return it
}

// Row flattens the iteration into the row of table t: chain-major, then dimension.
func (it Iteration) Row(t Table) []float64 {
	var row []float64
	for _, c := range it.Chains {
		switch t {
		case TableBestX:
			row = append(row, c.Best...)
		case TableBestF:
			row = append(row, c.BestObjective)
		case TableX:
			row = append(row, c.Proposed...)
		case TableF:
			row = append(row, c.ProposedObjective)
		case TableAcceptedX:
			row = append(row, c.Current...)
		case TableAccepted:
			if c.Accepted {
				row = append(row, 1)
			} else {
				row = append(row, 0)
			}
		}
	}
	return row
}

// History is the append-only record of a run, keyed by (iteration, chain).
// Rows are copied on the way in and on the way out, so a written row never changes.
type History struct {
	dim    int
	chains int
	rows   []Iteration
}

// NewHistory creates an empty history for chains of dimension dim.
func NewHistory(dim, chains int) *History {
	return &History{dim: dim, chains: chains}
}

// Dim returns the sample dimension
func (h *History) Dim() int {
	return h.dim
}

// Chains returns the number of parallel chains
func (h *History) Chains() int {
	return h.chains
}

// Len returns the number of rows, i.e. completed iterations plus the seed row
func (h *History) Len() int {
	return len(h.rows)
}

// Append pushes the next row. The row index must equal Len().
func (h *History) Append(it Iteration) error {
	if it.Index != len(h.rows) {
		return fmt.Errorf("%w: expected iteration %d, got %d", ErrHistoryOutOfOrder, len(h.rows), it.Index)
	}
	if len(it.Chains) != h.chains {
		return fmt.Errorf("iteration %d: expected %d chains, got %d", it.Index, h.chains, len(it.Chains))
	}
	for j, c := range it.Chains {
		if len(c.Proposed) != h.dim || len(c.Current) != h.dim || len(c.Best) != h.dim {
			return fmt.Errorf("iteration %d chain %d: samples must have %d coordinates", it.Index, j, h.dim)
		}
	}
	h.rows = append(h.rows, it.clone())
	return nil
}

// Iteration returns a copy of row i
func (h *History) Iteration(i int) Iteration {
	return h.rows[i].clone()
}

// Last returns a copy of the latest row
func (h *History) Last() (Iteration, bool) {
	if len(h.rows) == 0 {
		return Iteration{}, false
	}
	return h.rows[len(h.rows)-1].clone(), true
}

// Row returns row i of table t
func (h *History) Row(t Table, i int) []float64 {
	return h.rows[i].Row(t)
}

// BestX returns row i of the best-sample table
func (h *History) BestX(i int) []float64 { return h.Row(TableBestX, i) }

// BestF returns row i of the best-objective table
func (h *History) BestF(i int) []float64 { return h.Row(TableBestF, i) }

// X returns row i of the proposed-sample table
func (h *History) X(i int) []float64 { return h.Row(TableX, i) }

// F returns row i of the proposed-objective table
func (h *History) F(i int) []float64 { return h.Row(TableF, i) }

// BestObjectiveSeries returns the best objective of chain j at every iteration.
func (h *History) BestObjectiveSeries(j int) []float64 {
	out := make([]float64, len(h.rows))
	for i, it := range h.rows {
		out[i] = it.Chains[j].BestObjective
	}
	return out
}

// AcceptFlags returns the accept flags, one slice per iteration.
func (h *History) AcceptFlags() [][]bool {
	out := make([][]bool, len(h.rows))
	for i, it := range h.rows {
		out[i] = make([]bool, len(it.Chains))
		for j, c := range it.Chains {
			out[i][j] = c.Accepted
		}
	}
	return out
}

// Best returns the best sample over all chains at the latest row.
func (h *History) Best() (Sample, float64, int, bool) {
	last, ok := h.Last()
	if !ok {
		return nil, 0, -1, false
	}
	best := 0
	for j, c := range last.Chains {
		if c.BestObjective < last.Chains[best].BestObjective {
			best = j
		}
	}
	c := last.Chains[best]
	return c.Best, c.BestObjective, best, true
}
