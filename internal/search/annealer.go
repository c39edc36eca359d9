package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GoSim-25-26J-441/scenario-search/pkg/logger"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

// Sink receives every history row as soon as it is complete. Append must make
// the row durable before returning.
type Sink interface {
	Append(it Iteration) error
}

// ProgressReporter is called after each persisted iteration
type ProgressReporter func(it Iteration)

// Annealer runs independent hit-and-run chains with a Metropolis-style
// acceptance rule and a shared, iteration-driven temperature.
type Annealer struct {
	objective   Objective
	space       *Space
	iterations  int
	sampler     Sampler
	schedule    Schedule
	seed        int64
	concurrency int
	sinks       []Sink
	stops       []StopCondition
	progress    ProgressReporter
	log         *slog.Logger
}

// Result contains the outcome of a run
type Result struct {
	History        *History
	BestSamples    []Sample
	BestObjectives []float64
	AcceptFlags    [][]bool
	// Iterations is the number of completed iterations, excluding the seed row.
	Iterations int
	Stopped    bool
	StopReason string
	Duration   time.Duration
}

// NewAnnealer creates an annealer that performs the given number of iterations
// (the seed row is extra) over space.
func NewAnnealer(objective Objective, space *Space, iterations int) *Annealer {
	return &Annealer{
		objective:  objective,
		space:      space,
		iterations: iterations,
		sampler:    NewHitAndRun(),
		schedule:   NewLinearSchedule(DefaultTSched),
	}
}

// WithSampler sets the candidate sampler
func (a *Annealer) WithSampler(sampler Sampler) *Annealer {
	a.sampler = sampler
	return a
}

// WithSchedule sets the temperature schedule
func (a *Annealer) WithSchedule(schedule Schedule) *Annealer {
	a.schedule = schedule
	return a
}

// WithSeed sets the random seed; each chain draws from its own stream derived from it.
// Zero means time-seeded.
func (a *Annealer) WithSeed(seed int64) *Annealer {
	a.seed = seed
	return a
}

// WithConcurrency evaluates up to n chains of one iteration concurrently.
// n <= 1 keeps the sequential, fixed-order evaluation.
func (a *Annealer) WithConcurrency(n int) *Annealer {
	a.concurrency = n
	return a
}

// WithSink adds a history sink
func (a *Annealer) WithSink(sink Sink) *Annealer {
	a.sinks = append(a.sinks, sink)
	return a
}

// WithStopCondition adds an early stop condition
func (a *Annealer) WithStopCondition(stop StopCondition) *Annealer {
	a.stops = append(a.stops, stop)
	return a
}

// WithProgressReporter sets a callback invoked after each iteration
func (a *Annealer) WithProgressReporter(reporter ProgressReporter) *Annealer {
	a.progress = reporter
	return a
}

// WithLogger sets the logger
func (a *Annealer) WithLogger(log *slog.Logger) *Annealer {
	a.log = log
	return a
}

func (a *Annealer) validate() error {
	if a.objective == nil {
		return fmt.Errorf("objective is required")
	}
	if a.space == nil {
		return fmt.Errorf("%w: search space is required", ErrInvalidSpace)
	}
	if a.iterations < 0 {
		return fmt.Errorf("iterations cannot be negative, got %d", a.iterations)
	}
	if a.sampler == nil || a.schedule == nil {
		return fmt.Errorf("sampler and schedule are required")
	}
	return nil
}

func (a *Annealer) logger() *slog.Logger {
	if a.log != nil {
		return a.log
	}
	return logger.With("component", "annealer")
}

// Run seeds one chain per seed sample and iterates until the configured number
// of iterations, a stop condition, or ctx cancellation. Seeds must lie inside
// the space; nothing is evaluated otherwise.
//
// On cancellation the partial result is returned together with the context error;
// every row it contains has already been written to the sinks.
func (a *Annealer) Run(ctx context.Context, seeds []Sample) (*Result, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: at least one seed sample is required", ErrInvalidSample)
	}
	for j, seed := range seeds {
		if err := a.space.Validate(seed); err != nil {
			return nil, fmt.Errorf("seed %d: %w", j, err)
		}
	}

	start := time.Now()
	log := a.logger()
	log.Info("search started",
		"chains", len(seeds),
		"iterations", a.iterations,
		"dimensions", a.space.Dim(),
		"sampler", a.sampler.Name())

	h := NewHistory(a.space.Dim(), len(seeds))
	values, err := a.evaluateAll(ctx, 0, seeds)
	if err != nil {
		return nil, err
	}

	steps := make([]ChainStep, len(seeds))
	for j, seed := range seeds {
		steps[j] = ChainStep{
			Proposed:          seed,
			ProposedObjective: values[j],
			Accepted:          true,
			Current:           seed,
			CurrentObjective:  values[j],
			Best:              seed,
			BestObjective:     values[j],
		}
	}
	seedRow := Iteration{Index: 0, Temperature: a.schedule.Temperature(0), Chains: steps}
	if err := a.commit(h, seedRow); err != nil {
		return nil, err
	}

	res, err := a.iterate(ctx, h, a.chainSources(0, len(seeds)))
	if res != nil {
		res.Duration = time.Since(start)
	}
	return res, err
}

// Resume continues a run from a previously recorded history, up to the
// configured total number of iterations. Existing rows are not written again.
func (a *Annealer) Resume(ctx context.Context, h *History) (*Result, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	if h == nil || h.Len() == 0 {
		return nil, fmt.Errorf("cannot resume from an empty history")
	}
	if h.Dim() != a.space.Dim() {
		return nil, fmt.Errorf("%w: history has %d dimensions, space has %d", ErrInvalidSample, h.Dim(), a.space.Dim())
	}
	last, _ := h.Last()
	for j, c := range last.Chains {
		if err := a.space.Validate(c.Current); err != nil {
			return nil, fmt.Errorf("resume chain %d: %w", j, err)
		}
	}

	start := time.Now()
	a.logger().Info("search resumed",
		"chains", h.Chains(),
		"completed_iterations", h.Len()-1,
		"iterations", a.iterations)

	res, err := a.iterate(ctx, h, a.chainSources(h.Len()-1, h.Chains()))
	if res != nil {
		res.Duration = time.Since(start)
	}
	return res, err
}

// chainSources derives one random stream per chain. offset separates the
// streams of a resumed run from those of the original run.
func (a *Annealer) chainSources(offset, chains int) []*utils.RandSource {
	root := utils.NewRandSource(a.seed)
	rngs := make([]*utils.RandSource, chains)
	for j := range rngs {
		rngs[j] = root.Derive(offset*chains + j)
	}
	return rngs
}

func (a *Annealer) iterate(ctx context.Context, h *History, rngs []*utils.RandSource) (*Result, error) {
	log := a.logger()
	last, _ := h.Last()
	state := last.Chains

	for i := h.Len(); i <= a.iterations; i++ {
		if err := ctx.Err(); err != nil {
			log.Warn("search cancelled", "completed_iterations", h.Len()-1, "error", err)
			return a.result(h, true, "cancelled"), err
		}

		// Row i is produced by the (i-1)-th pass of the loop, whose temperature it carries.
		temperature := a.schedule.Temperature(i - 1)

		candidates := make([]Sample, len(state))
		for j, s := range state {
			candidates[j] = a.sampler.Next(s.Current, a.space, rngs[j])
		}

		values, err := a.evaluateAll(ctx, i, candidates)
		if err != nil {
			if ctx.Err() != nil {
				return a.result(h, true, "cancelled"), err
			}
			return a.result(h, false, ""), err
		}

		next := make([]ChainStep, len(state))
		for j, s := range state {
			step := ChainStep{
				Proposed:          candidates[j],
				ProposedObjective: values[j],
				Current:           s.Current,
				CurrentObjective:  s.CurrentObjective,
				Best:              s.Best,
				BestObjective:     s.BestObjective,
			}
			step.Accepted = Accept(values[j], s.CurrentObjective, temperature, rngs[j])
			if step.Accepted {
				step.Current = candidates[j]
				step.CurrentObjective = values[j]
			}
			if values[j] < step.BestObjective {
				step.Best = candidates[j]
				step.BestObjective = values[j]
			}
			next[j] = step

			log.Debug("chain step",
				"iteration", i,
				"chain", j,
				"temperature", temperature,
				"proposed_objective", values[j],
				"accepted", step.Accepted,
				"best_objective", step.BestObjective)
		}

		row := Iteration{Index: i, Temperature: temperature, Chains: next}
		if err := a.commit(h, row); err != nil {
			return a.result(h, false, ""), err
		}
		state = next

		for _, stop := range a.stops {
			if ok, reason := stop.ShouldStop(h); ok {
				log.Info("search stopped early", "condition", stop.Name(), "reason", reason, "iteration", i)
				return a.result(h, true, reason), nil
			}
		}
	}

	res := a.result(h, false, "")
	log.Info("search finished", "iterations", res.Iterations, "best_objectives", res.BestObjectives)
	return res, nil
}

// evaluateAll evaluates one candidate per chain, in chain order unless concurrency is enabled.
func (a *Annealer) evaluateAll(ctx context.Context, iteration int, candidates []Sample) ([]float64, error) {
	values := make([]float64, len(candidates))

	if a.concurrency <= 1 || len(candidates) == 1 {
		for j, x := range candidates {
			v, err := a.evaluate(ctx, iteration, j, x)
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		return values, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for j, x := range candidates {
		g.Go(func() error {
			v, err := a.evaluate(gctx, iteration, j, x)
			if err != nil {
				return err
			}
			values[j] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (a *Annealer) evaluate(ctx context.Context, iteration, chain int, x Sample) (float64, error) {
	v, err := a.objective.Evaluate(ctx, x.Clone())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: iteration %d chain %d at %s: %w", ErrObjectiveFailed, iteration, chain, x, err)
	}
	if !utils.IsFinite(v) {
		return 0, fmt.Errorf("%w: iteration %d chain %d at %s: non-finite value %v", ErrObjectiveFailed, iteration, chain, x, v)
	}
	return v, nil
}

// commit appends the row to the history and writes it through every sink
// before the next iteration starts.
func (a *Annealer) commit(h *History, it Iteration) error {
	if err := h.Append(it); err != nil {
		return err
	}
	for _, sink := range a.sinks {
		if err := sink.Append(it); err != nil {
			return fmt.Errorf("failed to persist iteration %d: %w", it.Index, err)
		}
	}
	if a.progress != nil {
		a.progress(it)
	}
	return nil
}

func (a *Annealer) result(h *History, stopped bool, reason string) *Result {
	res := &Result{
		History:     h,
		AcceptFlags: h.AcceptFlags(),
		Iterations:  h.Len() - 1,
		Stopped:     stopped,
		StopReason:  reason,
	}
	if last, ok := h.Last(); ok {
		res.BestSamples = make([]Sample, len(last.Chains))
		res.BestObjectives = make([]float64, len(last.Chains))
		for j, c := range last.Chains {
			res.BestSamples[j] = c.Best
			res.BestObjectives[j] = c.BestObjective
		}
	}
	if res.Iterations < 0 {
		res.Iterations = 0
	}
	return res
}
