// Package runner assembles a complete search run from a configuration: the
// space, the objective, the history ledger and the annealer.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GoSim-25-26J-441/scenario-search/internal/ledger"
	"github.com/GoSim-25-26J-441/scenario-search/internal/metrics"
	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
	"github.com/GoSim-25-26J-441/scenario-search/internal/simulator"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/logger"
)

// ConfigSnapshot is the file name of the config copy kept next to the history
const ConfigSnapshot = "config.yaml"

// Options adjusts how a configuration is executed
type Options struct {
	// OutputDir overrides cfg.Output.Dir
	OutputDir string
	// Resume continues from an existing ledger in the output directory
	Resume bool
	// RunID labels logs and metrics
	RunID    string
	Metrics  *metrics.Metrics
	Progress search.ProgressReporter
	Logger   *slog.Logger
}

// Space builds the search space from the configured parameters
func Space(cfg *config.Config) (*search.Space, error) {
	params := make([]search.Parameter, len(cfg.Search.Parameters))
	for i, p := range cfg.Search.Parameters {
		params[i] = search.Parameter{Name: p.Name, Min: p.Min, Max: p.Max}
	}
	return search.NewSpace(params...)
}

// Seeds returns the configured seed samples, one per chain
func Seeds(cfg *config.Config) []search.Sample {
	seeds := make([]search.Sample, len(cfg.Search.Seeds))
	for i, s := range cfg.Search.Seeds {
		seeds[i] = search.Sample(s).Clone()
	}
	return seeds
}

// Objective builds the configured objective. The returned closer releases
// its resources and is never nil.
func Objective(cfg *config.Config, space *search.Space) (search.Objective, io.Closer, error) {
	if cfg.Objective.Kind == config.ObjectiveSimulator {
		sim, err := simulator.NewFromConfig(&cfg.Objective, space.Names())
		if err != nil {
			return nil, nil, err
		}
		return sim, sim, nil
	}
	obj, err := search.NewBenchmarkObjective(cfg.Objective.Kind)
	if err != nil {
		return nil, nil, err
	}
	return obj, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// StopConditions returns the configured early stop conditions
func StopConditions(cfg *config.Config) []search.StopCondition {
	stop := cfg.Search.Stop
	if stop == nil {
		return nil
	}
	var out []search.StopCondition
	if stop.OnFalsification {
		out = append(out, search.FalsifiedStop{Threshold: stop.Threshold})
	}
	if stop.NoImprovementIterations > 0 {
		out = append(out, search.NoImprovementStop{Iterations: stop.NoImprovementIterations, Tolerance: stop.Tolerance})
	}
	return out
}

// Execute runs (or resumes) the search described by cfg and writes its history
// to the output directory. Rows are durable as soon as they are reported.
func Execute(ctx context.Context, cfg *config.Config, opts Options) (*search.Result, error) {
	log := opts.Logger
	switch {
	case log != nil && opts.RunID != "":
		log = log.With("run_id", opts.RunID)
	case log == nil && opts.RunID != "":
		log = logger.ForRun(opts.RunID)
	case log == nil:
		log = logger.Default
	}

	space, err := Space(cfg)
	if err != nil {
		return nil, err
	}
	seeds := Seeds(cfg)
	for i, seed := range seeds {
		if err := space.Validate(seed); err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
	}

	objective, closer, err := Objective(cfg, space)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	if opts.Metrics != nil {
		objective = opts.Metrics.Instrument(objective)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	resume := opts.Resume || cfg.Output.Resume

	annealer := search.NewAnnealer(objective, space, cfg.Search.Iterations).
		WithSchedule(search.NewLinearSchedule(cfg.Search.TSched)).
		WithSeed(cfg.Search.Seed).
		WithConcurrency(cfg.Search.ConcurrentChains).
		WithLogger(log.With("component", "annealer")).
		WithProgressReporter(progress(opts))
	for _, stop := range StopConditions(cfg) {
		annealer.WithStopCondition(stop)
	}

	if resume && ledgerExists(dir) {
		w, h, err := ledger.OpenAppend(dir, space.Dim(), len(seeds))
		if err != nil {
			return nil, fmt.Errorf("failed to open history for resume: %w", err)
		}
		defer w.Close()
		if err := writeSnapshot(dir, cfg); err != nil {
			return nil, err
		}
		if h.Len() > 0 {
			log.Info("resuming search", "dir", dir, "completed_iterations", h.Len()-1)
			return annealer.WithSink(w).Resume(ctx, h)
		}
		// nothing complete was recorded; start over in the same files
		return annealer.WithSink(w).Run(ctx, seeds)
	}

	w, err := ledger.Create(dir, space.Dim(), len(seeds))
	if err != nil {
		return nil, err
	}
	defer w.Close()
	if err := writeSnapshot(dir, cfg); err != nil {
		return nil, err
	}
	return annealer.WithSink(w).Run(ctx, seeds)
}

func progress(opts Options) search.ProgressReporter {
	var reporters []search.ProgressReporter
	if opts.Metrics != nil {
		reporters = append(reporters, opts.Metrics.Reporter(opts.RunID))
	}
	if opts.Progress != nil {
		reporters = append(reporters, opts.Progress)
	}
	return func(it search.Iteration) {
		for _, r := range reporters {
			r(it)
		}
	}
}

func ledgerExists(dir string) bool {
	_, err := os.Stat(ledger.Path(dir, search.TableBestX))
	return err == nil
}

func writeSnapshot(dir string, cfg *config.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigSnapshot), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config snapshot: %w", err)
	}
	return nil
}

// IsConfigError reports whether err was caused by the configuration rather than the run
func IsConfigError(err error) bool {
	var unknown *search.UnknownObjectiveError
	return errors.Is(err, search.ErrInvalidSpace) ||
		errors.Is(err, search.ErrInvalidSample) ||
		errors.Is(err, search.ErrSampleOutOfBounds) ||
		errors.As(err, &unknown)
}
