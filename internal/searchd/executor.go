package searchd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/scenario-search/internal/metrics"
	"github.com/GoSim-25-26J-441/scenario-search/internal/runner"
	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/logger"
)

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store      *RunStore
	outputRoot string
	metrics    *metrics.Metrics
	// retention is how long the per-run series of a finished run stay exported
	retention time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
	wg      sync.WaitGroup
}

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
	ErrRunExists    = errors.New("run already exists")
	ErrInvalidRunID = errors.New("invalid run_id")
)

// DefaultMetricsRetention keeps the per-run series of a finished run long enough for a few scrapes
const DefaultMetricsRetention = 15 * time.Minute

// NewRunExecutor creates an executor writing each run's history to
// outputRoot/<run_id>. m may be nil.
func NewRunExecutor(store *RunStore, outputRoot string, m *metrics.Metrics) *RunExecutor {
	if outputRoot == "" {
		outputRoot = config.DefaultOutputDir
	}
	return &RunExecutor{
		store:      store,
		outputRoot: outputRoot,
		metrics:    m,
		retention:  DefaultMetricsRetention,
		cancels:    make(map[string]context.CancelFunc),
		done:       make(map[string]chan struct{}),
	}
}

// WithMetricsRetention sets how long per-run metric series outlive their run.
// Zero drops them as soon as the run finishes; a negative value keeps them.
func (e *RunExecutor) WithMetricsRetention(d time.Duration) *RunExecutor {
	e.retention = d
	return e
}

// OutputDir returns the directory the history of runID is written to
func (e *RunExecutor) OutputDir(runID string) string {
	return filepath.Join(e.outputRoot, runID)
}

// Start begins executing a run asynchronously.
// Returns the updated run state (RUN_STATUS_RUNNING) or an error. Starting a
// run that is already running returns its record without starting it again.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	// held across the transition so Stop always finds the cancel func of a running run
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, started, err := e.store.MarkRunning(runID, e.OutputDir(runID))
	if err != nil || !started {
		return rec, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancels[runID] = cancel
	done := make(chan struct{})
	e.done[runID] = done

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(done)
		e.runSearch(ctx, runID)
	}()
	return rec, nil
}

// Stop requests cancellation for a pending or running run and marks it cancelled.
// Rows written before the stop remain in the run's output directory.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, err := e.store.MarkCancelled(runID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return rec, nil
}

// Wait blocks until the goroutine of runID has returned or ctx is done. It
// returns immediately for runs that were never started.
func (e *RunExecutor) Wait(ctx context.Context, runID string) error {
	e.mu.Lock()
	done, ok := e.done[runID]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels every active run and waits for them to return.
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) runSearch(ctx context.Context, runID string) {
	defer e.cleanup(runID)
	log := logger.ForRun(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		log.Error("run not found")
		return
	}

	cfg, err := runConfig(rec.Input)
	if err != nil {
		log.Error("failed to parse config YAML", "error", err)
		e.finish(runID, RunStatusFailed, fmt.Sprintf("invalid config: %v", err))
		return
	}

	if e.metrics != nil {
		e.metrics.RunStarted()
	}

	log.Info("starting search", "output_dir", rec.Run.OutputDir, "iterations", cfg.Search.Iterations)
	res, err := runner.Execute(ctx, cfg, runner.Options{
		OutputDir: rec.Run.OutputDir,
		RunID:     runID,
		Metrics:   e.metrics,
		Progress: func(it search.Iteration) {
			if err := e.store.SetProgress(runID, it); err != nil {
				log.Warn("failed to record progress", "iteration", it.Index, "error", err)
			}
		},
	})
	if res != nil && res.Stopped {
		if err := e.store.SetStopReason(runID, res.StopReason); err != nil {
			log.Warn("failed to record stop reason", "error", err)
		}
	}

	status := RunStatusCompleted
	switch {
	case ctx.Err() != nil:
		log.Info("search cancelled")
		status = RunStatusCancelled
		e.finish(runID, status, "")
	case err != nil:
		log.Error("search failed", "error", err)
		status = RunStatusFailed
		e.finish(runID, status, err.Error())
	default:
		log.Info("search completed", "iterations", res.Iterations, "best_objectives", res.BestObjectives)
		e.finish(runID, status, "")
	}
	if e.metrics != nil {
		e.metrics.RunFinished(statusLabel(status))
		e.forgetMetrics(runID)
	}
}

func (e *RunExecutor) forgetMetrics(runID string) {
	switch {
	case e.retention < 0:
	case e.retention == 0:
		e.metrics.Forget(runID)
	default:
		time.AfterFunc(e.retention, func() { e.metrics.Forget(runID) })
	}
}

// finish records the final status unless Stop already did
func (e *RunExecutor) finish(runID string, status RunStatus, errMsg string) {
	if _, err := e.store.FinishIfRunning(runID, status, errMsg); err != nil {
		logger.Error("failed to set final status", "run_id", runID, "error", err)
	}
}

func statusLabel(status RunStatus) string {
	switch status {
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	case RunStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func runConfig(input *RunInput) (*config.Config, error) {
	if input == nil {
		return nil, fmt.Errorf("run has no input")
	}
	if input.Config != nil {
		return input.Config, nil
	}
	return config.ParseConfigYAMLString(input.ConfigYAML)
}
