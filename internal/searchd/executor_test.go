package searchd

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GoSim-25-26J-441/scenario-search/internal/ledger"
	"github.com/GoSim-25-26J-441/scenario-search/internal/metrics"
)

func TestExecutorRunsToCompletion(t *testing.T) {
	store := NewRunStore()
	reg := prometheus.NewRegistry()
	e := NewRunExecutor(store, t.TempDir(), metrics.New(reg))

	rec, _ := store.Create("run-1", sphereInput(t, 20))
	started, err := e.Start(rec.Run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.Run.Status != RunStatusRunning {
		t.Fatalf("expected running, got %s", started.Run.Status)
	}
	waitForRun(t, e, rec.Run.ID)

	got, _ := store.Get(rec.Run.ID)
	if got.Run.Status != RunStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Run.Status, got.Run.Error)
	}
	if got.Run.Iterations != 20 || !got.Run.HasBest {
		t.Fatalf("unexpected progress: %+v", got.Run)
	}
	if got.Run.OutputDir != e.OutputDir(rec.Run.ID) {
		t.Fatalf("unexpected output dir %q", got.Run.OutputDir)
	}

	h, err := ledger.Load(got.Run.OutputDir, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != 21 {
		t.Fatalf("expected 21 rows, got %d", h.Len())
	}
	_, best, _, _ := h.Best()
	if best != got.Run.BestObjective {
		t.Fatalf("store best %v differs from history best %v", got.Run.BestObjective, best)
	}

	if n, _ := testutil.GatherAndCount(reg, "scenario_search_runs_total"); n != 1 {
		t.Fatalf("expected one runs_total series, got %d", n)
	}
}

func TestExecutorStartErrors(t *testing.T) {
	store := NewRunStore()
	e := NewRunExecutor(store, t.TempDir(), nil)

	if _, err := e.Start(""); !errors.Is(err, ErrRunIDMissing) {
		t.Fatalf("expected ErrRunIDMissing, got %v", err)
	}
	if _, err := e.Start("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	rec, _ := store.Create("run-1", sphereInput(t, 2))
	if _, err := e.Start(rec.Run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForRun(t, e, rec.Run.ID)
	if _, err := e.Start(rec.Run.ID); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
	if _, err := e.Stop(rec.Run.ID); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal on stop, got %v", err)
	}
}

func TestExecutorStopKeepsPersistedRows(t *testing.T) {
	store := NewRunStore()
	e := NewRunExecutor(store, t.TempDir(), nil)

	rec, _ := store.Create("run-1", sphereInput(t, 1000000))
	if _, err := e.Start(rec.Run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForIterations(t, store, rec.Run.ID, 3)

	stopped, err := e.Stop(rec.Run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stopped.Run.Status != RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", stopped.Run.Status)
	}
	waitForRun(t, e, rec.Run.ID)

	got, _ := store.Get(rec.Run.ID)
	if got.Run.Status != RunStatusCancelled {
		t.Fatalf("expected run to stay cancelled, got %s", got.Run.Status)
	}
	h, err := ledger.Load(got.Run.OutputDir, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() < 4 || h.Len() > 1000001 {
		t.Fatalf("unexpected persisted rows %d", h.Len())
	}
	if h.Len()-1 < got.Run.Iterations {
		t.Fatalf("store reports %d iterations but only %d rows are on disk", got.Run.Iterations, h.Len())
	}
}

func TestExecutorStopPendingRun(t *testing.T) {
	store := NewRunStore()
	e := NewRunExecutor(store, t.TempDir(), nil)

	rec, _ := store.Create("run-1", sphereInput(t, 5))
	stopped, err := e.Stop(rec.Run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stopped.Run.Status != RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", stopped.Run.Status)
	}
	if _, err := e.Start(rec.Run.ID); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
}

func TestExecutorFailedRun(t *testing.T) {
	store := NewRunStore()
	e := NewRunExecutor(store, t.TempDir(), nil)

	// an unparseable config is only caught when the run starts
	rec, _ := store.Create("run-1", &RunInput{ConfigYAML: "search: ["})
	if _, err := e.Start(rec.Run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForRun(t, e, rec.Run.ID)

	got, _ := store.Get(rec.Run.ID)
	if got.Run.Status != RunStatusFailed {
		t.Fatalf("expected failed, got %s", got.Run.Status)
	}
	if !strings.Contains(got.Run.Error, "invalid config") {
		t.Fatalf("unexpected error message %q", got.Run.Error)
	}
}

func TestExecutorShutdownCancelsRuns(t *testing.T) {
	store := NewRunStore()
	e := NewRunExecutor(store, t.TempDir(), nil)

	rec, _ := store.Create("run-1", sphereInput(t, 1000000))
	if _, err := e.Start(rec.Run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForIterations(t, store, rec.Run.ID, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := store.Get(rec.Run.ID)
	if got.Run.Status != RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Run.Status)
	}
}

func TestExecutorConcurrentStartLaunchesOnce(t *testing.T) {
	store := NewRunStore()
	reg := prometheus.NewRegistry()
	e := NewRunExecutor(store, t.TempDir(), metrics.New(reg))

	rec, _ := store.Create("run-1", sphereInput(t, 1000000))

	const callers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := e.Start(rec.Run.ID)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got.Run.Status != RunStatusRunning {
				t.Errorf("expected running, got %s", got.Run.Status)
			}
		}()
	}
	close(start)
	wg.Wait()

	waitForIterations(t, store, rec.Run.ID, 10)
	if _, err := e.Stop(rec.Run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForRun(t, e, rec.Run.ID)

	got, _ := store.Get(rec.Run.ID)
	h, err := ledger.Load(got.Run.OutputDir, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len()-1 < got.Run.Iterations {
		t.Fatalf("store reports %d iterations but only %d rows are on disk", got.Run.Iterations, h.Len())
	}

	want := `
# HELP scenario_search_runs_total Finished runs by final status
# TYPE scenario_search_runs_total counter
scenario_search_runs_total{status="cancelled"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "scenario_search_runs_total"); err != nil {
		t.Fatalf("expected a single search goroutine: %v", err)
	}
}

func TestExecutorDropsRunMetrics(t *testing.T) {
	store := NewRunStore()
	reg := prometheus.NewRegistry()
	e := NewRunExecutor(store, t.TempDir(), metrics.New(reg)).WithMetricsRetention(0)

	rec, _ := store.Create("run-1", sphereInput(t, 5))
	if _, err := e.Start(rec.Run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForRun(t, e, rec.Run.ID)

	for _, name := range []string{
		"scenario_search_iterations_total",
		"scenario_search_best_objective",
		"scenario_search_temperature",
	} {
		if n, err := testutil.GatherAndCount(reg, name); err != nil || n != 0 {
			t.Fatalf("expected %s to be dropped, got %d series (%v)", name, n, err)
		}
	}
	if n, _ := testutil.GatherAndCount(reg, "scenario_search_runs_total"); n != 1 {
		t.Fatalf("expected runs_total to survive, got %d series", n)
	}
}
