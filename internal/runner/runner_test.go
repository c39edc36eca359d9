package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoSim-25-26J-441/scenario-search/internal/ledger"
	"github.com/GoSim-25-26J-441/scenario-search/internal/metrics"
	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
)

func sphereConfig(t *testing.T, iterations int) *config.Config {
	t.Helper()
	cfg, err := config.ParseConfigYAMLString(`
search:
  iterations: 10
  seed: 9
  parameters:
    - {name: x, min: -5, max: 5}
    - {name: y, min: -5, max: 5}
  seeds: [[4, 4], [-3, 1]]
objective:
  kind: sphere
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Search.Iterations = iterations
	return cfg
}

func TestExecuteWritesHistory(t *testing.T) {
	cfg := sphereConfig(t, 10)
	dir := t.TempDir()

	res, err := Execute(context.Background(), cfg, Options{OutputDir: dir, RunID: "run-a", Metrics: metrics.New(prometheus.NewRegistry())})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Iterations != 10 {
		t.Fatalf("expected 10 iterations, got %d", res.Iterations)
	}

	h, err := ledger.Load(dir, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != 11 {
		t.Fatalf("expected 11 rows on disk, got %d", h.Len())
	}
	if _, err := config.LoadConfig(filepath.Join(dir, ConfigSnapshot)); err != nil {
		t.Fatalf("config snapshot is not loadable: %v", err)
	}
}

func TestExecuteResume(t *testing.T) {
	dir := t.TempDir()
	first, err := Execute(context.Background(), sphereConfig(t, 5), Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prefix := first.History.BestF(5)

	res, err := Execute(context.Background(), sphereConfig(t, 12), Options{OutputDir: dir, Resume: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.History.Len() != 13 {
		t.Fatalf("expected 13 rows after resume, got %d", res.History.Len())
	}
	if diff := cmp.Diff(prefix, res.History.BestF(5)); diff != "" {
		t.Fatalf("resumed history changed an old row:\n%s", diff)
	}
}

func TestExecuteResumeWithoutLedgerStartsFresh(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "new")
	res, err := Execute(context.Background(), sphereConfig(t, 3), Options{OutputDir: dir, Resume: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.History.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", res.History.Len())
	}
}

func TestExecuteStopOnFalsification(t *testing.T) {
	cfg := sphereConfig(t, 500)
	cfg.Search.Stop = &config.Stop{OnFalsification: true, Threshold: 1}

	res, err := Execute(context.Background(), cfg, Options{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Stopped {
		t.Fatalf("expected the run to stop once the objective fell below 1")
	}
}

func TestStopConditions(t *testing.T) {
	cfg := sphereConfig(t, 1)
	if len(StopConditions(cfg)) != 0 {
		t.Fatalf("expected no stop conditions by default")
	}
	cfg.Search.Stop = &config.Stop{OnFalsification: true, NoImprovementIterations: 10}
	stops := StopConditions(cfg)
	if len(stops) != 2 || stops[0].Name() != "falsified" || stops[1].Name() != "no_improvement" {
		t.Fatalf("unexpected stop conditions %v", stops)
	}
}

func TestExecuteRejectsOutOfBoundsSeed(t *testing.T) {
	// bypasses config validation to check the run itself fails fast
	cfg := sphereConfig(t, 5)
	cfg.Search.Parameters = []config.Parameter{{Name: "x", Min: 0, Max: 10}, {Name: "y", Min: 6, Max: 20}}
	cfg.Search.Seeds = [][]float64{{16.6, 64.4}}
	dir := filepath.Join(t.TempDir(), "out")

	_, err := Execute(context.Background(), cfg, Options{OutputDir: dir})
	if !errors.Is(err, search.ErrSampleOutOfBounds) || !IsConfigError(err) {
		t.Fatalf("expected out-of-bounds configuration error, got %v", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatalf("no output may be created for a rejected seed, got %v", statErr)
	}
}

func TestObjectiveUnknown(t *testing.T) {
	cfg := sphereConfig(t, 1)
	cfg.Objective.Kind = "ackley"
	space, _ := Space(cfg)
	if _, _, err := Objective(cfg, space); !IsConfigError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
