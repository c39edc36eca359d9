package searchd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
)

func sphereYAML(iterations int) string {
	return fmt.Sprintf(`
search:
  iterations: %d
  seed: 3
  parameters:
    - {name: x, min: -5, max: 5}
    - {name: y, min: -5, max: 5}
  seeds: [[4, 4], [-3, 1]]
objective:
  kind: sphere
`, iterations)
}

func sphereInput(t *testing.T, iterations int) *RunInput {
	t.Helper()
	yaml := sphereYAML(iterations)
	cfg, err := config.ParseConfigYAMLString(yaml)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &RunInput{ConfigYAML: yaml, Config: cfg}
}

func waitForRun(t *testing.T, e *RunExecutor, runID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Wait(ctx, runID); err != nil {
		t.Fatalf("run %s did not finish: %v", runID, err)
	}
}

func waitForIterations(t *testing.T, store *RunStore, runID string, n int) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := store.Get(runID); ok && rec.Run.Iterations >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach %d iterations", runID, n)
}
