package searchd

import (
	"errors"
	"sync"
	"testing"

	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
)

func TestRunStoreCreateGet(t *testing.T) {
	store := NewRunStore()
	rec, err := store.Create("", sphereInput(t, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Run.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if rec.Run.Status != RunStatusPending {
		t.Fatalf("expected pending, got %s", rec.Run.Status)
	}
	if rec.Run.TotalIterations != 5 || rec.Run.Chains != 2 {
		t.Fatalf("unexpected shape: %+v", rec.Run)
	}

	got, ok := store.Get(rec.Run.ID)
	if !ok || got.Run.ID != rec.Run.ID {
		t.Fatalf("expected to get run back")
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected missing run")
	}
}

func TestRunStoreCreateRejectsDuplicateAndInvalidIDs(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", sphereInput(t, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Create("run-1", sphereInput(t, 5)); !errors.Is(err, ErrRunExists) {
		t.Fatalf("expected ErrRunExists, got %v", err)
	}
	for _, id := range []string{"a/b", "..", `a\b`, "a:stop"} {
		if _, err := store.Create(id, sphereInput(t, 5)); !errors.Is(err, ErrInvalidRunID) {
			t.Fatalf("expected ErrInvalidRunID for %q, got %v", id, err)
		}
	}
}

func TestRunStoreSetStatusTimestamps(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("run-1", sphereInput(t, 5))

	running, err := store.SetStatus(rec.Run.ID, RunStatusRunning, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if running.Run.StartedAtUnixMs == 0 {
		t.Fatalf("expected start time")
	}
	failed, _ := store.SetStatus(rec.Run.ID, RunStatusFailed, "boom")
	if failed.Run.EndedAtUnixMs == 0 || failed.Run.Error != "boom" {
		t.Fatalf("unexpected record: %+v", failed.Run)
	}
	if _, err := store.SetStatus("missing", RunStatusRunning, ""); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreFinishIfRunning(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("run-1", sphereInput(t, 5))

	if changed, _ := store.FinishIfRunning(rec.Run.ID, RunStatusCompleted, ""); changed {
		t.Fatalf("pending run must not be finished")
	}
	store.SetStatus(rec.Run.ID, RunStatusRunning, "")
	store.SetStatus(rec.Run.ID, RunStatusCancelled, "")
	if changed, _ := store.FinishIfRunning(rec.Run.ID, RunStatusCompleted, ""); changed {
		t.Fatalf("cancelled run must stay cancelled")
	}
	got, _ := store.Get(rec.Run.ID)
	if got.Run.Status != RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Run.Status)
	}
}

func TestRunStoreSetProgressTracksBest(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("run-1", sphereInput(t, 5))

	it := search.Iteration{Index: 3, Chains: []search.ChainStep{
		{Best: search.Sample{1, 1}, BestObjective: 2},
		{Best: search.Sample{0.5, 0}, BestObjective: 0.25},
	}}
	if err := store.SetProgress(rec.Run.ID, it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it.Chains[1].Best[0] = 99

	got, _ := store.Get(rec.Run.ID)
	if got.Run.Iterations != 3 || !got.Run.HasBest {
		t.Fatalf("unexpected progress: %+v", got.Run)
	}
	if got.Run.BestChain != 1 || got.Run.BestObjective != 0.25 || got.Run.BestSample[0] != 0.5 {
		t.Fatalf("unexpected best: %+v", got.Run)
	}
}

func TestRunStoreList(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Create(id, sphereInput(t, 5)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	store.SetStatus("b", RunStatusRunning, "")

	if got := store.List(0, 0, RunStatusUnspecified); len(got) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(got))
	}
	if got := store.List(2, 2, RunStatusUnspecified); len(got) != 1 {
		t.Fatalf("expected 1 run after offset, got %d", len(got))
	}
	if got := store.List(10, 5, RunStatusUnspecified); len(got) != 0 {
		t.Fatalf("expected no runs past the end, got %d", len(got))
	}
	running := store.List(10, 0, RunStatusRunning)
	if len(running) != 1 || running[0].Run.ID != "b" {
		t.Fatalf("unexpected filtered list: %v", running)
	}
}

func TestParseRunStatus(t *testing.T) {
	tests := map[string]RunStatus{
		"running":              RunStatusRunning,
		"COMPLETED":            RunStatusCompleted,
		"RUN_STATUS_CANCELLED": RunStatusCancelled,
		" failed ":             RunStatusFailed,
		"bogus":                RunStatusUnspecified,
	}
	for in, want := range tests {
		if got := ParseRunStatus(in); got != want {
			t.Errorf("ParseRunStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRunStoreMarkRunningIsExclusive(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("run-1", sphereInput(t, 5))

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok, err := store.MarkRunning(rec.Run.ID, "/tmp/out/run-1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got.Run.Status != RunStatusRunning {
				t.Errorf("expected running, got %s", got.Run.Status)
			}
			if ok {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if started != 1 {
		t.Fatalf("expected exactly one transition to running, got %d", started)
	}
	got, _ := store.Get(rec.Run.ID)
	if got.Run.OutputDir != "/tmp/out/run-1" || got.Run.StartedAtUnixMs == 0 {
		t.Fatalf("unexpected record after start: %+v", got.Run)
	}
}

func TestRunStoreMarkRunningRejectsTerminal(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("run-1", sphereInput(t, 5))
	if _, err := store.MarkCancelled(rec.Run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := store.MarkRunning(rec.Run.ID, "out"); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
	if _, _, err := store.MarkRunning("missing", "out"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreMarkCancelledKeepsFinalStatus(t *testing.T) {
	store := NewRunStore()
	rec, _ := store.Create("run-1", sphereInput(t, 5))
	store.MarkRunning(rec.Run.ID, "out")
	if ok, _ := store.FinishIfRunning(rec.Run.ID, RunStatusCompleted, ""); !ok {
		t.Fatalf("expected the run to finish")
	}

	if _, err := store.MarkCancelled(rec.Run.ID); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
	got, _ := store.Get(rec.Run.ID)
	if got.Run.Status != RunStatusCompleted {
		t.Fatalf("expected completed to be kept, got %s", got.Run.Status)
	}
}
