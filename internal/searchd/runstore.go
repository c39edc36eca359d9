package searchd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

// RunStatus is the lifecycle state of a run
type RunStatus int

const (
	RunStatusUnspecified RunStatus = iota
	RunStatusPending
	RunStatusRunning
	RunStatusCompleted
	RunStatusFailed
	RunStatusCancelled
)

var runStatusNames = map[RunStatus]string{
	RunStatusUnspecified: "RUN_STATUS_UNSPECIFIED",
	RunStatusPending:     "RUN_STATUS_PENDING",
	RunStatusRunning:     "RUN_STATUS_RUNNING",
	RunStatusCompleted:   "RUN_STATUS_COMPLETED",
	RunStatusFailed:      "RUN_STATUS_FAILED",
	RunStatusCancelled:   "RUN_STATUS_CANCELLED",
}

func (s RunStatus) String() string {
	if name, ok := runStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RUN_STATUS(%d)", int(s))
}

// IsTerminal reports whether the run can no longer change
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// ParseRunStatus accepts RUN_STATUS_RUNNING, running or RUNNING
func ParseRunStatus(s string) RunStatus {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "RUN_STATUS_") {
		name = "RUN_STATUS_" + name
	}
	for status, n := range runStatusNames {
		if n == name {
			return status
		}
	}
	return RunStatusUnspecified
}

// Run is the externally visible state of a search run
type Run struct {
	ID              string
	Status          RunStatus
	CreatedAtUnixMs int64
	StartedAtUnixMs int64
	EndedAtUnixMs   int64
	Error           string

	Iterations      int // completed, seed row excluded
	TotalIterations int
	Chains          int
	HasBest         bool
	BestObjective   float64
	BestSample      []float64
	BestChain       int
	StopReason      string
	OutputDir       string
}

// RunInput is what a run was created from
type RunInput struct {
	ConfigYAML string
	Config     *config.Config
}

// RunRecord pairs a run with its input
type RunRecord struct {
	Run   Run
	Input *RunInput
}

func (r *RunRecord) clone() *RunRecord {
	out := *r
	out.Run.BestSample = utils.CopyFloat64s(r.Run.BestSample)
	return &out
}

// RunStore keeps run records in memory. Records handed out are snapshots.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// ValidateRunID rejects IDs that cannot be used as a directory name
func ValidateRunID(runID string) error {
	if runID == "." || runID == ".." || strings.ContainsAny(runID, `/\:`) {
		return fmt.Errorf("%w: %q cannot contain path separators or ':'", ErrInvalidRunID, runID)
	}
	return nil
}

func (s *RunStore) Create(runID string, input *RunInput) (*RunRecord, error) {
	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	rec := &RunRecord{
		Run: Run{
			ID:              runID,
			Status:          RunStatusPending,
			CreatedAtUnixMs: nowUnixMs(),
			BestChain:       -1,
		},
		Input: input,
	}
	if input != nil && input.Config != nil {
		rec.Run.TotalIterations = input.Config.Search.Iterations
		rec.Run.Chains = len(input.Config.Search.Seeds)
	}
	s.runs[runID] = rec
	return rec.clone(), nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// List returns up to limit runs, oldest first, skipping offset runs. A
// RunStatusUnspecified filter matches every run.
func (s *RunStore) List(limit, offset int, status RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	all := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != RunStatusUnspecified && rec.Run.Status != status {
			continue
		}
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Run.CreatedAtUnixMs != all[j].Run.CreatedAtUnixMs {
			return all[i].Run.CreatedAtUnixMs < all[j].Run.CreatedAtUnixMs
		}
		return all[i].Run.ID < all[j].Run.ID
	})

	if offset >= len(all) {
		return []*RunRecord{}
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]*RunRecord, len(all))
	for i, rec := range all {
		out[i] = rec.clone()
	}
	return out
}

func (s *RunStore) SetStatus(runID string, status RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch status {
	case RunStatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		rec.Run.EndedAtUnixMs = nowUnixMs()
	}

	return rec.clone(), nil
}

// FinishIfRunning moves a running run to a terminal status. It reports false,
// leaving the record untouched, when the run is no longer running.
func (s *RunStore) FinishIfRunning(runID string, status RunStatus, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status != RunStatusRunning {
		return false, nil
	}
	rec.Run.Status = status
	rec.Run.Error = errMsg
	rec.Run.EndedAtUnixMs = nowUnixMs()
	return true, nil
}

// MarkRunning moves a pending run to running and records its output directory
// in one step. started is false, with the record unchanged, when the run is
// already running. Terminal runs are rejected.
func (s *RunStore) MarkRunning(runID, outputDir string) (rec *RunRecord, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case r.Run.Status == RunStatusRunning:
		return r.clone(), false, nil
	case r.Run.Status != RunStatusPending:
		return nil, false, fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, r.Run.Status)
	}

	r.Run.Status = RunStatusRunning
	r.Run.OutputDir = outputDir
	r.Run.StartedAtUnixMs = nowUnixMs()
	return r.clone(), true, nil
}

// MarkCancelled moves a pending or running run to cancelled. Terminal runs are
// rejected so a run that has just finished keeps its final status.
func (s *RunStore) MarkCancelled(runID string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if r.Run.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}
	r.Run.Status = RunStatusCancelled
	r.Run.EndedAtUnixMs = nowUnixMs()
	return r.clone(), nil
}

// SetProgress updates the iteration count and best sample from a history row
func (s *RunStore) SetProgress(runID string, it search.Iteration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Run.Iterations = it.Index
	for j, c := range it.Chains {
		if !rec.Run.HasBest || c.BestObjective < rec.Run.BestObjective {
			rec.Run.HasBest = true
			rec.Run.BestObjective = c.BestObjective
			rec.Run.BestSample = utils.CopyFloat64s(c.Best)
			rec.Run.BestChain = j
		}
	}
	return nil
}

// SetStopReason records why a run ended before its iteration limit
func (s *RunStore) SetStopReason(runID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Run.StopReason = reason
	return nil
}
