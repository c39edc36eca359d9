package searchd

import (
	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
)

// convertRunToJSON renders a run with value types accepted by both
// encoding/json and structpb.
func convertRunToJSON(run Run) map[string]any {
	out := map[string]any{
		"id":                 run.ID,
		"status":             run.Status.String(),
		"created_at_unix_ms": run.CreatedAtUnixMs,
		"started_at_unix_ms": run.StartedAtUnixMs,
		"ended_at_unix_ms":   run.EndedAtUnixMs,
		"error":              run.Error,
		"iterations":         run.Iterations,
		"total_iterations":   run.TotalIterations,
		"chains":             run.Chains,
		"output_dir":         run.OutputDir,
	}
	if run.StopReason != "" {
		out["stop_reason"] = run.StopReason
	}
	if run.HasBest {
		out["best_objective"] = run.BestObjective
		out["best_sample"] = floatsToAny(run.BestSample)
		out["best_chain"] = run.BestChain
		out["falsified"] = run.BestObjective < 0
	}
	return out
}

func convertRunsToJSON(recs []*RunRecord) []any {
	runs := make([]any, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, convertRunToJSON(rec.Run))
	}
	return runs
}

// convertHistoryToJSON renders every history table as a list of rows
func convertHistoryToJSON(h *search.History) map[string]any {
	tables := make(map[string]any, len(search.Tables))
	for _, t := range search.Tables {
		rows := make([]any, h.Len())
		for i := range rows {
			rows[i] = floatsToAny(h.Row(t, i))
		}
		tables[t.String()] = rows
	}
	completed := h.Len() - 1
	if completed < 0 {
		completed = 0
	}
	return map[string]any{
		"iterations": completed,
		"dimensions": h.Dim(),
		"chains":     h.Chains(),
		"tables":     tables,
	}
}

func floatsToAny(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
