// Package metrics exposes Prometheus instrumentation for search runs.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GoSim-25-26J-441/scenario-search/internal/search"
)

const namespace = "scenario_search"

// Metrics holds the collectors of one registry
type Metrics struct {
	// iterations counts persisted iterations per run (seed row excluded)
	iterations *prometheus.CounterVec
	// accepted counts accepted proposals per run
	accepted *prometheus.CounterVec
	// bestObjective is the lowest objective found so far per run
	bestObjective *prometheus.GaugeVec
	// temperature is the acceptance temperature of the latest iteration per run
	temperature *prometheus.GaugeVec

	evaluations       *prometheus.CounterVec
	evaluationSeconds prometheus.Histogram

	activeRuns prometheus.Gauge
	runs       *prometheus.CounterVec
}

// New registers the search collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Completed annealing iterations",
		}, []string{"run_id"}),
		accepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_total",
			Help:      "Accepted proposals across all chains",
		}, []string{"run_id"}),
		bestObjective: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_objective",
			Help:      "Lowest objective value found so far",
		}, []string{"run_id"}),
		temperature: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature",
			Help:      "Acceptance temperature of the latest iteration",
		}, []string{"run_id"}),
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "objective",
			Name:      "evaluations_total",
			Help:      "Objective evaluations by outcome",
		}, []string{"status"}),
		evaluationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "objective",
			Name:      "evaluation_seconds",
			Help:      "Objective evaluation latency in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Runs currently executing",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by final status",
		}, []string{"status"}),
	}
}

// Instrument wraps obj so every evaluation is counted and timed
func (m *Metrics) Instrument(obj search.Objective) search.Objective {
	return search.ObjectiveFunc(func(ctx context.Context, x search.Sample) (float64, error) {
		start := time.Now()
		v, err := obj.Evaluate(ctx, x)
		m.evaluationSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			m.evaluations.WithLabelValues("error").Inc()
		} else {
			m.evaluations.WithLabelValues("ok").Inc()
		}
		return v, err
	})
}

// ObserveIteration records one history row of runID
func (m *Metrics) ObserveIteration(runID string, it search.Iteration) {
	best := it.Chains[0].BestObjective
	accepted := 0
	for _, c := range it.Chains {
		if c.BestObjective < best {
			best = c.BestObjective
		}
		if c.Accepted {
			accepted++
		}
	}
	m.bestObjective.WithLabelValues(runID).Set(best)
	m.temperature.WithLabelValues(runID).Set(it.Temperature)
	if it.Index > 0 {
		m.iterations.WithLabelValues(runID).Inc()
		m.accepted.WithLabelValues(runID).Add(float64(accepted))
	}
}

// Reporter returns a progress reporter that observes every iteration of runID
func (m *Metrics) Reporter(runID string) search.ProgressReporter {
	return func(it search.Iteration) {
		m.ObserveIteration(runID, it)
	}
}

// RunStarted marks a run as executing
func (m *Metrics) RunStarted() {
	m.activeRuns.Inc()
}

// RunFinished marks a run as done with its final status
func (m *Metrics) RunFinished(status string) {
	m.activeRuns.Dec()
	m.runs.WithLabelValues(status).Inc()
}

// Forget drops the per-run series of runID
func (m *Metrics) Forget(runID string) {
	m.iterations.DeleteLabelValues(runID)
	m.accepted.DeleteLabelValues(runID)
	m.bestObjective.DeleteLabelValues(runID)
	m.temperature.DeleteLabelValues(runID)
}
