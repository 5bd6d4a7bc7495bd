// Package metrics exposes the Prometheus collectors a GEPA run publishes
// to: iteration throughput, proposal outcomes, and LLM request latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/longregen/gepa/internal/gepa/progress"
)

var (
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gepa_iterations_total",
		Help: "Total optimization iterations completed",
	})

	ProposalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gepa_proposals_total",
		Help: "Total candidate proposals by proposer tag and outcome",
	}, []string{"tag", "outcome"})

	TotalEvals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gepa_total_evals",
		Help: "Cumulative metric calls spent by the current run",
	})

	ParetoSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gepa_programs_total",
		Help: "Number of candidate programs recorded by the run",
	})

	BestScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gepa_best_score",
		Help: "Best aggregate validation score observed so far",
	})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gepa_llm_requests_total",
		Help: "Total LLM completion requests",
	}, []string{"status"})

	LLMRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gepa_llm_request_duration_seconds",
		Help:    "LLM completion request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	LLMCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gepa_llm_circuit_state",
		Help: "State of the LLM completion circuit breaker (0=closed, 1=open, 2=half-open)",
	})
)

// ObserveRun subscribes to pub and updates the run-level gauges and
// counters from each published progress.Event until the subscription is
// unsubscribed or pub is closed. It consumes events on a goroutine of its
// own and returns immediately.
func ObserveRun(pub *progress.Publisher) {
	ch := pub.Subscribe()
	go func() {
		for event := range ch {
			IterationsTotal.Inc()
			TotalEvals.Set(float64(event.TotalEvals))
			BestScore.Set(event.BestScore)
			ParetoSize.Set(float64(event.NumPrograms))

			outcome := "rejected"
			tag := event.AcceptedTag
			if tag != "" {
				outcome = "accepted"
			} else {
				tag = "none"
			}
			ProposalsTotal.WithLabelValues(tag, outcome).Inc()
		}
	}()
}
