// Package metrics exposes Prometheus collectors for workflow activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowsStarted counts startWorkflow calls that actually began work,
	// labeled by orchestrator mode.
	WorkflowsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_workflows_started_total",
		Help: "Workflows started, by orchestrator mode.",
	}, []string{"mode"})

	// WorkflowsCompleted counts runs that reached the complete phase.
	WorkflowsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_workflows_completed_total",
		Help: "Workflows that reached the complete phase.",
	}, []string{"mode"})

	// WorkflowsFailed counts runs that landed in the error phase.
	WorkflowsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_workflows_failed_total",
		Help: "Workflows that landed in the error phase.",
	}, []string{"mode"})

	// PhaseDuration observes wall time per executed phase.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_phase_duration_seconds",
		Help:    "Wall time of one phase handler invocation.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 180, 300},
	}, []string{"phase"})

	// PendingInputs gauges runs currently suspended on a human checkpoint.
	PendingInputs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_pending_inputs",
		Help: "Runs currently suspended waiting for user input.",
	})
)
