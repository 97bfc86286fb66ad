// Package metrics defines the Prometheus collectors shared across all four
// Tekton subsystems. Each subsystem registers its own counters/gauges here
// so cmd/*-service binaries only need to import this package and
// pkg/infrastructure/metrics to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry subsystem metrics.
var (
	ComponentsRegistered = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tekton",
		Subsystem: "registry",
		Name:      "components_registered",
		Help:      "Number of components currently registered, by state.",
	}, []string{"state"})

	HeartbeatsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tekton",
		Subsystem: "registry",
		Name:      "heartbeats_received_total",
		Help:      "Total heartbeats received, by component.",
	}, []string{"component"})

	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tekton",
		Subsystem: "registry",
		Name:      "resolve_duration_seconds",
		Help:      "Latency of capability resolution requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"capability", "outcome"})
)

// aish subsystem metrics.
var (
	MessagesForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tekton",
		Subsystem: "aish",
		Name:      "messages_forwarded_total",
		Help:      "Total messages forwarded between CIs, by outcome.",
	}, []string{"outcome"})

	CIState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tekton",
		Subsystem: "aish",
		Name:      "ci_state",
		Help:      "Number of CIs currently in each lifecycle state.",
	}, []string{"state"})
)

// Workflow orchestrator metrics.
var (
	TasksDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tekton",
		Subsystem: "workflow",
		Name:      "tasks_dispatched_total",
		Help:      "Total workflow tasks dispatched, by verb and outcome.",
	}, []string{"verb", "outcome"})

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tekton",
		Subsystem: "workflow",
		Name:      "task_duration_seconds",
		Help:      "Latency of individual task execution.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"verb"})

	ExecutionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tekton",
		Subsystem: "workflow",
		Name:      "executions_in_flight",
		Help:      "Number of workflow executions currently running.",
	})

	RetriesScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tekton",
		Subsystem: "workflow",
		Name:      "retries_scheduled_total",
		Help:      "Total task retries scheduled, by verb.",
	}, []string{"verb"})
)

// Context/memory core metrics.
var (
	BudgetUtilization = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tekton",
		Subsystem: "context",
		Name:      "budget_utilization_ratio",
		Help:      "Fraction of the token budget consumed, by session.",
	}, []string{"session_id"})

	ItemsSunset = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tekton",
		Subsystem: "context",
		Name:      "items_sunset_total",
		Help:      "Total catalog items sunset, by reason.",
	}, []string{"reason"})

	PackingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tekton",
		Subsystem: "context",
		Name:      "packing_duration_seconds",
		Help:      "Latency of the greedy token-budget packing pass.",
		Buckets:   prometheus.DefBuckets,
	})
)

// HTTP gateway metrics, shared across every cmd/*-service's chi router.
// Paths are always normalized (see NormalizePath) before being used as a
// label value, so a UUID or numeric resource ID never becomes its own
// cardinality dimension.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tekton",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by normalized path, method, and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path", "method", "status"})
)
