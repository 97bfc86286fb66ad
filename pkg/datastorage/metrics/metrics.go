package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Service labels for AuditTracesTotal/AuditLagSeconds.
const (
	ServiceNotification = "notification"
	ServiceWorkflow     = "workflow"
	ServiceContext      = "context"
	ServiceRegistry     = "registry"
)

// Audit trace status labels.
const (
	AuditStatusSuccess    = "success"
	AuditStatusFailure    = "failure"
	AuditStatusDLQFallback = "dlq_fallback"
)

// Metrics holds the Prometheus collectors the datastorage repository
// layer reports: audit write throughput/lag, raw write latency, and
// validation failure counts. A dedicated struct (rather than package
// vars) lets tests bind to an isolated prometheus.Registry instead of
// the global one.
type Metrics struct {
	AuditTracesTotal   *prometheus.CounterVec
	AuditLagSeconds    *prometheus.HistogramVec
	WriteDuration      *prometheus.HistogramVec
	ValidationFailures *prometheus.CounterVec
}

// NewMetricsWithRegistry builds a Metrics struct and registers its
// collectors with registry. namespace/subsystem follow the usual
// Prometheus naming convention (namespace_subsystem_name); subsystem may
// be empty.
func NewMetricsWithRegistry(namespace, subsystem string, registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuditTracesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_traces_total",
			Help:      "Total audit events written, by service and status.",
		}, []string{"service", "status"}),

		AuditLagSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_lag_seconds",
			Help:      "Delay between an event occurring and its audit record being written.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),

		WriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "write_duration_seconds",
			Help:      "Latency of a single repository write, by table.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),

		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "validation_failures_total",
			Help:      "Total validation failures rejected before reaching the store, by field and reason.",
		}, []string{"field", "reason"}),
	}

	registry.MustRegister(m.AuditTracesTotal, m.AuditLagSeconds, m.WriteDuration, m.ValidationFailures)
	return m
}

// New builds a Metrics struct registered with the global default
// registry, for use by cmd/*-service binaries.
func New(namespace, subsystem string) *Metrics {
	return NewMetricsWithRegistry(namespace, subsystem, prometheus.DefaultRegisterer)
}
