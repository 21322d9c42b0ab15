// Package metrics provides Prometheus metrics for the redactor
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Suppression reasons used as label values
const (
	ReasonSelfExcluded    = "self_excluded"
	ReasonProtected       = "protected"
	ReasonContextExcluded = "context_excluded"
)

// Metrics holds all Prometheus metrics for the redactor
type Metrics struct {
	Registry *prometheus.Registry

	// Resolution metrics
	TriggersEvaluated     prometheus.Counter
	OccurrencesAccepted   prometheus.Counter
	OccurrencesSuppressed *prometheus.CounterVec
	ContextLookupFailures prometheus.Counter
	SearchFailures        prometheus.Counter
	PagesResolved         prometheus.Counter

	// Persistence metrics
	AutosaveWrites prometheus.Counter
	AutosaveErrors prometheus.Counter
	SnapshotSaves  prometheus.Counter
	ConfigReloads  prometheus.Counter
}

// New creates all metrics and registers them on a private registry
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.TriggersEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_triggers_evaluated_total",
		Help: "Trigger strings evaluated against a page",
	})
	m.OccurrencesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_occurrences_accepted_total",
		Help: "Text occurrences accepted as redaction targets",
	})
	m.OccurrencesSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_occurrences_suppressed_total",
		Help: "Text occurrences or triggers suppressed, by reason",
	}, []string{"reason"})
	m.ContextLookupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_context_lookup_failures_total",
		Help: "Context extractions that failed and defaulted to redacting",
	})
	m.SearchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_search_failures_total",
		Help: "Trigger searches that failed and were skipped",
	})
	m.PagesResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_pages_resolved_total",
		Help: "Pages run through the resolution engine",
	})
	m.AutosaveWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_autosave_writes_total",
		Help: "Atomic autosave writes of dirty region stores",
	})
	m.AutosaveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_autosave_errors_total",
		Help: "Autosave attempts that failed",
	})
	m.SnapshotSaves = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_snapshot_saves_total",
		Help: "Explicit timestamped snapshot saves",
	})
	m.ConfigReloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redactor_config_reloads_total",
		Help: "Pattern or exclusion configuration reloads triggered by file changes",
	})

	m.Registry.MustRegister(
		m.TriggersEvaluated,
		m.OccurrencesAccepted,
		m.OccurrencesSuppressed,
		m.ContextLookupFailures,
		m.SearchFailures,
		m.PagesResolved,
		m.AutosaveWrites,
		m.AutosaveErrors,
		m.SnapshotSaves,
		m.ConfigReloads,
	)

	return m
}
