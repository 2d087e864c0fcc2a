package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered with the default registry at package init so
// usecases and adapters can record without a setup step.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ProbesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkfinder_probes_in_flight",
			Help: "Current number of outbound reachability probes.",
		},
	)

	ReferencesClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkfinder_references_classified_total",
			Help: "Total number of classified references.",
		},
		[]string{"bucket", "skipped"}, // skipped: "" when probed, otherwise the skip reason
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkfinder_probe_duration_seconds",
			Help:    "Duration of outbound reachability probes.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"mode"}, // mode: first_hop, follow
	)

	AuditRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkfinder_audit_runs_total",
			Help: "Total number of finished audit runs.",
		},
		[]string{"status"},
	)

	RewriteEditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkfinder_rewrite_edits_total",
			Help: "Total number of rewrite edits by outcome.",
		},
		[]string{"outcome"}, // applied, no_match, failed, skipped
	)
)
