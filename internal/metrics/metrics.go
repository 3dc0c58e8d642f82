package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	ExecutionsClaimed prometheus.Counter
	ClaimMisses       prometheus.Counter
	ExecutionsApplied prometheus.Counter
	ExecutionsErrored prometheus.Counter
	ActionFailures    prometheus.Counter
	TrackersResolved  prometheus.Counter
	NeedsReplyMarked  prometheus.Counter
	LabelFailures     prometheus.Counter
	ProcessingTime    prometheus.Histogram
	ActiveRules       prometheus.Gauge
	PendingExecutions prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ExecutionsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_executions_claimed_total",
			Help: "Executed rules successfully claimed for processing",
		}),
		ClaimMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_claim_misses_total",
			Help: "Claim attempts that found the record already claimed or terminal",
		}),
		ExecutionsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_executions_applied_total",
			Help: "Executed rules that completed their action list",
		}),
		ExecutionsErrored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_executions_errored_total",
			Help: "Executed rules that failed on an action",
		}),
		ActionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_action_failures_total",
			Help: "Individual action executions that failed",
		}),
		TrackersResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_trackers_resolved_total",
			Help: "Awaiting-reply trackers resolved by inbound replies",
		}),
		NeedsReplyMarked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_needs_reply_marked_total",
			Help: "Threads marked as needing a reply",
		}),
		LabelFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_label_failures_total",
			Help: "Label operations that failed and were logged",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_autopilot_processing_duration_seconds",
			Help:    "Time spent processing emails",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveRules: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "inbox_autopilot_active_rules",
			Help: "Number of currently enabled rules",
		}),
		PendingExecutions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "inbox_autopilot_pending_executions",
			Help: "Executed rules waiting to be claimed",
		}),
	}
}
