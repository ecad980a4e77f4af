package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upsert action label values.
const (
	ActionCreate        = "create"
	ActionUpdate        = "update"
	ActionReset         = "reset"
	ActionNotApplicable = "not_applicable"
	ActionNoOp          = "no_op"
)

// Metrics holds the Prometheus metrics for candidate processing.
type Metrics struct {
	EvaluationsTotal      *prometheus.CounterVec
	UpsertsTotal          *prometheus.CounterVec
	VersionConflictsTotal prometheus.Counter
	ApprovalUpdatesTotal  *prometheus.CounterVec
	UpsertDuration        prometheus.Histogram
}

// New creates and registers the candidate metrics.
func New() *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nvi_evaluations_total",
			Help: "Publication evaluations by outcome",
		}, []string{"outcome"}),
		UpsertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nvi_candidate_upserts_total",
			Help: "Candidate upserts by decision-table action",
		}, []string{"action"}),
		VersionConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nvi_version_conflicts_total",
			Help: "Optimistic-concurrency conflicts retried with a full re-decision",
		}),
		ApprovalUpdatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nvi_approval_updates_total",
			Help: "Approval status changes by resulting status",
		}, []string{"status"}),
		UpsertDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nvi_candidate_upsert_duration_seconds",
			Help:    "Latency of candidate upserts including conflict retries",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordUpsert increments the upsert counter, tolerating a nil receiver so
// unit tests can pass nil metrics.
func (m *Metrics) RecordUpsert(action string) {
	if m == nil {
		return
	}
	m.UpsertsTotal.WithLabelValues(action).Inc()
}

// RecordConflict counts one retried version conflict.
func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.VersionConflictsTotal.Inc()
}

// RecordApprovalUpdate counts one approval status change.
func (m *Metrics) RecordApprovalUpdate(status string) {
	if m == nil {
		return
	}
	m.ApprovalUpdatesTotal.WithLabelValues(status).Inc()
}

// RecordEvaluation counts one evaluation by outcome.
func (m *Metrics) RecordEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpsertDuration records one upsert latency in seconds.
func (m *Metrics) ObserveUpsertDuration(seconds float64) {
	if m == nil {
		return
	}
	m.UpsertDuration.Observe(seconds)
}
