package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeledger_ledger_appends_total",
			Help: "Total number of ledger append attempts by result",
		},
		[]string{"kind", "status"},
	)

	LedgerAppendConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeledger_ledger_append_conflicts_total",
			Help: "Total number of chain tail compare-and-swap conflicts",
		},
	)

	ChainVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeledger_chain_verifications_total",
			Help: "Total number of chain verifications by verdict",
		},
		[]string{"verdict"},
	)

	AuditPackTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeledger_audit_pack_transitions_total",
			Help: "Total number of audit pack request state transitions",
		},
		[]string{"status"},
	)

	AuditPackStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeledger_audit_pack_step_duration_seconds",
			Help:    "Time spent in audit pack generation steps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	AuditPackFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeledger_audit_pack_failures_total",
			Help: "Total number of failed audit pack attempts by step and code",
		},
		[]string{"step", "code"},
	)

	OfflineQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeledger_offline_queue_depth",
			Help: "Number of clock actions waiting for replay",
		},
	)
)
