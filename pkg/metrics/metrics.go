// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inbox_agent"

var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Push notifications received, by handling result.",
		},
		[]string{"result"},
	)

	RoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "rounds_total",
			Help:      "Reconciliation rounds, by outcome.",
		},
		[]string{"outcome"},
	)

	PipelineMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_total",
			Help:      "Pipeline invocations, by result.",
		},
		[]string{"result"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Latency of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	CursorHistoryID = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cursor",
			Name:      "history_id",
			Help:      "Last persisted mailbox history id.",
		},
	)

	CursorCASConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cursor",
			Name:      "cas_conflicts_total",
			Help:      "Conditional cursor writes rejected because the cursor moved concurrently.",
		},
	)

	WatchExpiration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "expiration_timestamp_seconds",
			Help:      "Unix time at which the current mailbox watch lease expires.",
		},
	)
)
