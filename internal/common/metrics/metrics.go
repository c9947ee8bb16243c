// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts notification-to-candidate resolutions, which can
	// happen several times within one poll cycle (once per marker, plus
	// any fallback).
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poller_resolutions_total",
			Help: "Total number of notification resolutions, by path",
		},
		[]string{"path"}, // "history" or "fallback"
	)

	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_processed_total",
			Help: "Total number of messages run through the pipeline",
		},
		[]string{"result"}, // "reconciled", "not_job_related", "duplicate", "error"
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_calls_total",
			Help: "Total number of classifier round trips",
		},
		[]string{"operation", "outcome"},
	)

	ClassifierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "classifier_call_duration_seconds",
			Help: "Duration of classifier round trips in seconds",
		},
		[]string{"operation"},
	)

	Broadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_broadcasts_total",
			Help: "Total number of live-channel broadcasts",
		},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connections",
			Help: "Number of currently connected live clients",
		},
	)
)
