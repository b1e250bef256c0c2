// Package services – Prometheus instrumentation for the engine.
//
// Collectors follow the same cardinality discipline as the HTTP middleware:
// labels are closed enumerations (entity kind, result, breaker state), never
// ids or free text. All collectors are safe for concurrent use.
package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// syncItems counts item dispatch outcomes by entity kind.
	syncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_items_total",
			Help: "Total queue items processed, by entity kind and result.",
		},
		[]string{"entity_kind", "result"}, // result: success|failure|conflict|dead_letter
	)

	// syncCallLat records remote call duration per entity kind.
	syncCallLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_remote_call_duration_seconds",
			Help:    "Duration of remote adapter calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity_kind"},
	)

	// syncPassDur records whole-pass duration.
	syncPassDur = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_pass_duration_seconds",
			Help:    "Duration of full sync passes in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// queueDepth gauges the live queue size, refreshed each pass.
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_depth",
			Help: "Current number of pending queue items.",
		},
	)

	// dlqDepth gauges the dead letter queue size.
	dlqDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_dead_letter_depth",
			Help: "Current number of dead-lettered items.",
		},
	)

	// breakerState exposes the circuit breaker state as 0/1/2
	// (closed/open/half-open).
	breakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_breaker_state",
			Help: "Circuit breaker state: 0=closed 1=open 2=half_open.",
		},
	)

	// retries counts retry reschedules by entity kind.
	retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_retries_total",
			Help: "Total retry reschedules, by entity kind.",
		},
		[]string{"entity_kind"},
	)
)

func init() {
	prometheus.MustRegister(syncItems, syncCallLat, syncPassDur, queueDepth, dlqDepth, breakerState, retries)
}
