package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event consumption metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiewatch_events_received_total",
			Help: "Total number of reputation change events received",
		},
		[]string{"subject"},
	)

	NormalizeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiewatch_normalize_errors_total",
			Help: "Total number of events that failed decode or normalization",
		},
		[]string{"subject"},
	)

	HandlerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tiewatch_handler_duration_seconds",
			Help:    "Duration of reputation change handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sink metrics
	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiewatch_sink_writes_total",
			Help: "Total number of successful sink writes",
		},
		[]string{"sink"},
	)

	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiewatch_sink_errors_total",
			Help: "Total number of failed sink writes",
		},
		[]string{"sink"},
	)
)
