package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterlevel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waterlevel_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Ingestion metrics
	ReadingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterlevel_readings_total",
			Help: "Total number of sensor readings ingested",
		},
		[]string{"source", "status"}, // source: http, kafka; status: accepted, rejected
	)

	ReadingsByBand = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterlevel_readings_by_band_total",
			Help: "Readings grouped by classified water-level band",
		},
		[]string{"band"},
	)

	// Alert cycle metrics
	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterlevel_alerts_raised_total",
			Help: "Total number of alert events raised",
		},
		[]string{"status"}, // HIGH, CRITICAL
	)

	CooldownRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waterlevel_cooldown_rejections_total",
			Help: "Notifiable readings suppressed by the cooldown gate",
		},
	)

	RosterResolutionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waterlevel_roster_resolution_errors_total",
			Help: "Alert cycles aborted because the resident roster could not be loaded",
		},
	)

	// Dispatch metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterlevel_deliveries_total",
			Help: "Total number of delivery attempts",
		},
		[]string{"channel", "status"}, // status: delivered, failed
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waterlevel_delivery_duration_seconds",
			Help:    "Time taken for a single provider delivery call",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	DispatchFanoutSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waterlevel_dispatch_fanout_size",
			Help:    "Number of (recipient, channel) pairs attempted per alert",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waterlevel_dispatch_duration_seconds",
			Help:    "Wall time for one full alert fan-out",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waterlevel_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
