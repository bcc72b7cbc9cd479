package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_renditions_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_renditions_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_renditions_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_renditions_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_renditions_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Derivative generation metrics
var (
	DerivativesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_renditions_derivatives_generated_total",
			Help: "Total number of derivative files generated",
		},
		[]string{"kind", "status"}, // kind: "image" or "video"
	)

	DerivativeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_renditions_derivative_duration_seconds",
			Help:    "Time spent generating a single derivative",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		},
		[]string{"kind"},
	)

	DerivativesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_renditions_derivatives_removed_total",
			Help: "Total number of derivative files removed from the cache",
		},
	)
)

// Conversion job metrics
var (
	JobsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_renditions_jobs_enqueued_total",
			Help: "Total number of conversion jobs enqueued",
		},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_renditions_jobs_processed_total",
			Help: "Total number of conversion jobs processed by the worker",
		},
		[]string{"status"}, // "success" or "error"
	)

	JobsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_renditions_jobs_queued",
			Help: "Number of conversion jobs currently waiting for a worker",
		},
	)

	JobsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_renditions_jobs_purged_total",
			Help: "Total number of converted jobs purged by the retention sweep",
		},
	)

	JobsUnlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_renditions_jobs_unlocked_total",
			Help: "Total number of stray in-progress jobs returned to the queue",
		},
	)
)

// Transcoder metrics
var (
	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_renditions_transcode_duration_seconds",
			Help:    "Duration of ffmpeg transcode runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"container"},
	)

	PostersExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_renditions_posters_extracted_total",
			Help: "Total number of poster frames extracted",
		},
		[]string{"status"},
	)
)
