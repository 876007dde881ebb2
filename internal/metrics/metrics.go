package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// Cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Study flow
	ConsentsTotal          prometheus.Counter
	SessionsEndedTotal     *prometheus.CounterVec
	QueriesStartedTotal    prometheus.Counter
	QueryDuration          prometheus.Histogram
	ClicksTotal            prometheus.Counter
	ScrollFlushesTotal     prometheus.Counter
	HoversTotal            prometheus.Counter
	SubmissionsTotal       *prometheus.CounterVec
	ValidationFailureTotal *prometheus.CounterVec
	DraftSavesTotal        *prometheus.CounterVec
	SearchRequestsTotal    *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 6),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"limiter"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			ConsentsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "study_consents_total",
				Help: "Consent confirmations, each opening a new session",
			}),
			SessionsEndedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "study_sessions_ended_total",
					Help: "Sessions closed, by reason",
				},
				[]string{"reason"}, // ended, superseded
			),
			QueriesStartedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "study_queries_started_total",
				Help: "Search queries started",
			}),
			QueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "study_query_duration_seconds",
				Help:    "Time from query start to query end",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			}),
			ClicksTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "study_clicks_total",
				Help: "Result clicks logged",
			}),
			ScrollFlushesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "study_scroll_flushes_total",
				Help: "Scroll depth flushes received",
			}),
			HoversTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "study_hovers_total",
				Help: "Result hover events logged",
			}),
			SubmissionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "study_submissions_total",
					Help: "Final page submissions, by kind and outcome",
				},
				[]string{"kind", "status"},
			),
			ValidationFailureTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "study_validation_failures_total",
					Help: "Rejected payloads, by error code",
				},
				[]string{"code"},
			),
			DraftSavesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "study_draft_saves_total",
					Help: "Saved response writes, by change type",
				},
				[]string{"change_type"},
			),
			SearchRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "study_search_requests_total",
					Help: "Search provider calls, by outcome",
				},
				[]string{"status"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "component"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use
func Get() *Metrics {
	return Initialize()
}
