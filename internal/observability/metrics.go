// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Hunt metrics
	HuntsTotal    *prometheus.CounterVec
	HuntDuration  *prometheus.HistogramVec
	RecordsHunted *prometheus.CounterVec

	// Discovery metrics
	DiscoveriesEmitted   *prometheus.CounterVec
	DuplicatesSuppressed *prometheus.CounterVec
	TransformErrors      *prometheus.CounterVec

	// Signal metrics
	SignalsEmitted *prometheus.CounterVec
	TokenScans     *prometheus.CounterVec

	// Cache metrics
	DedupCacheSize    prometheus.Gauge
	DedupCacheEvicted prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulHunt prometheus.Gauge
	SchedulerJobs      prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
// All record methods are nil-safe so components can run without metrics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trend_hunter"
	}

	return &Metrics{
		// Hunt metrics
		HuntsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hunt",
			Name:      "runs_total",
			Help:      "Total number of hunt runs by source and status",
		}, []string{"source", "status"}),
		HuntDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hunt",
			Name:      "duration_seconds",
			Help:      "Hunt execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		RecordsHunted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hunt",
			Name:      "records_total",
			Help:      "Total number of raw records returned by hunts",
		}, []string{"source"}),

		// Discovery metrics
		DiscoveriesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "emitted_total",
			Help:      "Total number of new discoveries emitted by source",
		}, []string{"source"}),
		DuplicatesSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "duplicates_suppressed_total",
			Help:      "Total number of discoveries suppressed by the dedup cache",
		}, []string{"source"}),
		TransformErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "transform_errors_total",
			Help:      "Total number of records dropped during transform",
		}, []string{"source"}),

		// Signal metrics
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "emitted_total",
			Help:      "Total number of signals emitted by type and action",
		}, []string{"signal_type", "action"}),
		TokenScans: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "token_scans_total",
			Help:      "Total number of token scans by status",
		}, []string{"status"}),

		// Cache metrics
		DedupCacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "dedup_size",
			Help:      "Current number of fingerprints in the dedup cache",
		}),
		DedupCacheEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "dedup_evicted_total",
			Help:      "Total number of fingerprints evicted after TTL expiry",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulHunt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_hunt_timestamp",
			Help:      "Unix timestamp of last successful hunt",
		}),
		SchedulerJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "scheduler_jobs",
			Help:      "Number of jobs registered with the scheduler",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHunt records a completed hunt run.
func (m *Metrics) RecordHunt(source, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HuntsTotal.WithLabelValues(source, status).Inc()
	m.HuntDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordRecords records the number of raw records a hunt returned.
func (m *Metrics) RecordRecords(source string, count int) {
	if m == nil {
		return
	}
	m.RecordsHunted.WithLabelValues(source).Add(float64(count))
}

// RecordDiscoveries records the outcome of a dedup pass for one source.
func (m *Metrics) RecordDiscoveries(source string, emitted, suppressed int) {
	if m == nil {
		return
	}
	m.DiscoveriesEmitted.WithLabelValues(source).Add(float64(emitted))
	m.DuplicatesSuppressed.WithLabelValues(source).Add(float64(suppressed))
}

// RecordTransformError records a record dropped during transform.
func (m *Metrics) RecordTransformError(source string) {
	if m == nil {
		return
	}
	m.TransformErrors.WithLabelValues(source).Inc()
}

// RecordSignal records an emitted signal.
func (m *Metrics) RecordSignal(signalType, action string) {
	if m == nil {
		return
	}
	m.SignalsEmitted.WithLabelValues(signalType, action).Inc()
}

// RecordTokenScan records a token scan attempt.
func (m *Metrics) RecordTokenScan(status string) {
	if m == nil {
		return
	}
	m.TokenScans.WithLabelValues(status).Inc()
}

// UpdateSchedulerJobs sets the scheduler job gauge.
func (m *Metrics) UpdateSchedulerJobs(n int) {
	if m == nil {
		return
	}
	m.SchedulerJobs.Set(float64(n))
}

// MarkSuccessfulHunt sets the last-successful-hunt timestamp gauge.
func (m *Metrics) MarkSuccessfulHunt(unixSeconds int64) {
	if m == nil {
		return
	}
	m.LastSuccessfulHunt.Set(float64(unixSeconds))
}

// UpdateDedupCache updates the dedup cache gauges after a sweep.
func (m *Metrics) UpdateDedupCache(size, evicted int) {
	if m == nil {
		return
	}
	m.DedupCacheSize.Set(float64(size))
	m.DedupCacheEvicted.Add(float64(evicted))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
