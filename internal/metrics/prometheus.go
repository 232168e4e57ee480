package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the sync service

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhl_api_calls_total",
			Help: "Total number of NHL API call attempts",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nhl_api_call_duration_seconds",
			Help:    "Duration of API call attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhl_api_retries_total",
			Help: "Total number of API retries by reason",
		},
		[]string{"reason"},
	)

	// Database metrics
	DBBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhl_db_batches_total",
			Help: "Total number of load batches",
		},
		[]string{"table", "status"},
	)

	DBBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nhl_db_batch_duration_seconds",
			Help:    "Duration of load batches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nhl_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nhl_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhl_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhl_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhl_sync_operations_total",
			Help: "Total number of stage runs",
		},
		[]string{"stage", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nhl_sync_duration_seconds",
			Help:    "Duration of stage runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage"},
	)

	StageRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhl_stage_records_total",
			Help: "Records handled per stage by outcome",
		},
		[]string{"stage", "outcome"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhl_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nhl_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nhl_last_successful_sync_timestamp",
			Help: "Timestamp of last successful stage run",
		},
	)
)

// RecordAPICall records an API call attempt
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordRetry records a retry and why it happened
func RecordRetry(reason string) {
	APIRetriesTotal.WithLabelValues(reason).Inc()
}

// RecordDBBatch records a load batch
func RecordDBBatch(table, status string, duration float64) {
	DBBatchesTotal.WithLabelValues(table, status).Inc()
	DBBatchDuration.WithLabelValues(table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordSync records a stage run
func RecordSync(stage, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(stage, status).Inc()
	SyncDuration.WithLabelValues(stage).Observe(duration)

	if status == "succeeded" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordStageRecords adds the per-stage record counts
func RecordStageRecords(stage string, fetched, skipped, written int) {
	StageRecordsTotal.WithLabelValues(stage, "fetched").Add(float64(fetched))
	StageRecordsTotal.WithLabelValues(stage, "skipped").Add(float64(skipped))
	StageRecordsTotal.WithLabelValues(stage, "written").Add(float64(written))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
