// Package metrics provides Prometheus metrics for the fairlens service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	uploadsAccepted  prometheus.Counter
	uploadsRejected  *prometheus.CounterVec
	uploadsDuplicate prometheus.Counter
	uploadBytes      prometheus.Histogram
	parseLatency     prometheus.Histogram
	datasetRows      prometheus.Histogram

	// Classification
	profileLatency     prometheus.Histogram
	columnsClassified  *prometheus.CounterVec
	protectedDetected  *prometheus.CounterVec
	datasetsProcessed  prometheus.Counter
	processingErrors   prometheus.Counter
	staleReplacements  prometheus.Counter
	selectionRateCalcs *prometheus.CounterVec

	// Session store
	sessions       prometheus.Gauge
	shardSessions  *prometheus.GaugeVec
	storeLatency   *prometheus.HistogramVec
	jobsTracked    prometheus.Gauge
	jobsByOutcome  *prometheus.CounterVec
	workerCount    prometheus.Gauge
	workerLatency  prometheus.Histogram
	workerErrors   prometheus.Counter
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueUtil      prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueRejected  prometheus.Counter
	queueLatency   prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	errorsByComp   *prometheus.CounterVec
	errorsByType   *prometheus.CounterVec
	errorsByRoute  *prometheus.CounterVec
	errorLatency   *prometheus.HistogramVec
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPause        prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fairlens",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.uploadsAccepted = m.counter("uploads_accepted_total", "Uploads accepted for analysis")
	m.uploadsRejected = m.counterVec("uploads_rejected_total", "Uploads rejected before analysis", "reason")
	m.uploadsDuplicate = m.counter("uploads_duplicate_total", "Uploads acknowledged as duplicates by idempotency key")
	m.uploadBytes = m.histogram("upload_size_bytes", "Size of accepted uploads in bytes",
		prometheus.ExponentialBuckets(1024, 4, 10))
	m.parseLatency = m.histogram("parse_latency_milliseconds", "Time spent turning raw bytes into a table", nil)
	m.datasetRows = m.histogram("dataset_rows", "Row count of processed datasets",
		prometheus.ExponentialBuckets(10, 10, 7))

	m.profileLatency = m.histogram("profile_latency_milliseconds", "Time spent classifying all columns of a dataset", nil)
	m.columnsClassified = m.counterVec("columns_classified_total", "Columns classified by inferred type", "type")
	m.protectedDetected = m.counterVec("protected_attributes_total", "Columns flagged as protected attributes by risk", "risk")
	m.datasetsProcessed = m.counter("datasets_processed_total", "Datasets fully ingested and classified")
	m.processingErrors = m.counter("processing_errors_total", "Datasets that failed ingestion or classification")
	m.staleReplacements = m.counter("stale_replacements_total", "Results discarded because a newer upload already landed")
	m.selectionRateCalcs = m.counterVec("selection_rate_checks_total", "Selection-rate parity checks by status", "status")

	m.sessions = m.gauge("sessions", "Sessions holding state")
	m.shardSessions = m.gaugeVec("shard_sessions", "Sessions per store shard", "shard")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Session store operation latency", "op")
	m.jobsTracked = m.gauge("jobs_tracked", "Jobs retained in the job registry")
	m.jobsByOutcome = m.counterVec("jobs_total", "Finished jobs by outcome", "outcome")

	m.workerCount = m.gauge("worker_count", "Analysis workers running")
	m.workerLatency = m.histogram("worker_latency_milliseconds", "End-to-end job processing latency", nil)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in error inside a worker")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the analysis queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum analysis queue capacity")
	m.queueUtil = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued by workers")
	m.queueRejected = m.counter("queue_rejected_total", "Enqueue attempts rejected (full, closed or cancelled)")
	m.queueLatency = m.histogram("queue_enqueue_latency_milliseconds", "Enqueue call latency", nil)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint", "endpoint", "method", "status_code")
	m.httpDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.errorsByComp = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByRoute = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of failed operations", "component", "error_type")

	m.memoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.goroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.gcPause = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ingestion.

// RecordUploadAccepted counts an accepted upload and its size.
func RecordUploadAccepted(sizeBytes int) {
	globalManager.uploadsAccepted.Inc()
	globalManager.uploadBytes.Observe(float64(sizeBytes))
}

// RecordUploadRejected counts an upload refused with reason.
func RecordUploadRejected(reason string) {
	globalManager.uploadsRejected.WithLabelValues(reason).Inc()
}

// RecordUploadDuplicate counts a replayed idempotency key.
func RecordUploadDuplicate() {
	globalManager.uploadsDuplicate.Inc()
}

// RecordParseLatency records parse latency in milliseconds.
func RecordParseLatency(latencyMs float64) {
	globalManager.parseLatency.Observe(latencyMs)
}

// RecordDatasetRows records the row count of a processed dataset.
func RecordDatasetRows(rows int) {
	globalManager.datasetRows.Observe(float64(rows))
}

// Classification.

// RecordProfileLatency records classification latency in milliseconds.
func RecordProfileLatency(latencyMs float64) {
	globalManager.profileLatency.Observe(latencyMs)
}

// RecordColumnClassified counts one column of the given inferred type.
func RecordColumnClassified(columnType string) {
	globalManager.columnsClassified.WithLabelValues(columnType).Inc()
}

// RecordProtectedAttribute counts one protected column at the given risk tier.
func RecordProtectedAttribute(risk string) {
	globalManager.protectedDetected.WithLabelValues(risk).Inc()
}

// RecordDatasetProcessed counts a successfully processed dataset.
func RecordDatasetProcessed() {
	globalManager.datasetsProcessed.Inc()
}

// RecordProcessingError counts a dataset that failed processing.
func RecordProcessingError() {
	globalManager.processingErrors.Inc()
}

// RecordStaleReplacement counts a result dropped because a newer upload won.
func RecordStaleReplacement() {
	globalManager.staleReplacements.Inc()
}

// RecordSelectionRateCheck counts a parity check by resulting status.
func RecordSelectionRateCheck(status string) {
	globalManager.selectionRateCalcs.WithLabelValues(status).Inc()
}

// Session store and jobs.

// UpdateSessions sets the total number of sessions.
func UpdateSessions(count int) {
	globalManager.sessions.Set(float64(count))
}

// UpdateShardSessions sets the session count of one shard.
func UpdateShardSessions(shardID string, count int) {
	globalManager.shardSessions.WithLabelValues(shardID).Set(float64(count))
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateJobsTracked sets the number of jobs held by the registry.
func UpdateJobsTracked(count int) {
	globalManager.jobsTracked.Set(float64(count))
}

// RecordJobOutcome counts a finished job.
func RecordJobOutcome(outcome string) {
	globalManager.jobsByOutcome.WithLabelValues(outcome).Inc()
}

// Workers.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtil.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueRejected.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueLatency.Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComp.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByRoute.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.goroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.gcPause.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
