// Package metrics provides Prometheus metrics for the plotpath engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	researchBuckets  []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Research cache
	findingsStored     *prometheus.CounterVec
	findingsRejected   *prometheus.CounterVec
	findingsSuperseded prometheus.Counter
	cacheLookups       *prometheus.CounterVec
	invalidations      prometheus.Counter
	evictions          prometheus.Counter

	// Scoring and analysis
	scoreOutcomes    *prometheus.CounterVec
	desirability     prometheus.Histogram
	gapAnalyses      prometheus.Counter
	gapsBySeverity   *prometheus.CounterVec
	analysisLatency  *prometheus.HistogramVec
	verdicts         *prometheus.CounterVec
	trackedEntities  prometheus.Gauge
	registeredSkills prometheus.Gauge

	// Research dispatch
	researchLatency   prometheus.Histogram
	researchErrors    prometheus.Counter
	researchCancelled prometheus.Counter
	researchInFlight  prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository
	repositoryShardCount      prometheus.Gauge
	repositoryRecordsTotal    prometheus.Gauge
	repositoryRecordsPerShard *prometheus.GaugeVec

	// Persistence
	snapshotCache *prometheus.CounterVec
	persistErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// Process
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Gauge
}

// defaultResearchBuckets spans a cached answer up to a research timeout, in milliseconds.
var defaultResearchBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "plotpath",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		researchBuckets:  defaultResearchBuckets,
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
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.findingsStored = m.counterVec("findings_stored_total", "Research findings accepted into the cache", "factor")
	m.findingsRejected = m.counterVec("findings_rejected_total", "Research findings rejected before storage", "reason")
	m.findingsSuperseded = m.counter("findings_superseded_total", "Findings ignored because a newer one was already cached")
	m.cacheLookups = m.counterVec("cache_lookups_total", "Research cache lookups by result", "result")
	m.invalidations = m.counter("cache_invalidations_total", "Explicit finding invalidations")
	m.evictions = m.counter("cache_evictions_total", "Findings evicted after their TTL elapsed")

	m.scoreOutcomes = m.counterVec("score_outcomes_total", "Desirability computations by outcome", "outcome")
	m.desirability = m.histogram("desirability_score", "Distribution of computed overall desirability",
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	m.gapAnalyses = m.counter("gap_analyses_total", "Skill gap analyses performed")
	m.gapsBySeverity = m.counterVec("gaps_total", "Skill gaps reported by severity", "severity")
	m.analysisLatency = m.histogramVec("analysis_latency_milliseconds", "Latency of read-side computations", "operation")
	m.verdicts = m.counterVec("verdicts_total", "Application verdicts by outcome", "verdict")
	m.trackedEntities = m.gauge("tracked_entities", "Entities with at least one cached finding")
	m.registeredSkills = m.gauge("registered_skills", "Skills in the prerequisite graph")

	m.researchLatency = m.histogram("research_latency_milliseconds", "Latency of research calls", m.researchBuckets)
	m.researchErrors = m.counter("research_errors_total", "Research calls that failed")
	m.researchCancelled = m.counter("research_cancelled_total", "Research calls abandoned before completion")
	m.researchInFlight = m.gauge("research_in_flight", "Research tasks claimed but not finished")

	m.queueSize = m.gauge("queue_size", "Current size of the research queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum research queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Research tasks enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Research tasks dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Research tasks rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Configured research workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"End to end task processing latency", m.researchBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Tasks that a worker failed to complete")

	m.repositoryShardCount = m.gauge("repository_shard_count", "Number of finding store shards")
	m.repositoryRecordsTotal = m.gauge("repository_records_total", "Findings held across all shards")
	m.repositoryRecordsPerShard = m.gaugeVec("repository_records_per_shard", "Findings held per shard", "shard_id")

	m.snapshotCache = m.counterVec("snapshot_cache_total", "Snapshot cache lookups by result", "result")
	m.persistErrors = m.counterVec("persist_errors_total", "Failed writes to durable storage", "kind")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemory = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutines = m.gauge("system_goroutines", "Live goroutines")
	m.systemGCPause = m.gauge("system_gc_pause_milliseconds", "Average GC pause")
}

// RecordFindingStored counts an accepted finding.
func RecordFindingStored(factor string) { globalManager.findingsStored.WithLabelValues(factor).Inc() }

// RecordFindingRejected counts a finding refused by validation.
func RecordFindingRejected(reason string) { globalManager.findingsRejected.WithLabelValues(reason).Inc() }

// RecordFindingSuperseded counts a write that lost to a newer finding.
func RecordFindingSuperseded() { globalManager.findingsSuperseded.Inc() }

// RecordCacheLookup counts a lookup; result is fresh, stale or missing.
func RecordCacheLookup(result string) { globalManager.cacheLookups.WithLabelValues(result).Inc() }

// RecordInvalidation counts an explicit invalidation.
func RecordInvalidation() { globalManager.invalidations.Inc() }

// RecordEvictions adds n evicted findings.
func RecordEvictions(n int) { globalManager.evictions.Add(float64(n)) }

// RecordScoreOutcome counts a desirability computation; outcome is complete or incomplete.
func RecordScoreOutcome(outcome string) { globalManager.scoreOutcomes.WithLabelValues(outcome).Inc() }

// ObserveDesirability records a computed overall score.
func ObserveDesirability(score float64) { globalManager.desirability.Observe(score) }

// RecordGapAnalysis counts an analysis and the gaps it produced.
func RecordGapAnalysis(critical, important int) {
	globalManager.gapAnalyses.Inc()
	globalManager.gapsBySeverity.WithLabelValues("critical").Add(float64(critical))
	globalManager.gapsBySeverity.WithLabelValues("important").Add(float64(important))
}

// RecordAnalysisLatency records how long a read-side operation took.
func RecordAnalysisLatency(operation string, latencyMs float64) {
	globalManager.analysisLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordVerdict counts a synthesized verdict.
func RecordVerdict(verdict string) { globalManager.verdicts.WithLabelValues(verdict).Inc() }

// UpdateTrackedEntities sets the number of entities with cached findings.
func UpdateTrackedEntities(count int) { globalManager.trackedEntities.Set(float64(count)) }

// UpdateRegisteredSkills sets the size of the skill graph.
func UpdateRegisteredSkills(count int) { globalManager.registeredSkills.Set(float64(count)) }

// RecordResearchLatency records the duration of a research call.
func RecordResearchLatency(latencyMs float64) { globalManager.researchLatency.Observe(latencyMs) }

// RecordResearchError counts a failed research call.
func RecordResearchError() { globalManager.researchErrors.Inc() }

// RecordResearchCancelled counts a research call abandoned by cancellation.
func RecordResearchCancelled() { globalManager.researchCancelled.Inc() }

// UpdateResearchInFlight sets the number of claimed research tasks.
func UpdateResearchInFlight(count int) { globalManager.researchInFlight.Set(float64(count)) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateRepositoryShardCount sets the number of repository shards.
func UpdateRepositoryShardCount(count int) { globalManager.repositoryShardCount.Set(float64(count)) }

// UpdateRepositoryRecordsTotal sets the number of findings across all shards.
func UpdateRepositoryRecordsTotal(count int) { globalManager.repositoryRecordsTotal.Set(float64(count)) }

// UpdateRepositoryRecordsPerShard sets the number of findings for one shard.
func UpdateRepositoryRecordsPerShard(shardID string, count int) {
	globalManager.repositoryRecordsPerShard.WithLabelValues(shardID).Set(float64(count))
}

// RecordSnapshotCache counts a snapshot cache lookup; result is hit, miss or bypass.
func RecordSnapshotCache(result string) { globalManager.snapshotCache.WithLabelValues(result).Inc() }

// RecordPersistError counts a failed durable write.
func RecordPersistError(kind string) { globalManager.persistErrors.WithLabelValues(kind).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemory.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutines.Set(float64(n)) }

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPause.Set(ms) }
