// Package metrics provides Prometheus metrics for the festival recommendation service.
package metrics

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
	namespace              = "festa"
	subsystem              = "recommend"
)

// latencyBuckets are in milliseconds, matching every *_milliseconds histogram.
var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // constant table

// Manager manages all Prometheus metrics for the festa service.
type Manager struct {
	trackBuckets    []float64
	enabled         bool
	refreshInterval time.Duration
	customLabels    map[string]string
	registry        prometheus.Registerer

	// Recommendation metrics
	recommendations       *prometheus.CounterVec
	recommendationLatency prometheus.Histogram
	trackSize             *prometheus.HistogramVec
	baseNotTopRanked      prometheus.Counter

	// Dataset metrics
	catalogRows   prometheus.Gauge
	unpopularRows prometheus.Gauge
	matrixDim     prometheus.Gauge
	mappedIDs     prometheus.Gauge
	loadDuration  prometheus.Histogram
	loadFailures  *prometheus.CounterVec
	ready         prometheus.Gauge
	lastLoadUnix  prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// installed pairs the global manager with the registry it registered on.
type installed struct {
	manager  *Manager
	registry *prometheus.Registry
}

// global is swapped whole by Configure so readers never see a manager
// paired with another registry.
var global atomic.Pointer[installed] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// custom registry, which keeps default Go collectors out of /healthz.
// Observations made before the call are dropped. Call it before handlers
// capture GetRegistry.
func Configure(opts ...Option) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	m := NewManager(append(slices.Clone(opts), WithPrometheusRegistry(registry))...)
	global.Store(&installed{manager: m, registry: registry})
	return registry
}

func mgr() *Manager { return global.Load().manager }

// TrackBuckets returns histogram buckets for track sizes up to maxTopN.
func TrackBuckets(maxTopN int) []float64 {
	out := []float64{0}
	for _, b := range []int{1, 2, 3, 5, 10, 20, 50, 100, 200, 500, 1000} {
		if b >= maxTopN {
			break
		}
		out = append(out, float64(b))
	}
	if maxTopN > 0 {
		out = append(out, float64(maxTopN))
	}
	return out
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		trackBuckets:    TrackBuckets(50),
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		customLabels:    make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether observations are recorded.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often system gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.recommendations = auto.NewCounterVec(
		m.counterOpts("recommendations_total", "Recommendation requests by outcome"),
		[]string{"outcome"},
	)
	m.recommendationLatency = auto.NewHistogram(
		m.histogramOpts("recommendation_latency_milliseconds", "Time to rank and build both tracks", latencyBuckets),
	)
	m.trackSize = auto.NewHistogramVec(
		m.histogramOpts("track_size", "Number of festivals returned per track", m.trackBuckets),
		[]string{"track"},
	)
	m.baseNotTopRanked = auto.NewCounter(
		m.counterOpts("base_not_top_ranked_total", "Requests whose base festival was not the top-ranked row of its own similarity row"),
	)

	m.catalogRows = auto.NewGauge(m.gaugeOpts("catalog_rows", "Festivals in the published catalog"))
	m.unpopularRows = auto.NewGauge(m.gaugeOpts("unpopular_rows", "Festivals located in unpopular districts"))
	m.matrixDim = auto.NewGauge(m.gaugeOpts("matrix_dim", "Side length of the similarity matrix"))
	m.mappedIDs = auto.NewGauge(m.gaugeOpts("mapped_ids", "Content ids present in the index mapping"))
	m.loadDuration = auto.NewHistogram(
		m.histogramOpts("load_duration_milliseconds", "Startup load duration of catalog and artifacts",
			[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}),
	)
	m.loadFailures = auto.NewCounterVec(
		m.counterOpts("load_failures_total", "Startup load failures by stage"),
		[]string{"stage"},
	)
	m.ready = auto.NewGauge(m.gaugeOpts("ready", "1 when the recommendation state is published"))
	m.lastLoadUnix = auto.NewGauge(m.gaugeOpts("last_load_unix_seconds", "Unix time of the last successful load"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", latencyBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that ended in an error", latencyBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Garbage collection pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordRecommendation counts a recommendation request by outcome
// (ok, not_found, not_ready, bad_request, error).
func RecordRecommendation(outcome string) {
	if !mgr().enabled {
		return
	}
	mgr().recommendations.WithLabelValues(outcome).Inc()
}

// RecordRecommendationLatency records engine latency in milliseconds.
func RecordRecommendationLatency(latencyMs float64) {
	if !mgr().enabled {
		return
	}
	mgr().recommendationLatency.Observe(latencyMs)
}

// RecordTrackSize records how many festivals a track returned.
func RecordTrackSize(track string, n int) {
	if !mgr().enabled {
		return
	}
	mgr().trackSize.WithLabelValues(track).Observe(float64(n))
}

// RecordBaseNotTopRanked counts rankings where the base row lost first place.
func RecordBaseNotTopRanked() {
	if !mgr().enabled {
		return
	}
	mgr().baseNotTopRanked.Inc()
}

// UpdateCatalogRows sets the catalog size.
func UpdateCatalogRows(n int) {
	mgr().catalogRows.Set(float64(n))
}

// UpdateUnpopularRows sets the number of unpopular-district festivals.
func UpdateUnpopularRows(n int) {
	mgr().unpopularRows.Set(float64(n))
}

// UpdateMatrixDim sets the similarity matrix side length.
func UpdateMatrixDim(n int) {
	mgr().matrixDim.Set(float64(n))
}

// UpdateMappedIDs sets the mapping size.
func UpdateMappedIDs(n int) {
	mgr().mappedIDs.Set(float64(n))
}

// RecordLoadDuration records a successful load and stamps its completion time.
func RecordLoadDuration(latencyMs float64) {
	mgr().loadDuration.Observe(latencyMs)
	mgr().lastLoadUnix.SetToCurrentTime()
}

// RecordLoadFailure counts a failed load stage (catalog, index, engine).
func RecordLoadFailure(stage string) {
	mgr().loadFailures.WithLabelValues(stage).Inc()
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	if ready {
		mgr().ready.Set(1)
		return
	}
	mgr().ready.Set(0)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !mgr().enabled {
		return
	}
	mgr().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !mgr().enabled {
		return
	}
	mgr().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !mgr().enabled {
		return
	}
	mgr().errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !mgr().enabled {
		return
	}
	mgr().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !mgr().enabled {
		return
	}
	mgr().errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	mgr().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	mgr().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	mgr().systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return global.Load().registry
}
