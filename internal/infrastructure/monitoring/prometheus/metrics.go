package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the service's metric vectors.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	ReactionsTotal      CounterVec
	ReactionDuration    HistogramVec
	BondsConvertedTotal CounterVec
	ProductAtoms        HistogramVec

	RecognitionRequestsTotal CounterVec
	RecognitionDuration      HistogramVec

	StorageOperationsTotal CounterVec
	StorageDuration        HistogramVec

	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	EventsPublishedTotal CounterVec

	ErrorsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets        = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultReactionDurationBuckets    = []float64{.0001, .0005, .001, .005, .01, .05, .1}
	DefaultRecognitionDurationBuckets = []float64{.25, .5, 1, 2, 5, 10, 30, 60}
	DefaultAtomCountBuckets           = []float64{2, 4, 8, 16, 32, 64, 128, 256}
)

// NewAppMetrics registers every metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.ReactionsTotal = collector.RegisterCounter("reactions_total", "Executed reactions", "reagent", "reaction_type")
	m.ReactionDuration = collector.RegisterHistogram("reaction_duration_seconds", "Reaction engine duration", DefaultReactionDurationBuckets, "reaction_type")
	m.BondsConvertedTotal = collector.RegisterCounter("bonds_converted_total", "Double bonds converted by reactions", "reaction_type")
	m.ProductAtoms = collector.RegisterHistogram("product_atoms", "Atom count of reaction products", DefaultAtomCountBuckets, "reaction_type")

	m.RecognitionRequestsTotal = collector.RegisterCounter("recognition_requests_total", "Image recognition calls", "status")
	m.RecognitionDuration = collector.RegisterHistogram("recognition_duration_seconds", "Image recognition duration", DefaultRecognitionDurationBuckets)

	m.StorageOperationsTotal = collector.RegisterCounter("storage_operations_total", "Graph store operations", "backend", "operation", "status")
	m.StorageDuration = collector.RegisterHistogram("storage_duration_seconds", "Graph store operation duration", DefaultHTTPDurationBuckets, "backend", "operation")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Published events", "topic", "status")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")
	return m
}

// RecordHTTPRequest counts a finished HTTP request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordReaction counts one engine run.
func (m *AppMetrics) RecordReaction(reagent, reactionType string, convertedBonds, productAtoms int, d time.Duration) {
	m.ReactionsTotal.WithLabelValues(reagent, reactionType).Inc()
	m.ReactionDuration.WithLabelValues(reactionType).Observe(d.Seconds())
	m.BondsConvertedTotal.WithLabelValues(reactionType).Add(float64(convertedBonds))
	m.ProductAtoms.WithLabelValues(reactionType).Observe(float64(productAtoms))
}

// RecordRecognition counts one recognition call.
func (m *AppMetrics) RecordRecognition(err error, d time.Duration) {
	m.RecognitionRequestsTotal.WithLabelValues(status(err)).Inc()
	m.RecognitionDuration.WithLabelValues().Observe(d.Seconds())
}

// RecordStorage counts one graph store operation.
func (m *AppMetrics) RecordStorage(backend, operation string, err error, d time.Duration) {
	m.StorageOperationsTotal.WithLabelValues(backend, operation, status(err)).Inc()
	m.StorageDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// RecordCacheAccess counts a hit or a miss.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordEvent counts a publish attempt.
func (m *AppMetrics) RecordEvent(topic string, err error) {
	m.EventsPublishedTotal.WithLabelValues(topic, status(err)).Inc()
}

// RecordError counts an error by code.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
