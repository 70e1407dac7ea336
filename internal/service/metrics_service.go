package service

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/untapped/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	remoteFetches   *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	teacherSearches *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64

	fetchMu     sync.Mutex
	fetchCounts map[string]uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_request_duration_seconds",
		Help:    "Duration of bridge calls in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_requests_total",
		Help: "Total number of bridge calls",
	}, []string{"method", "path", "status"})

	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "untis_fetch_duration_seconds",
		Help:    "Duration of remote collection fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	remoteFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "untis_fetches_total",
		Help: "Remote collection fetches by kind and outcome",
	}, []string{"kind", "outcome"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reference_cache_lookups_total",
		Help: "Reference cache lookups by kind and result",
	}, []string{"kind", "result"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reference_cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	teacherSearches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teacher_searches_total",
		Help: "Teacher searches by outcome (direct, reversed, miss, error)",
	}, []string{"outcome"})

	registry.MustRegister(requestDuration, requestTotal, remoteDuration, remoteFetches, cacheLookups, cacheHitRatio, teacherSearches)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		remoteDuration:  remoteDuration,
		remoteFetches:   remoteFetches,
		cacheLookups:    cacheLookups,
		cacheHitRatio:   cacheHitRatio,
		teacherSearches: teacherSearches,
		fetchCounts:     map[string]uint64{},
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheLookup records a reference cache hit or miss and updates the hit ratio.
func (m *MetricsService) RecordCacheLookup(kind models.Kind, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues(string(kind), "hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues(string(kind), "miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveRemoteFetch records one collection fetch against the timetable service.
func (m *MetricsService) ObserveRemoteFetch(kind models.Kind, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.remoteDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
	m.remoteFetches.WithLabelValues(string(kind), outcome).Inc()
	m.fetchMu.Lock()
	m.fetchCounts[string(kind)]++
	m.fetchMu.Unlock()
}

// RecordTeacherSearch counts a teacher search outcome.
func (m *MetricsService) RecordTeacherSearch(outcome string) {
	if m == nil {
		return
	}
	m.teacherSearches.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated metrics for the status endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	m.fetchMu.Lock()
	fetches := make(map[string]uint64, len(m.fetchCounts))
	for k, v := range m.fetchCounts {
		fetches[k] = v
	}
	m.fetchMu.Unlock()

	return models.MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RemoteFetches:            fetches,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		GeneratedAt:              time.Now().UTC(),
	}
}
