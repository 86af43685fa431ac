// Package metrics exposes Prometheus instrumentation for title-scout.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider calls
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "title_scout_provider_requests_total",
		Help: "Provider operations by outcome.",
	}, []string{"provider", "operation", "outcome"}) // outcome: ok, not_found, error

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "title_scout_provider_duration_seconds",
		Help:    "Duration of provider operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})

	// Cache
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "title_scout_cache_lookups_total",
		Help: "Cache lookups by tier and result.",
	}, []string{"category", "result"}) // result: memory, store, miss, shared

	CacheFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "title_scout_cache_fetch_errors_total",
		Help: "Fetches through the cache that failed.",
	}, []string{"category"})

	// Resolution
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "title_scout_resolve_phase_duration_seconds",
		Help:    "Duration of resolution phases in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "title_scout_resolutions_total",
		Help: "Completed resolutions by status.",
	}, []string{"status"}) // status: complete, failed, canceled

	BatchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "title_scout_batch_in_flight",
		Help: "Batch items currently being resolved.",
	})
)

// RecordProvider records one provider operation.
func RecordProvider(provider, operation, outcome string, start time.Time) {
	ProviderRequests.WithLabelValues(provider, operation, outcome).Inc()
	ProviderDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

// RecordPhase records the time taken by one resolution phase.
func RecordPhase(phase string, start time.Time) {
	PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
