package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	providerErrors   *prometheus.CounterVec
	fetchLatency     *prometheus.HistogramVec
	outcomes         *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_cache_hits_total",
				Help: "Total cache hits",
			},
			[]string{"indicator"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_cache_misses_total",
				Help: "Total cache misses",
			},
			[]string{"indicator"},
		),
		providerAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_provider_attempts_total",
				Help: "Total fetch attempts per provider",
			},
			[]string{"provider", "indicator"},
		),
		providerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_provider_errors_total",
				Help: "Total provider errors by kind",
			},
			[]string{"provider", "kind"},
		),
		fetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropull_provider_fetch_seconds",
				Help:    "Provider fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_request_outcomes_total",
				Help: "Terminal request outcomes",
			},
			[]string{"outcome"},
		),
	}
}

// RecordCacheHit records a cache hit for an indicator.
func (r *Recorder) RecordCacheHit(indicator string) {
	r.cacheHits.WithLabelValues(indicator).Inc()
}

// RecordCacheMiss records a cache miss for an indicator.
func (r *Recorder) RecordCacheMiss(indicator string) {
	r.cacheMisses.WithLabelValues(indicator).Inc()
}

// RecordProviderAttempt records one fetch attempt.
func (r *Recorder) RecordProviderAttempt(provider, indicator string) {
	r.providerAttempts.WithLabelValues(provider, indicator).Inc()
}

// RecordProviderError records a provider error occurrence.
func (r *Recorder) RecordProviderError(provider, kind string) {
	r.providerErrors.WithLabelValues(provider, kind).Inc()
}

// RecordFetchLatency records fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(provider string, seconds float64) {
	r.fetchLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordOutcome records a terminal request outcome.
func (r *Recorder) RecordOutcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}
