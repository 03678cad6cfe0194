// Package metrics wraps prometheus/client_golang counters and histograms
// behind a small Sink interface, so the rest of the engine depends on the
// interface rather than a concrete registry. Exposing the resulting
// /metrics endpoint is the excluded metrics-backend collaborator (§1); this
// package only emits.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the set of measurements the engine emits, per spec.md §6: shard
// lookup latency, cache hit rate, rebuild duration, trending bucket size,
// pipeline backpressure, rejected-event counts per reason.
type Sink interface {
	ObserveLookupLatency(shardID int, seconds float64)
	ObserveRebuildDuration(seconds float64)
	IncCacheHit()
	IncCacheMiss()
	SetTrendingBucketSize(bucketIndex int, size int)
	IncBackpressure()
	IncRejectedEvent(reason string)
	IncDegradedSignal(signal string)
}

// PrometheusSink is the default Sink backed by prometheus/client_golang.
// Registered against a caller-supplied registerer so tests can use a
// throwaway registry instead of the global default.
type PrometheusSink struct {
	lookupLatency   *prometheus.HistogramVec
	rebuildDuration prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	trendingBucket  *prometheus.GaugeVec
	backpressure    prometheus.Counter
	rejectedEvents  *prometheus.CounterVec
	degradedSignals *prometheus.CounterVec
}

// NewPrometheusSink creates and registers a PrometheusSink against reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		lookupLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autosuggest_shard_lookup_seconds",
			Help:    "Shard lookup latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"shard"}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "autosuggest_rebuild_duration_seconds",
			Help: "Full index rebuild duration in seconds.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autosuggest_cache_hits_total",
			Help: "Result cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autosuggest_cache_misses_total",
			Help: "Result cache misses.",
		}),
		trendingBucket: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autosuggest_trending_bucket_size",
			Help: "Number of distinct phrases tracked in a trending bucket.",
		}, []string{"bucket"}),
		backpressure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autosuggest_pipeline_backpressure_total",
			Help: "Times the pipeline's delta map soft cap was exceeded.",
		}),
		rejectedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autosuggest_rejected_events_total",
			Help: "Ingestion events rejected by the quality filter, per reason.",
		}, []string{"reason"}),
		degradedSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autosuggest_degraded_signal_total",
			Help: "Ranking requests where a signal provider was unavailable.",
		}, []string{"signal"}),
	}
	reg.MustRegister(
		s.lookupLatency, s.rebuildDuration, s.cacheHits, s.cacheMisses,
		s.trendingBucket, s.backpressure, s.rejectedEvents, s.degradedSignals,
	)
	return s
}

func (s *PrometheusSink) ObserveLookupLatency(shardID int, seconds float64) {
	s.lookupLatency.WithLabelValues(shardLabel(shardID)).Observe(seconds)
}

func (s *PrometheusSink) ObserveRebuildDuration(seconds float64) {
	s.rebuildDuration.Observe(seconds)
}

func (s *PrometheusSink) IncCacheHit() {
	s.cacheHits.Inc()
}

func (s *PrometheusSink) IncCacheMiss() {
	s.cacheMisses.Inc()
}

func (s *PrometheusSink) SetTrendingBucketSize(bucketIndex int, size int) {
	s.trendingBucket.WithLabelValues(shardLabel(bucketIndex)).Set(float64(size))
}

func (s *PrometheusSink) IncBackpressure() {
	s.backpressure.Inc()
}

func (s *PrometheusSink) IncRejectedEvent(reason string) {
	s.rejectedEvents.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) IncDegradedSignal(signal string) {
	s.degradedSignals.WithLabelValues(signal).Inc()
}

func shardLabel(id int) string {
	const digits = "0123456789"
	if id == 0 {
		return "0"
	}
	neg := id < 0
	if neg {
		id = -id
	}
	var buf []byte
	for id > 0 {
		buf = append([]byte{digits[id%10]}, buf...)
		id /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

// NoopSink discards all measurements. Useful as a default when the caller
// doesn't want a Prometheus registry wired up (tests, cmd/bench).
type NoopSink struct{}

func (NoopSink) ObserveLookupLatency(int, float64) {}
func (NoopSink) ObserveRebuildDuration(float64)    {}
func (NoopSink) IncCacheHit()                      {}
func (NoopSink) IncCacheMiss()                     {}
func (NoopSink) SetTrendingBucketSize(int, int)    {}
func (NoopSink) IncBackpressure()                  {}
func (NoopSink) IncRejectedEvent(string)            {}
func (NoopSink) IncDegradedSignal(string)          {}
