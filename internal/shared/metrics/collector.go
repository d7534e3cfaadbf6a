package metrics

import (
	"freeproxy_pool/internal/shared/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric exported by the proxy pool.
//
// Metrics:
//   - <ns>_<sub>_probes_total{outcome}: validation outcomes
//   - <ns>_<sub>_candidates_total{source}: raw candidates parsed per source
//   - <ns>_<sub>_source_failures_total{source}: listing sources that failed
//   - <ns>_<sub>_retries_total{operation}: retried network calls
//   - <ns>_<sub>_cipher_cache_hits_total / _misses_total: decoder cache
//   - <ns>_<sub>_working_set_size: admitted endpoints
//
// A nil *Collector or a disabled one is a valid no-op recorder.
type Collector struct {
	config   *types.MetricsConf
	registry *prometheus.Registry

	probesTotal         *prometheus.CounterVec
	candidatesTotal     *prometheus.CounterVec
	sourceFailuresTotal *prometheus.CounterVec
	retriesTotal        *prometheus.CounterVec
	cacheHitsTotal      prometheus.Counter
	cacheMissesTotal    prometheus.Counter
	workingSetSize      prometheus.Gauge
}

// NewCollector creates and registers the pool metrics. If registry is nil a
// fresh one is created.
func NewCollector(cfg *types.MetricsConf, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "freeproxy"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "pool"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "probes_total",
				Help:      "Total number of proxy validations by outcome",
			},
			[]string{"outcome"},
		),
		candidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "candidates_total",
				Help:      "Total number of candidate endpoints parsed per source",
			},
			[]string{"source"},
		),
		sourceFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_failures_total",
				Help:      "Total number of listing source fetches that failed",
			},
			[]string{"source"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retries_total",
				Help:      "Total number of retried network operations",
			},
			[]string{"operation"},
		),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cipher_cache_hits_total",
			Help:      "Total number of cipher table cache hits",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cipher_cache_misses_total",
			Help:      "Total number of cipher table cache misses",
		}),
		workingSetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "working_set_size",
			Help:      "Current number of validated endpoints in the working set",
		}),
	}

	registry.MustRegister(
		c.probesTotal,
		c.candidatesTotal,
		c.sourceFailuresTotal,
		c.retriesTotal,
		c.cacheHitsTotal,
		c.cacheMissesTotal,
		c.workingSetSize,
	)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordProbe counts one validation outcome ("working", "broken", "timed_out").
func (c *Collector) RecordProbe(outcome string) {
	if !c.enabled() {
		return
	}
	c.probesTotal.WithLabelValues(outcome).Inc()
}

// RecordCandidates adds n parsed candidates for a source.
func (c *Collector) RecordCandidates(source string, n int) {
	if !c.enabled() {
		return
	}
	c.candidatesTotal.WithLabelValues(source).Add(float64(n))
}

// RecordSourceFailure counts a listing source that produced nothing.
func (c *Collector) RecordSourceFailure(source string) {
	if !c.enabled() {
		return
	}
	c.sourceFailuresTotal.WithLabelValues(source).Inc()
}

// RecordRetry counts one re-issued call. operation should be low-cardinality
// ("fetch", "workload"), never a URL.
func (c *Collector) RecordRetry(operation string) {
	if !c.enabled() {
		return
	}
	c.retriesTotal.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordCacheHit() {
	if !c.enabled() {
		return
	}
	c.cacheHitsTotal.Inc()
}

func (c *Collector) RecordCacheMiss() {
	if !c.enabled() {
		return
	}
	c.cacheMissesTotal.Inc()
}

// SetWorkingSetSize updates the working set gauge.
func (c *Collector) SetWorkingSetSize(n int) {
	if !c.enabled() {
		return
	}
	c.workingSetSize.Set(float64(n))
}

// Registry returns the Prometheus registry used by this collector, for
// promhttp.HandlerFor.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
