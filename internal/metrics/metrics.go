package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus collectors for the screener.
type Registry struct {
	reg *prometheus.Registry

	ScansTotal    *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	FetchAttempts prometheus.Counter
	FetchErrors   *prometheus.CounterVec
	RowsDropped   prometheus.Counter
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	Candidates    prometheus.Gauge
	ActiveScans   prometheus.Gauge
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates an isolated metrics registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsift_scans_total",
				Help: "Total number of scans by terminal state",
			},
			[]string{"state"},
		),

		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coinsift_scan_duration_seconds",
				Help:    "End-to-end scan duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		FetchAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coinsift_fetch_attempts_total",
				Help: "Total market-data fetch attempts including retries",
			},
		),

		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinsift_fetch_errors_total",
				Help: "Total fetch failures by error type",
			},
			[]string{"type"},
		),

		RowsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coinsift_rows_dropped_total",
				Help: "Market rows dropped during numeric coercion",
			},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coinsift_cache_hits_total",
				Help: "Snapshot cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coinsift_cache_misses_total",
				Help: "Snapshot cache misses",
			},
		),

		Candidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinsift_candidates",
				Help: "Number of candidates in the last completed scan",
			},
		),

		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinsift_active_scans",
				Help: "Number of currently running scans",
			},
		),
	}

	r.reg.MustRegister(
		r.ScansTotal, r.ScanDuration, r.FetchAttempts, r.FetchErrors,
		r.RowsDropped, r.CacheHits, r.CacheMisses, r.Candidates, r.ActiveScans,
	)

	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for test inspection.
func (r *Registry) Gather() prometheus.Gatherer {
	return r.reg
}

// ObserveScan records one finished scan.
func (r *Registry) ObserveScan(state string, candidates int, elapsed time.Duration) {
	r.ScansTotal.WithLabelValues(state).Inc()
	r.ScanDuration.Observe(elapsed.Seconds())
	r.Candidates.Set(float64(candidates))
}
