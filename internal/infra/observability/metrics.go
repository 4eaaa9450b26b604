package observability

import (
	"time"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Reconciliation operation labels.
const (
	OpAssign   = "assign"
	OpTransfer = "transfer"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	reconciles      *prometheus.CounterVec
	partialFailures *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests build as many
// instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		reconciles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_reconcile_total",
				Help: "Reconciliation attempts by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		partialFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_partial_failures_total",
				Help: "Best-effort transfer steps that failed after the transfer was recorded.",
			},
			[]string{"step"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReconcile counts one reconciliation attempt. outcome is "completed",
// "partial" or "failed".
func (m *Metrics) IncrReconcile(operation, outcome string) {
	m.reconciles.WithLabelValues(operation, outcome).Inc()
}

// IncrPartialFailure counts a failed best-effort transfer step.
func (m *Metrics) IncrPartialFailure(step string) {
	m.partialFailures.WithLabelValues(step).Inc()
}

// Snapshot returns the reconciliation counters for GET /v1/metrics/reconcile.
func (m *Metrics) Snapshot() *domain.ReconcileMetrics {
	assignOK := getCounterValue(m.reconciles, OpAssign, domain.OutcomeCompleted)
	assignFailed := getCounterValue(m.reconciles, OpAssign, domain.OutcomeFailed)
	transferOK := getCounterValue(m.reconciles, OpTransfer, domain.OutcomeCompleted)
	transferPartial := getCounterValue(m.reconciles, OpTransfer, domain.OutcomePartial)
	transferFailed := getCounterValue(m.reconciles, OpTransfer, domain.OutcomeFailed)

	hits := getCounterValue(m.cacheHits, "wallets")
	misses := getCounterValue(m.cacheMisses, "wallets")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ReconcileMetrics{
		Assignments:      int64(assignOK + assignFailed),
		AssignFailures:   int64(assignFailed),
		Transfers:        int64(transferOK + transferPartial + transferFailed),
		TransferFailures: int64(transferFailed),
		PartialTransfers: int64(transferPartial),
		CacheHitRate:     hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
