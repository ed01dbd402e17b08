package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the onboarding API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	verdicts         *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	queueDepth       prometheus.Gauge
}

// VerificationStats is a snapshot of pipeline outcomes, served as JSON on
// the operational stats endpoint.
type VerificationStats struct {
	InvestorApproved float64 `json:"investor_approved"`
	InvestorRejected float64 `json:"investor_rejected"`
	BusinessApproved float64 `json:"business_approved"`
	BusinessRejected float64 `json:"business_rejected"`
	ApprovalRate     float64 `json:"approval_rate"`
	ExternalErrors   float64 `json:"external_errors"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kyc_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_external_errors_total",
				Help: "Total errors from external check services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		verdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kyc_verification_verdicts_total",
				Help: "Terminal verification verdicts by profile kind.",
			},
			[]string{"kind", "verdict"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kyc_pipeline_duration_seconds",
				Help:    "Duration of verification pipeline runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kyc_verify_queue_depth",
				Help: "Verification tasks waiting in the queue.",
			},
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

// IncrVerdict increments the terminal-verdict counter.
func (m *Metrics) IncrVerdict(kind, verdict string) {
	m.verdicts.WithLabelValues(kind, verdict).Inc()
}

// RecordPipelineDuration records one verification pipeline run.
func (m *Metrics) RecordPipelineDuration(kind string, d time.Duration) {
	m.pipelineDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetQueueDepth records the current verification queue depth.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// GetVerificationStats returns a snapshot of pipeline outcomes for the
// GET /verifications/stats endpoint.
func (m *Metrics) GetVerificationStats() *VerificationStats {
	// Prometheus counters expose cumulative values.
	invApproved := getCounterValue(m.verdicts, "investor", "approved")
	invRejected := getCounterValue(m.verdicts, "investor", "rejected")
	bizApproved := getCounterValue(m.verdicts, "business", "approved")
	bizRejected := getCounterValue(m.verdicts, "business", "rejected")

	total := invApproved + invRejected + bizApproved + bizRejected
	approvalRate := float64(0)
	if total > 0 {
		approvalRate = (invApproved + bizApproved) / total
	}

	return &VerificationStats{
		InvestorApproved: invApproved,
		InvestorRejected: invRejected,
		BusinessApproved: bizApproved,
		BusinessRejected: bizRejected,
		ApprovalRate:     approvalRate,
		ExternalErrors: getCounterValue(m.externalErrors, "registry") +
			getCounterValue(m.externalErrors, "sanctions"),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for
// the given labels.
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
