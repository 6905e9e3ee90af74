package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the KYC module.
// All methods are safe to call on a nil receiver so tests can omit metrics.
type Metrics struct {
	Verifications       *prometheus.CounterVec
	ProviderDuration    *prometheus.HistogramVec
	CaseTransitions     *prometheus.CounterVec
	AttemptsDropped     prometheus.Counter
	AttemptWriteErrors  prometheus.Counter
	AuditFailures       prometheus.Counter
	ThrottleRejected    *prometheus.CounterVec
	DocumentsExpired    *prometheus.CounterVec
	ConcurrentConflicts prometheus.Counter
	ProviderCircuitOpen prometheus.Gauge
	SweepDuration       prometheus.Histogram
	IFSCCacheLookups    *prometheus.CounterVec
}

// New registers all KYC metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_kyc_verifications_total",
			Help: "Document verification calls by document type and outcome",
		}, []string{"document_type", "outcome"}),
		ProviderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_kyc_provider_duration_seconds",
			Help:    "Duration of verification provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"document_type"}),
		CaseTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_kyc_case_transitions_total",
			Help: "KYC case state transitions",
		}, []string{"from", "to"}),
		AttemptsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "onboard_kyc_attempts_dropped_total",
			Help: "Verification attempts dropped because the recorder buffer was full",
		}),
		AttemptWriteErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "onboard_kyc_attempt_write_errors_total",
			Help: "Verification attempts that failed to persist",
		}),
		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "onboard_kyc_audit_failures_total",
			Help: "Audit events that could not be emitted",
		}),
		ThrottleRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_kyc_throttle_rejected_total",
			Help: "Verification requests rejected by the attempt throttle",
		}, []string{"document_type"}),
		DocumentsExpired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_kyc_documents_expired_total",
			Help: "Document proofs materialized as expired",
		}, []string{"document_type"}),
		ConcurrentConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "onboard_kyc_concurrent_modifications_total",
			Help: "Case writes rejected by the version check",
		}),
		ProviderCircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "onboard_kyc_provider_circuit_open",
			Help: "1 while the verification provider circuit breaker is open",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "onboard_kyc_expiry_sweep_duration_seconds",
			Help:    "Duration of expiry sweep runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		IFSCCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_kyc_ifsc_cache_lookups_total",
			Help: "IFSC cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordVerification(documentType, outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(documentType, outcome).Inc()
}

// ObserveProvider records the duration of a provider call.
// Call with time.Now() at the start of the call.
func (m *Metrics) ObserveProvider(documentType string, start time.Time) {
	if m == nil {
		return
	}
	m.ProviderDuration.WithLabelValues(documentType).Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.CaseTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementAttemptsDropped() {
	if m == nil {
		return
	}
	m.AttemptsDropped.Inc()
}

func (m *Metrics) IncrementAttemptWriteErrors() {
	if m == nil {
		return
	}
	m.AttemptWriteErrors.Inc()
}

func (m *Metrics) IncrementAuditFailures() {
	if m == nil {
		return
	}
	m.AuditFailures.Inc()
}

func (m *Metrics) IncrementThrottleRejected(documentType string) {
	if m == nil {
		return
	}
	m.ThrottleRejected.WithLabelValues(documentType).Inc()
}

func (m *Metrics) IncrementDocumentsExpired(documentType string) {
	if m == nil {
		return
	}
	m.DocumentsExpired.WithLabelValues(documentType).Inc()
}

func (m *Metrics) IncrementConcurrentConflicts() {
	if m == nil {
		return
	}
	m.ConcurrentConflicts.Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.ProviderCircuitOpen.Set(1)
		return
	}
	m.ProviderCircuitOpen.Set(0)
}

// ObserveSweep records the duration of an expiry sweep.
func (m *Metrics) ObserveSweep(start time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(time.Since(start).Seconds())
}

// RecordIFSCLookup counts a cache result: hit, miss or error.
func (m *Metrics) RecordIFSCLookup(result string) {
	if m == nil {
		return
	}
	m.IFSCCacheLookups.WithLabelValues(result).Inc()
}
