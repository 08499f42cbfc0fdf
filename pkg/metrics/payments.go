package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the payment counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// PaymentMetrics records payment transitions and gateway verification calls.
type PaymentMetrics struct {
	transitions      *prometheus.CounterVec
	verifications    *prometheus.CounterVec
	verifierDuration *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment lifecycle events by event and outcome.",
	}, []string{"event", "outcome"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Gateway verification calls by medium and outcome.",
	}, []string{"medium", "outcome"})
	verifierDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_verification_duration_seconds",
		Help:    "Duration of gateway verification calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"medium"})
	reg.MustRegister(transitions, verifications, verifierDuration)
	return &PaymentMetrics{
		transitions:      transitions,
		verifications:    verifications,
		verifierDuration: verifierDuration,
	}
}

// IncTransition counts one lifecycle event such as "approve" ending in outcome.
func (m *PaymentMetrics) IncTransition(event, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// ObserveVerification records one verifier call.
func (m *PaymentMetrics) ObserveVerification(medium, outcome string, duration time.Duration) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(medium), normalizeLabel(outcome)).Inc()
	m.verifierDuration.WithLabelValues(normalizeLabel(medium)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
