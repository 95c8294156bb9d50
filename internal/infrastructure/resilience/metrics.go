package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Grading outcome labels
const (
	outcomeGraded      = "graded"
	outcomeRejected    = "rejected"
	outcomeEmptyAnswer = "empty_answer"
	outcomeRateLimited = "rate_limited"
	outcomeCircuitOpen = "circuit_open"
	outcomeTimeout     = "timeout"
	outcomeGraderError = "grader_error"
	outcomeMalformed   = "malformed"
)

// Metrics exposes guard activity to Prometheus
type Metrics struct {
	calls        *prometheus.CounterVec
	breakerState prometheus.Gauge
	latency      prometheus.Histogram
}

// NewMetrics registers the guard collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caesar",
			Subsystem: "grading",
			Name:      "calls_total",
			Help:      "Grading requests by how they were resolved.",
		}, []string{"outcome"}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "caesar",
			Subsystem: "grading",
			Name:      "circuit_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "caesar",
			Subsystem: "grading",
			Name:      "call_duration_seconds",
			Help:      "Latency of calls that reached the grader.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		}),
	}
	reg.MustRegister(m.calls, m.breakerState, m.latency)
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setBreaker(state BreakerState) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

func (m *Metrics) observeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.latency.Observe(seconds)
}
