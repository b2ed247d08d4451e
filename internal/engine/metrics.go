package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: полный путь оркестрации (валидация + ретраи + сеть)
	SubmissionDuration *prometheus.HistogramVec

	// Traffic: сколько подач прошло через движок
	SubmissionsTotal *prometheus.CounterVec

	// Errors: отказы пре-флайт валидации
	ValidationFailures *prometheus.CounterVec

	// Сколько раз Retry Controller уходил в паузу перед повтором
	RetryAttempts *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - разомкнут)
	CircuitBreakerState *prometheus.GaugeVec

	// Backpressure архивного конвейера аудита
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — без реестра метрики живут в локальном,
	// никуда не подключенном (удобно в тестах)
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		SubmissionDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filing_submission_duration_seconds",
			Help:    "Histogram of end-to-end submission latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"regulator", "status"}),

		SubmissionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "filing_submissions_total",
			Help: "Total number of processed filing submissions.",
		}, []string{"regulator", "filing_type"}),

		ValidationFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "filing_validation_failures_total",
			Help: "Submissions rejected before any network attempt.",
		}, []string{"regulator"}),

		RetryAttempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "filing_retry_attempts_total",
			Help: "Retries scheduled by the reliability wrapper.",
		}, []string{"regulator"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "filing_circuit_breaker_state",
			Help: "Current state of the per-regulator circuit breaker (0=closed, 1=open).",
		}, []string{"regulator"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "filing_audit_buffer_utilization",
			Help: "Current number of entries in the audit archive buffer.",
		}),
	}
}
