package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: длительность одного запуска агента (включая таймауты)
	RunDuration *prometheus.HistogramVec

	// Traffic: сколько запусков инициировано
	RunsTotal *prometheus.CounterVec

	// Errors: классификация отказов до и после спавна
	ErrorsTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило)
	CircuitBreakerState prometheus.Gauge

	// Сигналы о завершении, принятые слушателем из Redis
	CompletionsTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RunDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_audit_run_duration_seconds",
			Help:    "Histogram of audit agent run durations.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"outcome"}),

		RunsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_audit_runs_total",
			Help: "Total number of audit agent invocations.",
		}, []string{"outcome"}), // success, failed, timeout, rejected

		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_audit_errors_total",
			Help: "Total number of audit errors by type.",
		}, []string{"type"}), // validation, rate_limit, breaker_open, process

		CircuitBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "console_audit_circuit_breaker_state",
			Help: "Current state of the audit circuit breaker (0=closed, 1=open).",
		}),

		CompletionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_audit_completions_total",
			Help: "Audit completion signals consumed from Redis.",
		}, []string{"outcome"}), // ok, failed
	}
}
