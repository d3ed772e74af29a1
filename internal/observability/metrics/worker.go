package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

// WorkerMetrics covers the validation responders.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	validationInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	validationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "validations_total",
			Help:      "Total answered validation requests by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	validationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "validation_duration_seconds",
			Help:      "Validation responder duration in seconds by kind and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind", "status"},
	)
	validationInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "validations_in_flight",
			Help:      "Number of validation requests being answered.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(validationTotal, validationDuration, validationInFlight)

	return &WorkerMetrics{
		registry:           registry,
		service:            service,
		validationTotal:    validationTotal,
		validationDuration: validationDuration,
		validationInFlight: validationInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartValidation() {
	m.validationInFlight.Inc()
}

func (m *WorkerMetrics) FinishValidation(kind domain.ValidationKind, duration time.Duration, err error) {
	m.validationInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.validationTotal.WithLabelValues(m.service, string(kind), status).Inc()
	m.validationDuration.WithLabelValues(m.service, string(kind), status).Observe(duration.Seconds())
}
