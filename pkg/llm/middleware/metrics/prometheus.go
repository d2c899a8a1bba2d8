package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fallbackTotal   *prometheus.CounterVec
}

// NewPrometheusRecorder creates a Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_requests_total",
				Help: "Total number of model service requests by model, agent and status",
			},
			[]string{"model", "agent", "status", "error_type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "model_request_duration_seconds",
				Help:    "Duration of model service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "agent"},
		),
		fallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_fallback_total",
				Help: "Times an agent used its deterministic fallback instead of model output",
			},
			[]string{"agent", "reason"},
		),
	}
}

// ObserveRequest records a completed model call.
func (p *PrometheusRecorder) ObserveRequest(model, agent string, success bool, errorType string, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	p.requestsTotal.WithLabelValues(model, agent, status, errorType).Inc()
	p.requestDuration.WithLabelValues(model, agent).Observe(duration.Seconds())
}

// IncFallback increments the heuristic-fallback counter.
func (p *PrometheusRecorder) IncFallback(agent, reason string) {
	p.fallbackTotal.WithLabelValues(agent, reason).Inc()
}
