package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	requestsCreatedTotal    *prometheus.CounterVec
	responsesProcessedTotal *prometheus.CounterVec
	stateResolutionsTotal   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics
// recorder with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	requestsCreatedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signservice_requests_created_total",
		Help: "Total sign requests created",
	}, []string{"policy", "result"})

	responsesProcessedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signservice_responses_processed_total",
		Help: "Total sign responses processed, by outcome",
	}, []string{"policy", "outcome"})

	stateResolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signservice_state_resolutions_total",
		Help: "Total session state resolution attempts",
	}, []string{"mode", "result"})

	reg.MustRegister(requestsCreatedTotal, responsesProcessedTotal, stateResolutionsTotal)

	return &PrometheusMetricsRecorder{
		requestsCreatedTotal:    requestsCreatedTotal,
		responsesProcessedTotal: responsesProcessedTotal,
		stateResolutionsTotal:   stateResolutionsTotal,
	}
}

// RecordRequestCreated records a CreateSignRequest outcome.
func (r *PrometheusMetricsRecorder) RecordRequestCreated(policy string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.requestsCreatedTotal.WithLabelValues(policy, result).Inc()
}

// RecordResponseProcessed records a ProcessSignResponse outcome.
func (r *PrometheusMetricsRecorder) RecordResponseProcessed(policy string, outcome string) {
	r.responsesProcessedTotal.WithLabelValues(policy, outcome).Inc()
}

// RecordStateResolution records a state resolution attempt.
func (r *PrometheusMetricsRecorder) RecordStateResolution(mode string, result string) {
	r.stateResolutionsTotal.WithLabelValues(mode, result).Inc()
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
