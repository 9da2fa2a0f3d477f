package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordRequestCreated records a CreateSignRequest outcome.
	RecordRequestCreated(policy string, success bool)

	// RecordResponseProcessed records a ProcessSignResponse outcome
	// ("complete", "cancelled", "error-status" or "rejected").
	RecordResponseProcessed(policy string, outcome string)

	// RecordStateResolution records a state resolution attempt by mode
	// ("server" or "client") and result ("ok", "not-found", "denied",
	// "format-error" or "policy-error").
	RecordStateResolution(mode string, result string)
}
