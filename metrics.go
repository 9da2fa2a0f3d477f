package signintegration

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/metrics"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// Re-export MetricsRecorder interface from ports
type MetricsRecorder = ports.MetricsRecorder

// Re-export metrics adapters
type (
	NoopMetricsRecorder       = metrics.NoopMetricsRecorder
	PrometheusMetricsRecorder = metrics.PrometheusMetricsRecorder
)

var (
	NewNoopMetricsRecorder                  = metrics.NewNoopMetricsRecorder
	NewPrometheusMetricsRecorder            = metrics.NewPrometheusMetricsRecorder
	NewPrometheusMetricsRecorderWithRegistry = metrics.NewPrometheusMetricsRecorderWithRegistry
)
