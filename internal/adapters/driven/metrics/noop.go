// Package metrics provides MetricsRecorder adapters.
package metrics

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are
// disabled. All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordRequestCreated is a no-op.
func (n *NoopMetricsRecorder) RecordRequestCreated(policy string, success bool) {}

// RecordResponseProcessed is a no-op.
func (n *NoopMetricsRecorder) RecordResponseProcessed(policy string, outcome string) {}

// RecordStateResolution is a no-op.
func (n *NoopMetricsRecorder) RecordStateResolution(mode string, result string) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
