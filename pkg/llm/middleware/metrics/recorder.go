// Package metrics provides metrics recording for model client operations.
package metrics

import "time"

// Recorder defines the interface for recording model call metrics.
type Recorder interface {
	// ObserveRequest records a completed model call.
	ObserveRequest(model, agent string, success bool, errorType string, duration time.Duration)

	// IncFallback increments the heuristic-fallback counter for an agent.
	IncFallback(agent, reason string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are
// disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _ bool, _ string, _ time.Duration) {}

// IncFallback does nothing in the no-op recorder.
func (n *NoopRecorder) IncFallback(_, _ string) {}
