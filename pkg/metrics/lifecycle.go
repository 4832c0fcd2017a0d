package metrics

import "time"

// LifecycleMetrics records process lifecycle events.
type LifecycleMetrics interface {
	// SetState publishes the current lifecycle state. ordinal is the numeric
	// value of the state, name its label.
	SetState(name string, ordinal int)

	// RecordBootstrap records how long the address space bootstrap took.
	RecordBootstrap(duration time.Duration, err error)

	// RecordSignal counts termination signals received.
	RecordSignal(signal string)
}

// NewNoopLifecycleMetrics returns a LifecycleMetrics that discards everything.
func NewNoopLifecycleMetrics() LifecycleMetrics {
	return noopLifecycleMetrics{}
}

type noopLifecycleMetrics struct{}

func (noopLifecycleMetrics) SetState(string, int)                 {}
func (noopLifecycleMetrics) RecordBootstrap(time.Duration, error) {}
func (noopLifecycleMetrics) RecordSignal(string)                  {}
