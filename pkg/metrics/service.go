package metrics

import "time"

// ServiceMetrics records service-level activity of an endpoint adapter.
//
// A service is one request kind of the address space surface such as "Read",
// "Browse" or "Write". Implementations must be safe for concurrent use.
type ServiceMetrics interface {
	// RecordRequest records a completed request with its duration and status.
	// statusCode is empty on success, otherwise the error code name.
	RecordRequest(service string, duration time.Duration, statusCode string)

	// RecordRequestStart increments the in-flight gauge for service.
	RecordRequestStart(service string)

	// RecordRequestEnd decrements the in-flight gauge for service.
	RecordRequestEnd(service string)

	// RecordOperations records how many operations a batched request carried.
	RecordOperations(service string, count int)

	// SetActiveConnections sets the current number of open connections.
	SetActiveConnections(count int32)

	// RecordConnectionQueued counts connections that waited for a slot at the connection limit.
	RecordConnectionQueued()

	// RecordRateLimited counts requests rejected by the rate limiter.
	RecordRateLimited()
}

// NewNoopServiceMetrics returns a ServiceMetrics that discards everything.
func NewNoopServiceMetrics() ServiceMetrics {
	return noopServiceMetrics{}
}

type noopServiceMetrics struct{}

func (noopServiceMetrics) RecordRequest(string, time.Duration, string) {}
func (noopServiceMetrics) RecordRequestStart(string)                   {}
func (noopServiceMetrics) RecordRequestEnd(string)                     {}
func (noopServiceMetrics) RecordOperations(string, int)                {}
func (noopServiceMetrics) SetActiveConnections(int32)                  {}
func (noopServiceMetrics) RecordConnectionQueued()                     {}
func (noopServiceMetrics) RecordRateLimited()                          {}
