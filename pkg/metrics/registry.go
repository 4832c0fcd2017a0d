// Package metrics defines the metric interfaces of the server components and
// owns the Prometheus registry they register into.
//
// Metrics are optional. Until InitRegistry is called the constructors in the
// prometheus subpackage hand out no-op implementations, and components accept
// nil to mean the same.
//
//	metrics.InitRegistry()
//	svc := prometheus.NewServiceMetrics()
//	adapter := rest.New(cfg, svc)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is written once by InitRegistry and only read afterwards
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry with the Go runtime and
// process collectors attached. Later calls are no-ops.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the registry, or nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
