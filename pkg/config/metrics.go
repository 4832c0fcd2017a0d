package config

import (
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics"
	promMetrics "github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// ServiceMetrics is the collector for the endpoint adapters (never nil, uses noop if disabled)
	ServiceMetrics metrics.ServiceMetrics

	// LifecycleMetrics is the collector for the lifecycle controller (never nil, uses noop if disabled)
	LifecycleMetrics metrics.LifecycleMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			ServiceMetrics:   metrics.NewNoopServiceMetrics(),
			LifecycleMetrics: metrics.NewNoopLifecycleMetrics(),
		}
	}

	// Initialize global Prometheus registry
	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:           server,
		ServiceMetrics:   promMetrics.NewServiceMetrics(),
		LifecycleMetrics: promMetrics.NewLifecycleMetrics(),
	}
}
