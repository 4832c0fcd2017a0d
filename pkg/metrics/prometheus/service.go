package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics"
)

// serviceMetrics is the Prometheus implementation of metrics.ServiceMetrics.
type serviceMetrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestsInFlight  *prometheus.GaugeVec
	operationsPerCall *prometheus.HistogramVec
	activeConnections prometheus.Gauge
	connectionsQueued prometheus.Counter
	rateLimited       prometheus.Counter
}

// NewServiceMetrics creates Prometheus-backed service metrics.
//
// Returns a no-op implementation if metrics.InitRegistry() has not been called.
func NewServiceMetrics() metrics.ServiceMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopServiceMetrics()
	}

	reg := metrics.GetRegistry()

	return &serviceMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "uaserver_service_requests_total",
				Help: "Total number of service requests by service and status",
			},
			[]string{"service", "status", "status_code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "uaserver_service_request_duration_milliseconds",
				Help: "Duration of service requests in milliseconds",
				Buckets: []float64{
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"service"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "uaserver_service_requests_in_flight",
				Help: "Current number of service requests being processed",
			},
			[]string{"service"},
		),
		operationsPerCall: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uaserver_service_operations_per_request",
				Help:    "Distribution of operations carried by batched requests",
				Buckets: []float64{1, 10, 100, 1000},
			},
			[]string{"service"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "uaserver_active_connections",
				Help: "Current number of active endpoint connections",
			},
		),
		connectionsQueued: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "uaserver_connections_queued_total",
				Help: "Total number of connections that waited for a slot at the connection limit",
			},
		),
		rateLimited: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "uaserver_requests_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}
}

func (m *serviceMetrics) RecordRequest(service string, duration time.Duration, statusCode string) {
	status := "success"
	if statusCode != "" {
		status = "error"
	}

	m.requestsTotal.WithLabelValues(service, status, statusCode).Inc()
	m.requestDuration.WithLabelValues(service).Observe(duration.Seconds() * 1000)
}

func (m *serviceMetrics) RecordRequestStart(service string) {
	m.requestsInFlight.WithLabelValues(service).Inc()
}

func (m *serviceMetrics) RecordRequestEnd(service string) {
	m.requestsInFlight.WithLabelValues(service).Dec()
}

func (m *serviceMetrics) RecordOperations(service string, count int) {
	m.operationsPerCall.WithLabelValues(service).Observe(float64(count))
}

func (m *serviceMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *serviceMetrics) RecordConnectionQueued() {
	m.connectionsQueued.Inc()
}

func (m *serviceMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}
