package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics"
)

type lifecycleMetrics struct {
	state             prometheus.Gauge
	stateInfo         *prometheus.GaugeVec
	bootstrapDuration prometheus.Histogram
	bootstrapsTotal   *prometheus.CounterVec
	signalsTotal      *prometheus.CounterVec
}

// NewLifecycleMetrics creates Prometheus-backed lifecycle metrics.
//
// Returns a no-op implementation if metrics.InitRegistry() has not been called.
func NewLifecycleMetrics() metrics.LifecycleMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopLifecycleMetrics()
	}

	reg := metrics.GetRegistry()

	return &lifecycleMetrics{
		state: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "uaserver_lifecycle_state",
				Help: "Current lifecycle state as its ordinal value",
			},
		),
		stateInfo: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "uaserver_lifecycle_state_info",
				Help: "Set to 1 for the current lifecycle state, 0 for the others",
			},
			[]string{"state"},
		),
		bootstrapDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "uaserver_bootstrap_duration_seconds",
				Help:    "Duration of the address space bootstrap",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		bootstrapsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "uaserver_bootstraps_total",
				Help: "Total number of bootstrap runs by status",
			},
			[]string{"status"},
		),
		signalsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "uaserver_signals_total",
				Help: "Total number of termination signals received",
			},
			[]string{"signal"},
		),
	}
}

func (m *lifecycleMetrics) SetState(name string, ordinal int) {
	m.state.Set(float64(ordinal))
	m.stateInfo.Reset()
	m.stateInfo.WithLabelValues(name).Set(1)
}

func (m *lifecycleMetrics) RecordBootstrap(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.bootstrapDuration.Observe(duration.Seconds())
	m.bootstrapsTotal.WithLabelValues(status).Inc()
}

func (m *lifecycleMetrics) RecordSignal(signal string) {
	m.signalsTotal.WithLabelValues(signal).Inc()
}
