package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenonforlife/Sample-Server-node-opcua/pkg/metrics"
)

// The registry is process-wide and promauto panics on duplicate
// registration, so every implementation is constructed once in this test.
func TestPrometheusMetrics(t *testing.T) {
	metrics.InitRegistry()
	require.True(t, metrics.IsEnabled())

	lm, ok := NewLifecycleMetrics().(*lifecycleMetrics)
	require.True(t, ok, "expected the prometheus implementation once the registry exists")

	sm, ok := NewServiceMetrics().(*serviceMetrics)
	require.True(t, ok)

	t.Run("lifecycle state", func(t *testing.T) {
		lm.SetState("Running", 1)
		lm.SetState("ShutdownRequested", 2)

		assert.Equal(t, float64(2), testutil.ToFloat64(lm.state))
		assert.Equal(t, float64(1), testutil.ToFloat64(lm.stateInfo.WithLabelValues("ShutdownRequested")))
		assert.Equal(t, 1, testutil.CollectAndCount(lm.stateInfo), "only the current state is exported")
	})

	t.Run("bootstrap and signals", func(t *testing.T) {
		lm.RecordBootstrap(20*time.Millisecond, nil)
		lm.RecordBootstrap(time.Millisecond, errors.New("boom"))
		lm.RecordSignal("interrupt")

		assert.Equal(t, float64(1), testutil.ToFloat64(lm.bootstrapsTotal.WithLabelValues("success")))
		assert.Equal(t, float64(1), testutil.ToFloat64(lm.bootstrapsTotal.WithLabelValues("error")))
		assert.Equal(t, float64(1), testutil.ToFloat64(lm.signalsTotal.WithLabelValues("interrupt")))
	})

	t.Run("service requests", func(t *testing.T) {
		sm.RecordRequestStart("read")
		assert.Equal(t, float64(1), testutil.ToFloat64(sm.requestsInFlight.WithLabelValues("read")))
		sm.RecordRequestEnd("read")
		assert.Equal(t, float64(0), testutil.ToFloat64(sm.requestsInFlight.WithLabelValues("read")))

		sm.RecordRequest("read", 3*time.Millisecond, "")
		sm.RecordRequest("read", time.Millisecond, "400")
		assert.Equal(t, float64(1), testutil.ToFloat64(sm.requestsTotal.WithLabelValues("read", "success", "")))
		assert.Equal(t, float64(1), testutil.ToFloat64(sm.requestsTotal.WithLabelValues("read", "error", "400")))
	})

	t.Run("connections", func(t *testing.T) {
		sm.SetActiveConnections(3)
		sm.RecordConnectionQueued()
		sm.RecordRateLimited()
		sm.RecordOperations("browse", 12)

		assert.Equal(t, float64(3), testutil.ToFloat64(sm.activeConnections))
		assert.Equal(t, float64(1), testutil.ToFloat64(sm.connectionsQueued))
		assert.Equal(t, float64(1), testutil.ToFloat64(sm.rateLimited))
	})
}
