package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/observability/metrics"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Monitor.RecordCycle(metrics.CycleResultPartial, 20*time.Millisecond)
	m.Monitor.RecordReading("Д-124", "WARNING", 1.2)
	m.Monitor.RecordReading("Д-124", "WARNING", 1.4)
	m.Monitor.RecordReadFailure("Д-128")
	m.Monitor.SetRunning(true)
	m.Notification.RecordAlert("CRITICAL")
	m.Notification.RecordDelivery("email", metrics.DeliveryResultError, time.Second)
	m.MQTT.RecordPublish(128, time.Millisecond)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Monitor.CyclesTotal.WithLabelValues(metrics.CycleResultPartial)), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Monitor.ReadingsTotal.WithLabelValues("Д-124", "WARNING")), 1e-9)
	assert.InDelta(t, 1.4, testutil.ToFloat64(m.Monitor.LastValue.WithLabelValues("Д-124")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Monitor.SchedulerRunning), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Notification.DeliveriesTotal.WithLabelValues("email", "error")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.MQTT.Events.WithLabelValues(metrics.MQTTEventPublished)), 1e-9)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{
		"radmon_cycles_total",
		"radmon_sensor_read_failures_total",
		"radmon_alerts_total",
		"radmon_mqtt_messages_delivered_total",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestIndependentRegistries(t *testing.T) {
	t.Parallel()

	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err, "each Metrics owns its registry")

	a.Monitor.RecordReadFailure("x")
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.Monitor.SensorReadFailures.WithLabelValues("x")), 1e-9)
}
