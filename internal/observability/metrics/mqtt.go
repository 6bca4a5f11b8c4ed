package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT client events counted by MQTTMetrics.Events.
const (
	MQTTEventPublished = "published"
	MQTTEventError     = "error"
	MQTTEventReconnect = "reconnect"
)

// MQTTMetrics tracks the broker connection and cycle publishing.
type MQTTMetrics struct {
	Connected      prometheus.Gauge
	Events         *prometheus.CounterVec
	PayloadBytes   prometheus.Histogram
	PublishLatency prometheus.Histogram
}

// NewMQTTMetrics registers the MQTT collectors on registry.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radmon_mqtt_connected",
			Help: "1 while the MQTT client holds a broker connection",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radmon_mqtt_events_total",
			Help: "MQTT client events by kind",
		}, []string{"event"}),
		PayloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radmon_mqtt_payload_bytes",
			Help:    "Size of published cycle payloads",
			Buckets: prometheus.ExponentialBuckets(128, 2, 9), // 128B to 32KiB
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radmon_mqtt_publish_seconds",
			Help:    "Time until the broker acknowledged a publish",
			Buckets: prometheus.ExponentialBuckets(0.002, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.Connected, m.Events, m.PayloadBytes, m.PublishLatency} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

// UpdateConnectionStatus sets the connection gauge.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	m.Connected.Set(v)
}

// RecordPublish records an acknowledged publish of size bytes.
func (m *MQTTMetrics) RecordPublish(size int, latency time.Duration) {
	m.Events.WithLabelValues(MQTTEventPublished).Inc()
	m.PayloadBytes.Observe(float64(size))
	m.PublishLatency.Observe(latency.Seconds())
}

func (m *MQTTMetrics) IncrementErrors() {
	m.Events.WithLabelValues(MQTTEventError).Inc()
}

func (m *MQTTMetrics) IncrementReconnectAttempts() {
	m.Events.WithLabelValues(MQTTEventReconnect).Inc()
}
