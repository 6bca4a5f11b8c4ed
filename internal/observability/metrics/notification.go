package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery results.
const (
	DeliveryResultSuccess  = "success"
	DeliveryResultError    = "error"
	DeliveryResultRejected = "rejected" // circuit breaker or rate limiter refused the attempt
)

// NotificationMetrics contains all Prometheus metrics related to alerting and delivery.
type NotificationMetrics struct {
	AlertsTotal         *prometheus.CounterVec   // alerts raised by type
	DeliveriesTotal     *prometheus.CounterVec   // delivery attempts by sink and result
	DeliveryDuration    *prometheus.HistogramVec // latency by sink
	CircuitBreakerState *prometheus.GaugeVec     // 0 closed, 1 half-open, 2 open
	PendingAlerts       prometheus.Gauge
	DeliveriesInFlight  prometheus.Gauge
	registry            *prometheus.Registry
}

// NewNotificationMetrics creates a new instance of NotificationMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for NotificationMetrics.
func (m *NotificationMetrics) initMetrics() {
	m.AlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radmon_alerts_total",
		Help: "Total number of alerts raised by type",
	}, []string{"type"})

	m.DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radmon_notification_deliveries_total",
		Help: "Total number of notification delivery attempts by sink and result",
	}, []string{"sink", "result"})

	m.DeliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radmon_notification_delivery_duration_seconds",
		Help:    "Time taken for notification delivery by sink",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"sink"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radmon_notification_circuit_breaker_state",
		Help: "Circuit breaker state by sink (0=closed, 1=half-open, 2=open)",
	}, []string{"sink"})

	m.PendingAlerts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radmon_alerts_pending",
		Help: "Alerts in the in-memory log whose delivery has not succeeded",
	})

	m.DeliveriesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radmon_notification_deliveries_in_flight",
		Help: "Delivery attempts currently running",
	})
}

// RecordAlert counts a raised alert.
func (m *NotificationMetrics) RecordAlert(alertType string) {
	m.AlertsTotal.WithLabelValues(alertType).Inc()
}

// RecordDelivery records one delivery attempt.
func (m *NotificationMetrics) RecordDelivery(sink, result string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(sink, result).Inc()
	m.DeliveryDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// UpdateCircuitBreakerState sets the breaker state gauge of a sink.
func (m *NotificationMetrics) UpdateCircuitBreakerState(sink string, state int) {
	m.CircuitBreakerState.WithLabelValues(sink).Set(float64(state))
}

// SetPendingAlerts sets the pending alert gauge.
func (m *NotificationMetrics) SetPendingAlerts(n int) {
	m.PendingAlerts.Set(float64(n))
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.AlertsTotal.Collect(ch)
	m.DeliveriesTotal.Collect(ch)
	m.DeliveryDuration.Collect(ch)
	m.CircuitBreakerState.Collect(ch)
	ch <- m.PendingAlerts
	ch <- m.DeliveriesInFlight
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.AlertsTotal.Describe(ch)
	m.DeliveriesTotal.Describe(ch)
	m.DeliveryDuration.Describe(ch)
	m.CircuitBreakerState.Describe(ch)
	ch <- m.PendingAlerts.Desc()
	ch <- m.DeliveriesInFlight.Desc()
}
