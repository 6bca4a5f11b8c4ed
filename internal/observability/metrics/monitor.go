// Package metrics provides custom Prometheus metrics for the components of radmon.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cycle results.
const (
	CycleResultOK      = "ok"
	CycleResultPartial = "partial" // at least one sensor read failed
	CycleResultError   = "error"   // the cycle aborted
)

// MonitorMetrics contains all Prometheus metrics related to the collection loop.
type MonitorMetrics struct {
	CyclesTotal         *prometheus.CounterVec
	CycleDuration       prometheus.Histogram
	SensorReadFailures  *prometheus.CounterVec
	ReadingsTotal       *prometheus.CounterVec
	LastValue           *prometheus.GaugeVec
	SchedulerRunning    prometheus.Gauge
	PersistenceFailures *prometheus.CounterVec
	EventsDropped       *prometheus.CounterVec
	registry            *prometheus.Registry
}

// NewMonitorMetrics creates a new instance of MonitorMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewMonitorMetrics(registry *prometheus.Registry) (*MonitorMetrics, error) {
	m := &MonitorMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register monitor metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for MonitorMetrics.
func (m *MonitorMetrics) initMetrics() {
	m.CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radmon_cycles_total",
		Help: "Total number of collection cycles by result",
	}, []string{"result"})

	m.CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "radmon_cycle_duration_seconds",
		Help:    "Duration of collection cycles",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	m.SensorReadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radmon_sensor_read_failures_total",
		Help: "Total number of failed sensor reads by sensor",
	}, []string{"sensor"})

	m.ReadingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radmon_readings_total",
		Help: "Total number of classified readings by sensor and status",
	}, []string{"sensor", "status"})

	m.LastValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radmon_sensor_value_usvh",
		Help: "Last reading of each sensor in µSv/h",
	}, []string{"sensor"})

	m.SchedulerRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radmon_scheduler_running",
		Help: "1 while the collection scheduler is running",
	})

	m.PersistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radmon_persistence_failures_total",
		Help: "Total number of failed persistence calls by operation",
	}, []string{"operation"})

	m.EventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radmon_cycle_events_dropped_total",
		Help: "Cycle events dropped because a subscriber buffer was full",
	}, []string{"subscriber"})
}

// RecordCycle records one finished cycle.
func (m *MonitorMetrics) RecordCycle(result string, duration time.Duration) {
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(duration.Seconds())
}

// RecordReading counts a classified reading and updates the sensor gauge.
func (m *MonitorMetrics) RecordReading(sensor, status string, value float64) {
	m.ReadingsTotal.WithLabelValues(sensor, status).Inc()
	m.LastValue.WithLabelValues(sensor).Set(value)
}

// RecordReadFailure counts a failed read.
func (m *MonitorMetrics) RecordReadFailure(sensor string) {
	m.SensorReadFailures.WithLabelValues(sensor).Inc()
}

// RecordPersistenceFailure counts a failed persistence call.
func (m *MonitorMetrics) RecordPersistenceFailure(operation string) {
	m.PersistenceFailures.WithLabelValues(operation).Inc()
}

// RecordEventDropped counts a dropped cycle event.
func (m *MonitorMetrics) RecordEventDropped(subscriber string) {
	m.EventsDropped.WithLabelValues(subscriber).Inc()
}

// SetRunning updates the scheduler state gauge.
func (m *MonitorMetrics) SetRunning(running bool) {
	if running {
		m.SchedulerRunning.Set(1)
	} else {
		m.SchedulerRunning.Set(0)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *MonitorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CyclesTotal.Collect(ch)
	ch <- m.CycleDuration
	m.SensorReadFailures.Collect(ch)
	m.ReadingsTotal.Collect(ch)
	m.LastValue.Collect(ch)
	ch <- m.SchedulerRunning
	m.PersistenceFailures.Collect(ch)
	m.EventsDropped.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *MonitorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CyclesTotal.Describe(ch)
	ch <- m.CycleDuration.Desc()
	m.SensorReadFailures.Describe(ch)
	m.ReadingsTotal.Describe(ch)
	m.LastValue.Describe(ch)
	ch <- m.SchedulerRunning.Desc()
	m.PersistenceFailures.Describe(ch)
	m.EventsDropped.Describe(ch)
}
