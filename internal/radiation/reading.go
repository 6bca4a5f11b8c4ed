package radiation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Reading is one classified measurement. It is a value type and never
// modified after NewReading returns.
type Reading struct {
	SensorID   string     `json:"sensor_id"`
	Value      float64    `json:"value"`
	Timestamp  time.Time  `json:"timestamp"`
	Status     Status     `json:"status"`
	Thresholds Thresholds `json:"thresholds"`
	Cycle      uint64     `json:"cycle"`
}

// NewReading classifies value against thresholds. Negative and
// non-finite values are rejected.
func NewReading(sensorID string, value float64, ts time.Time, thresholds Thresholds, cycle uint64) (Reading, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Reading{}, fmt.Errorf("sensor %s: reading is not a finite number", sensorID)
	}
	if value < 0 {
		return Reading{}, fmt.Errorf("sensor %s: negative reading %v", sensorID, value)
	}
	return Reading{
		SensorID:   sensorID,
		Value:      value,
		Timestamp:  ts,
		Status:     thresholds.Classify(value),
		Thresholds: thresholds,
		Cycle:      cycle,
	}, nil
}

// AlertType is the severity of an alert event.
type AlertType string

const (
	AlertWarning  AlertType = "WARNING"
	AlertCritical AlertType = "CRITICAL"
)

// AlertTypeFor maps a tier to its alert type. NORMAL has none.
func AlertTypeFor(status Status) (AlertType, bool) {
	switch status {
	case StatusDanger:
		return AlertCritical, true
	case StatusWarning:
		return AlertWarning, true
	default:
		return "", false
	}
}

// AlertEvent is the durable record of a threshold breach. Only Notified
// changes after creation, false to true, on successful delivery.
type AlertEvent struct {
	ID             string    `json:"id"`
	SensorID       string    `json:"sensor_id"`
	Type           AlertType `json:"alert_type"`
	ThresholdValue float64   `json:"threshold_value"`
	ActualValue    float64   `json:"actual_value"`
	Timestamp      time.Time `json:"timestamp"`
	Notified       bool      `json:"notified"`
}

// NewAlertEvent builds the alert for a reading, or false when the reading
// is NORMAL.
func NewAlertEvent(r Reading) (AlertEvent, bool) {
	alertType, ok := AlertTypeFor(r.Status)
	if !ok {
		return AlertEvent{}, false
	}
	return AlertEvent{
		ID:             uuid.NewString(),
		SensorID:       r.SensorID,
		Type:           alertType,
		ThresholdValue: r.Thresholds.Crossed(r.Status),
		ActualValue:    r.Value,
		Timestamp:      r.Timestamp,
	}, true
}

// Pending reports whether delivery has not succeeded yet.
func (a AlertEvent) Pending() bool {
	return !a.Notified
}
