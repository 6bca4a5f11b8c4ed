package datastore

import (
	"time"

	"github.com/androsik2006/radmon/internal/radiation"
)

// Sensor is a row of the sensor registry.
type Sensor struct {
	SensorID         string     `gorm:"primaryKey;size:64" json:"sensor_id"`
	Name             string     `gorm:"size:255" json:"name"`
	Location         string     `gorm:"size:255" json:"location"`
	WarningThreshold *float64   `json:"warning_threshold,omitempty"` // nil = global threshold
	DangerThreshold  *float64   `json:"danger_threshold,omitempty"`
	CalibrationDate  *time.Time `json:"calibration_date,omitempty"`
	Status           string     `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Measurement is one persisted reading.
type Measurement struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SensorID       string    `gorm:"size:64;not null;index:idx_measurements_sensor_time,priority:1" json:"sensor_id"`
	RadiationLevel float64   `gorm:"not null" json:"radiation_level"`
	Status         string    `gorm:"size:16;not null;index" json:"status"`
	Cycle          uint64    `json:"cycle"`
	Timestamp      time.Time `gorm:"not null;index:idx_measurements_sensor_time,priority:2;index:idx_measurements_timestamp" json:"timestamp"`
}

// Alert is one persisted alert event. ID is the event uuid.
type Alert struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	SensorID       string    `gorm:"size:64;not null;index" json:"sensor_id"`
	AlertType      string    `gorm:"size:16;not null" json:"alert_type"`
	ThresholdValue float64   `json:"threshold_value"`
	ActualValue    float64   `json:"actual_value"`
	Timestamp      time.Time `gorm:"not null;index" json:"timestamp"`
	Notified       bool      `gorm:"not null;default:false;index" json:"notified"`
}

// MeasurementRecord is a measurement joined with its sensor's location.
type MeasurementRecord struct {
	ID             uint      `json:"id"`
	SensorID       string    `json:"sensor_id"`
	Location       string    `json:"location"`
	RadiationLevel float64   `json:"radiation_level"`
	Status         string    `json:"status"`
	Cycle          uint64    `json:"cycle"`
	Timestamp      time.Time `json:"timestamp"`
}

// Statistics summarizes the persisted history.
type Statistics struct {
	TotalMeasurements int64      `json:"total_measurements"`
	TodayMeasurements int64      `json:"today_measurements"`
	Exceedances       int64      `json:"exceedances"` // measurements with status other than NORMAL
	LastUpdate        *time.Time `json:"last_update,omitempty"`
	ActiveSensors     int64      `json:"active_sensors"`
	PendingAlerts     int64      `json:"pending_alerts"`
}

// Summary holds all-time level statistics.
type Summary struct {
	Total       int64   `json:"total"`
	Avg         float64 `json:"avg"`
	Max         float64 `json:"max"`
	Min         float64 `json:"min"`
	Exceedances int64   `json:"exceedances"`
}

// DailyAggregate is one sensor's summary for a calendar day or period.
type DailyAggregate struct {
	SensorID string  `json:"sensor_id"`
	Avg      float64 `json:"avg"`
	Max      float64 `json:"max"`
	Min      float64 `json:"min"`
	Count    int64   `json:"count"`
}

func measurementFromReading(r radiation.Reading) Measurement {
	return Measurement{
		SensorID:       r.SensorID,
		RadiationLevel: r.Value,
		Status:         r.Status.String(),
		Cycle:          r.Cycle,
		Timestamp:      r.Timestamp.UTC(),
	}
}

func alertFromEvent(a radiation.AlertEvent) Alert {
	return Alert{
		ID:             a.ID,
		SensorID:       a.SensorID,
		AlertType:      string(a.Type),
		ThresholdValue: a.ThresholdValue,
		ActualValue:    a.ActualValue,
		Timestamp:      a.Timestamp.UTC(),
		Notified:       a.Notified,
	}
}

// Event converts the row back to an alert event.
func (a Alert) Event() radiation.AlertEvent {
	return radiation.AlertEvent{
		ID:             a.ID,
		SensorID:       a.SensorID,
		Type:           radiation.AlertType(a.AlertType),
		ThresholdValue: a.ThresholdValue,
		ActualValue:    a.ActualValue,
		Timestamp:      a.Timestamp,
		Notified:       a.Notified,
	}
}

func sensorFromDescriptor(d radiation.SensorDescriptor) Sensor {
	s := Sensor{
		SensorID: d.ID,
		Name:     d.Name,
		Location: d.Location,
		Status:   string(d.Status),
	}
	if d.Thresholds != nil {
		w, dg := d.Thresholds.Warning, d.Thresholds.Danger
		s.WarningThreshold, s.DangerThreshold = &w, &dg
	}
	if !d.CalibrationDate.IsZero() {
		c := d.CalibrationDate.UTC()
		s.CalibrationDate = &c
	}
	return s
}

// Descriptor converts the row back to a sensor descriptor.
func (s Sensor) Descriptor() radiation.SensorDescriptor {
	d := radiation.SensorDescriptor{
		ID:       s.SensorID,
		Name:     s.Name,
		Location: s.Location,
		Status:   radiation.SensorStatus(s.Status),
	}
	if s.WarningThreshold != nil && s.DangerThreshold != nil {
		d.Thresholds = &radiation.Thresholds{Warning: *s.WarningThreshold, Danger: *s.DangerThreshold}
	}
	if s.CalibrationDate != nil {
		d.CalibrationDate = *s.CalibrationDate
	}
	return d
}
