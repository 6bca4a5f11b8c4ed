package mqtt

import (
	"time"

	"github.com/androsik2006/radmon/internal/events"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Unit is the measurement unit published with every reading.
const Unit = "µSv/h"

// ReadingDTO is the payload published to {topic}/readings/{sensor_id}.
//
// Field names are part of the MQTT contract consumed by dashboards and
// Home Assistant templates.
type ReadingDTO struct {
	SensorID  string  `json:"sensor_id"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Status    string  `json:"status"`
	Warning   float64 `json:"warning_threshold"`
	Danger    float64 `json:"danger_threshold"`
	Timestamp string  `json:"timestamp"` // RFC3339
	Cycle     uint64  `json:"cycle"`
}

// NewReadingDTO converts a reading.
func NewReadingDTO(r radiation.Reading) ReadingDTO {
	return ReadingDTO{
		SensorID:  r.SensorID,
		Value:     r.Value,
		Unit:      Unit,
		Status:    r.Status.String(),
		Warning:   r.Thresholds.Warning,
		Danger:    r.Thresholds.Danger,
		Timestamp: r.Timestamp.Format(time.RFC3339),
		Cycle:     r.Cycle,
	}
}

// AlertDTO is the payload published to {topic}/alerts.
type AlertDTO struct {
	ID        string  `json:"id"`
	SensorID  string  `json:"sensor_id"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Unit      string  `json:"unit"`
	Timestamp string  `json:"timestamp"` // RFC3339
}

// NewAlertDTO converts an alert event.
func NewAlertDTO(a radiation.AlertEvent) AlertDTO {
	return AlertDTO{
		ID:        a.ID,
		SensorID:  a.SensorID,
		Type:      string(a.Type),
		Value:     a.ActualValue,
		Threshold: a.ThresholdValue,
		Unit:      Unit,
		Timestamp: a.Timestamp.Format(time.RFC3339),
	}
}

// CycleDTO is the summary published to {topic}/cycles.
type CycleDTO struct {
	ID         string   `json:"id"`
	Seq        uint64   `json:"seq"`
	StartedAt  string   `json:"started_at"`
	DurationMS int64    `json:"duration_ms"`
	Readings   int      `json:"readings"`
	Alerts     int      `json:"alerts"`
	Failed     []string `json:"failed_sensors,omitempty"`
}

// NewCycleDTO summarizes a completed cycle.
func NewCycleDTO(ev events.CycleCompleted) CycleDTO {
	dto := CycleDTO{
		ID:         ev.ID,
		Seq:        ev.Seq,
		StartedAt:  ev.StartedAt.Format(time.RFC3339),
		DurationMS: ev.Duration().Milliseconds(),
		Readings:   len(ev.Readings),
		Alerts:     len(ev.Alerts),
	}
	for _, f := range ev.Failures {
		dto.Failed = append(dto.Failed, f.SensorID)
	}
	return dto
}
