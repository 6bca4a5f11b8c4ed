package radiation

import (
	"context"
	"fmt"
	"time"
)

// SensorStatus is the operator-controlled lifecycle state of a sensor.
type SensorStatus string

const (
	SensorActive   SensorStatus = "active"
	SensorDisabled SensorStatus = "disabled"
)

// Valid reports whether s is a known lifecycle state.
func (s SensorStatus) Valid() bool {
	return s == SensorActive || s == SensorDisabled
}

// SensorDescriptor describes one logical measurement source.
type SensorDescriptor struct {
	ID              string       `json:"sensor_id"`
	Name            string       `json:"name"`
	Location        string       `json:"location"`
	Thresholds      *Thresholds  `json:"thresholds,omitempty"` // per-sensor override
	CalibrationDate time.Time    `json:"calibration_date"`
	Status          SensorStatus `json:"status"`
}

// Active reports whether the sensor takes part in collection cycles.
func (d SensorDescriptor) Active() bool {
	return d.Status == SensorActive
}

// Effective returns the override when set, otherwise the global pair.
func (d SensorDescriptor) Effective(global Thresholds) Thresholds {
	if d.Thresholds != nil {
		return *d.Thresholds
	}
	return global
}

// Validate checks identity, status and any threshold override.
func (d SensorDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("sensor id must not be empty")
	}
	if !d.Status.Valid() {
		return fmt.Errorf("sensor %s: invalid status %q", d.ID, d.Status)
	}
	if d.Thresholds != nil {
		if err := d.Thresholds.Validate(); err != nil {
			return fmt.Errorf("sensor %s: %w", d.ID, err)
		}
	}
	return nil
}

// ReadingSource supplies a value in µSv/h for a sensor on demand.
// Implementations must honor ctx cancellation.
type ReadingSource interface {
	Read(ctx context.Context, sensorID string) (float64, error)
}

// ReadingSourceFunc adapts a function to ReadingSource.
type ReadingSourceFunc func(ctx context.Context, sensorID string) (float64, error)

// Read calls f.
func (f ReadingSourceFunc) Read(ctx context.Context, sensorID string) (float64, error) {
	return f(ctx, sensorID)
}
