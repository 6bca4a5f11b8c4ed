package events

import (
	"time"

	"github.com/androsik2006/radmon/internal/radiation"
)

// SensorFailure describes a sensor whose reading could not be taken in a cycle.
type SensorFailure struct {
	SensorID string `json:"sensor_id"`
	Error    string `json:"error"`
}

// CycleCompleted is published once at the end of every collection cycle.
type CycleCompleted struct {
	ID         string                 `json:"id"`
	Seq        uint64                 `json:"seq"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Readings   []radiation.Reading    `json:"readings"`
	Alerts     []radiation.AlertEvent `json:"alerts"`
	Failures   []SensorFailure        `json:"failures"`
}

// Duration returns how long the cycle took.
func (c CycleCompleted) Duration() time.Duration {
	return c.FinishedAt.Sub(c.StartedAt)
}

// BusStats contains bus counters.
type BusStats struct {
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}
