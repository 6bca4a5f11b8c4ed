package conf

import (
	"slices"
	"time"

	"github.com/androsik2006/radmon/internal/radiation"
)

// Snapshot is the immutable view of the settings that one collection cycle
// works with. It is never modified after NewSnapshot returns.
type Snapshot struct {
	Interval        time.Duration
	ReadTimeout     time.Duration
	PersistTimeout  time.Duration
	StaleAfter      time.Duration
	ReadConcurrency int
	Thresholds      radiation.Thresholds

	sensors []radiation.SensorDescriptor
}

// NewSnapshot converts settings into a Snapshot. Settings are expected to
// have passed ValidateSettings.
func NewSnapshot(s *Settings) *Snapshot {
	snap := &Snapshot{
		Interval:        s.Monitor.PollingInterval.Duration(),
		ReadTimeout:     s.Monitor.ReadTimeout.Duration(),
		PersistTimeout:  s.Monitor.PersistTimeout.Duration(),
		StaleAfter:      s.Monitor.StaleAfter.Duration(),
		ReadConcurrency: max(s.Monitor.ReadConcurrency, 1),
		Thresholds:      s.Thresholds,
		sensors:         SensorDescriptors(s.Sensors),
	}
	if snap.StaleAfter <= 0 {
		snap.StaleAfter = 3 * snap.Interval
	}
	return snap
}

// SensorDescriptors converts configured sensors, in configuration order.
// An empty status means active.
func SensorDescriptors(sensors []SensorSettings) []radiation.SensorDescriptor {
	out := make([]radiation.SensorDescriptor, 0, len(sensors))
	for _, s := range sensors {
		d := radiation.SensorDescriptor{
			ID:       s.ID,
			Name:     s.Name,
			Location: s.Location,
			Status:   radiation.SensorStatus(s.Status),
		}
		if d.Status == "" {
			d.Status = radiation.SensorActive
		}
		if s.Thresholds != nil {
			t := *s.Thresholds
			d.Thresholds = &t
		}
		if s.CalibrationDate != "" {
			if ts, err := time.Parse(CalibrationDateLayout, s.CalibrationDate); err == nil {
				d.CalibrationDate = ts
			}
		}
		out = append(out, d)
	}
	return out
}

// Sensors returns all configured sensors, in configuration order.
func (s *Snapshot) Sensors() []radiation.SensorDescriptor {
	return slices.Clone(s.sensors)
}

// ActiveSensors returns the sensors that take part in collection.
func (s *Snapshot) ActiveSensors() []radiation.SensorDescriptor {
	active := make([]radiation.SensorDescriptor, 0, len(s.sensors))
	for _, d := range s.sensors {
		if d.Active() {
			active = append(active, d)
		}
	}
	return active
}

// Sensor looks a configured sensor up by id.
func (s *Snapshot) Sensor(id string) (radiation.SensorDescriptor, bool) {
	for _, d := range s.sensors {
		if d.ID == id {
			return d, true
		}
	}
	return radiation.SensorDescriptor{}, false
}

// ThresholdsFor returns the pair applied to d: its override, or the global pair.
func (s *Snapshot) ThresholdsFor(d radiation.SensorDescriptor) radiation.Thresholds {
	return d.Effective(s.Thresholds)
}

// WithStatuses returns a copy of s whose sensor statuses are replaced by
// overrides, keyed by sensor id. Unknown ids are ignored.
func (s *Snapshot) WithStatuses(overrides map[string]radiation.SensorStatus) *Snapshot {
	if len(overrides) == 0 {
		return s
	}
	out := *s
	out.sensors = slices.Clone(s.sensors)
	for i := range out.sensors {
		if status, ok := overrides[out.sensors[i].ID]; ok {
			out.sensors[i].Status = status
		}
	}
	return &out
}
