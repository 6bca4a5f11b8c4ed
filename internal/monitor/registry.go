package monitor

import (
	"context"
	"maps"
	"sync"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/radiation"
)

// StatusPersister stores operator status changes.
type StatusPersister interface {
	SetSensorStatus(ctx context.Context, sensorID string, status radiation.SensorStatus) error
}

// Registry holds run-time sensor status overrides set by the operator. The
// next cycle's snapshot applies them on top of the configured statuses.
type Registry struct {
	snapshot SnapshotFunc
	persist  StatusPersister

	mu        sync.RWMutex
	overrides map[string]radiation.SensorStatus
}

// NewRegistry creates a Registry. persist may be nil.
func NewRegistry(snapshot SnapshotFunc, persist StatusPersister) *Registry {
	return &Registry{
		snapshot:  snapshot,
		persist:   persist,
		overrides: make(map[string]radiation.SensorStatus),
	}
}

// Seed loads overrides restored from the datastore at startup.
func (r *Registry) Seed(statuses map[string]radiation.SensorStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	maps.Copy(r.overrides, statuses)
}

// SetStatus enables or disables a sensor starting with the next cycle.
// The change is kept in memory even when persisting it fails; the
// persistence error is returned.
func (r *Registry) SetStatus(ctx context.Context, sensorID string, status radiation.SensorStatus) error {
	if !status.Valid() {
		return errors.Newf("invalid sensor status %q", status).
			Component("monitor").
			Category(errors.CategoryValidation).
			Context("sensor_id", sensorID).
			Build()
	}
	if _, ok := r.snapshot().Sensor(sensorID); !ok {
		return errors.Newf("unknown sensor %s", sensorID).
			Component("monitor").
			Category(errors.CategoryNotFound).
			Context("sensor_id", sensorID).
			Build()
	}

	r.mu.Lock()
	r.overrides[sensorID] = status
	r.mu.Unlock()

	GetLogger().Info("sensor status changed",
		logger.String("sensor_id", sensorID),
		logger.String("status", string(status)))

	if r.persist == nil {
		return nil
	}
	return r.persist.SetSensorStatus(ctx, sensorID, status)
}

// Overrides returns a copy of the current overrides.
func (r *Registry) Overrides() map[string]radiation.SensorStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.overrides)
}

// Sensors returns the configured sensors with overrides applied.
func (r *Registry) Sensors() []radiation.SensorDescriptor {
	return r.snapshot().WithStatuses(r.Overrides()).Sensors()
}
