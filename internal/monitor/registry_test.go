package monitor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

type fakePersister struct {
	mu      sync.Mutex
	err     error
	changes map[string]radiation.SensorStatus
}

func (p *fakePersister) SetSensorStatus(_ context.Context, id string, status radiation.SensorStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.changes == nil {
		p.changes = map[string]radiation.SensorStatus{}
	}
	p.changes[id] = status
	return p.err
}

func TestRegistrySetStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sensorID string
		status   radiation.SensorStatus
		category errors.ErrorCategory
	}{
		{"disable", "B", radiation.SensorDisabled, ""},
		{"enable", "A", radiation.SensorActive, ""},
		{"unknown sensor", "Z", radiation.SensorDisabled, errors.CategoryNotFound},
		{"invalid status", "A", radiation.SensorStatus("broken"), errors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			persist := &fakePersister{}
			reg := NewRegistry(testSnapshot("A", "B"), persist)
			err := reg.SetStatus(t.Context(), tt.sensorID, tt.status)

			if tt.category != "" {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, tt.category))
				assert.Empty(t, reg.Overrides())
				assert.Empty(t, persist.changes)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, reg.Overrides()[tt.sensorID])
			assert.Equal(t, tt.status, persist.changes[tt.sensorID])
		})
	}
}

func TestRegistryKeepsChangeWhenPersistFails(t *testing.T) {
	t.Parallel()

	persist := &fakePersister{err: errors.NewStd("read-only database")}
	reg := NewRegistry(testSnapshot("A", "B"), persist)

	err := reg.SetStatus(t.Context(), "A", radiation.SensorDisabled)
	require.Error(t, err)
	assert.Equal(t, radiation.SensorDisabled, reg.Overrides()["A"])
}

func TestRegistrySeedAndSensors(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testSnapshot("A", "B"), nil)
	reg.Seed(map[string]radiation.SensorStatus{"A": radiation.SensorDisabled})

	sensors := reg.Sensors()
	require.Len(t, sensors, 2)
	assert.Equal(t, radiation.SensorDisabled, sensors[0].Status)
	assert.Equal(t, radiation.SensorActive, sensors[1].Status)

	// callers get a copy
	reg.Overrides()["B"] = radiation.SensorDisabled
	assert.NotContains(t, reg.Overrides(), "B")
}
