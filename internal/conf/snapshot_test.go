package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/radiation"
)

func TestSnapshotFromDefaults(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(defaultSettings(t))

	assert.Equal(t, 5*time.Second, snap.Interval)
	assert.Equal(t, 15*time.Second, snap.StaleAfter, "stale-after defaults to three intervals")
	assert.Len(t, snap.ActiveSensors(), 4)

	d, ok := snap.Sensor("Д-135")
	require.True(t, ok)
	assert.Equal(t, "Участок В-2", d.Location)
	assert.Equal(t, time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC), d.CalibrationDate)
}

func TestSnapshotOverridesAndStatuses(t *testing.T) {
	t.Parallel()

	s := defaultSettings(t)
	s.Sensors[0].Thresholds = &radiation.Thresholds{Warning: 0.2, Danger: 0.4}
	s.Sensors[1].Status = string(radiation.SensorDisabled)
	snap := NewSnapshot(s)

	active := snap.ActiveSensors()
	require.Len(t, active, 3)
	assert.Equal(t, "Д-124", active[0].ID)
	assert.Equal(t, "Д-135", active[1].ID, "configuration order is kept")

	assert.Equal(t, radiation.Thresholds{Warning: 0.2, Danger: 0.4}, snap.ThresholdsFor(active[0]))
	assert.Equal(t, radiation.Thresholds{Warning: 1.0, Danger: 2.5}, snap.ThresholdsFor(active[1]))

	// mutating the settings afterwards does not leak into the snapshot
	s.Sensors[0].Thresholds.Warning = 9
	s.Thresholds.Warning = 9
	assert.InDelta(t, 0.2, snap.ThresholdsFor(active[0]).Warning, 1e-9)
	assert.InDelta(t, 1.0, snap.Thresholds.Warning, 1e-9)

	toggled := snap.WithStatuses(map[string]radiation.SensorStatus{
		"Д-128": radiation.SensorActive,
		"Д-142": radiation.SensorDisabled,
		"nope":  radiation.SensorDisabled,
	})
	ids := func(ds []radiation.SensorDescriptor) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.ID)
		}
		return out
	}
	assert.Equal(t, []string{"Д-124", "Д-128", "Д-135"}, ids(toggled.ActiveSensors()))
	assert.Equal(t, []string{"Д-124", "Д-135", "Д-142"}, ids(snap.ActiveSensors()), "original snapshot is unchanged")
}
