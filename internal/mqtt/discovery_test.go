package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

func TestSanitizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Д-124", "D-124"},
		{"sensor 7", "sensor_7"},
		{"Цех/Щит", "Tsekh_Shchit"},
		{"___", "unknown"},
		{"a..b", "a_b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeID(tt.in))
		})
	}
}

func testSensors() []radiation.SensorDescriptor {
	return []radiation.SensorDescriptor{
		{ID: "Д-124", Name: "Датчик реактора", Location: "Цех А-1", Status: radiation.SensorActive},
		{ID: "Д-128", Status: radiation.SensorActive},
	}
}

func TestPublishDiscovery(t *testing.T) {
	t.Parallel()

	client := newMockClient()
	p := NewDiscoveryPublisher(client, &DiscoveryConfig{BaseTopic: "radmon", NodeID: "Станция 1", Version: "1.0.0"})
	require.NoError(t, p.PublishDiscovery(t.Context(), testSensors()))

	msgs := client.snapshot()
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		assert.True(t, m.retain, "discovery messages are retained")
	}
	assert.Equal(t, "homeassistant/sensor/Stantsiya_1/D-124_value/config", msgs[0].topic)
	assert.Equal(t, "homeassistant/sensor/Stantsiya_1/D-124_status/config", msgs[1].topic)

	var payload DiscoveryPayload
	require.NoError(t, json.Unmarshal([]byte(msgs[0].payload), &payload))
	assert.Equal(t, "radmon_Stantsiya_1_D-124_value", payload.UniqueID)
	assert.Equal(t, "radmon/readings/Д-124", payload.StateTopic)
	assert.Equal(t, "{{ value_json.value }}", payload.ValueTemplate)
	assert.Equal(t, "µSv/h", payload.UnitOfMeasurement)
	assert.Equal(t, "radmon/status", payload.AvailabilityTopic)
	assert.Equal(t, "Датчик реактора", payload.Device.Name)
	assert.Equal(t, "Цех А-1", payload.Device.SuggestedArea)

	require.NoError(t, json.Unmarshal([]byte(msgs[3].payload), &payload))
	assert.Equal(t, "Д-128", payload.Device.Name, "the id names an unnamed sensor")
	assert.Equal(t, "{{ value_json.status }}", payload.ValueTemplate)
}

func TestRemoveDiscovery(t *testing.T) {
	t.Parallel()

	client := newMockClient()
	p := NewDiscoveryPublisher(client, &DiscoveryConfig{BaseTopic: "radmon", NodeID: "node", DiscoveryPrefix: "ha"})
	require.NoError(t, p.RemoveDiscovery(t.Context(), testSensors()))

	msgs := client.snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, "ha/sensor/node/D-128_status/config", msgs[3].topic)
	assert.Empty(t, msgs[3].payload)
}

func TestPublishDiscoveryReportsFailures(t *testing.T) {
	t.Parallel()

	client := newMockClient()
	client.err = errors.NewStd("not authorized")
	p := NewDiscoveryPublisher(client, &DiscoveryConfig{BaseTopic: "radmon", NodeID: "node"})
	err := p.PublishDiscovery(t.Context(), testSensors())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
}
