package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/events"
	"github.com/androsik2006/radmon/internal/radiation"
)

var testThresholds = radiation.Thresholds{Warning: 1.0, Danger: 2.5}

func testCycle(t *testing.T) events.CycleCompleted {
	t.Helper()
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	normal, err := radiation.NewReading("Д-124", 0.15, ts, testThresholds, 3)
	require.NoError(t, err)
	danger, err := radiation.NewReading("Д-142", 2.7, ts, testThresholds, 3)
	require.NoError(t, err)
	alert, ok := radiation.NewAlertEvent(danger)
	require.True(t, ok)

	return events.CycleCompleted{
		ID:         "cycle-3",
		Seq:        3,
		StartedAt:  ts,
		FinishedAt: ts.Add(120 * time.Millisecond),
		Readings:   []radiation.Reading{normal, danger},
		Alerts:     []radiation.AlertEvent{alert},
		Failures:   []events.SensorFailure{{SensorID: "Д-128", Error: "timeout"}},
	}
}

func TestTopics(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "radmon/readings/Д-124", ReadingTopic("radmon", "Д-124"))
	assert.Equal(t, "plant/radmon/alerts", AlertTopic("plant/radmon/"))
	assert.Equal(t, "radmon/cycles", CycleTopic("radmon"))
	assert.Equal(t, "radmon/status", StatusTopic("radmon"))
}

func TestPublishCycle(t *testing.T) {
	t.Parallel()

	client := newMockClient()
	p := NewCyclePublisher(client, "radmon")
	require.NoError(t, p.PublishCycle(t.Context(), testCycle(t)))

	msgs := client.snapshot()
	require.Len(t, msgs, 4)
	assert.Equal(t, "radmon/readings/Д-124", msgs[0].topic)
	assert.Equal(t, "radmon/readings/Д-142", msgs[1].topic)
	assert.Equal(t, "radmon/alerts", msgs[2].topic)
	assert.Equal(t, "radmon/cycles", msgs[3].topic)

	var reading ReadingDTO
	require.NoError(t, json.Unmarshal([]byte(msgs[1].payload), &reading))
	assert.Equal(t, ReadingDTO{
		SensorID:  "Д-142",
		Value:     2.7,
		Unit:      "µSv/h",
		Status:    "DANGER",
		Warning:   1.0,
		Danger:    2.5,
		Timestamp: "2024-05-06T07:08:09Z",
		Cycle:     3,
	}, reading)

	var alert AlertDTO
	require.NoError(t, json.Unmarshal([]byte(msgs[2].payload), &alert))
	assert.Equal(t, "CRITICAL", alert.Type)
	assert.InDelta(t, 2.5, alert.Threshold, 1e-9)

	var cycle CycleDTO
	require.NoError(t, json.Unmarshal([]byte(msgs[3].payload), &cycle))
	assert.Equal(t, int64(120), cycle.DurationMS)
	assert.Equal(t, []string{"Д-128"}, cycle.Failed)
}

func TestPublishCycleAttemptsEveryMessage(t *testing.T) {
	t.Parallel()

	client := newMockClient()
	client.err = errors.NewStd("broker rejected")
	client.failTopic = "radmon/readings/Д-124"

	p := NewCyclePublisher(client, "radmon")
	err := p.PublishCycle(t.Context(), testCycle(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker rejected")
	assert.Len(t, client.snapshot(), 3, "the other messages are still published")
}

func TestCyclePublisherRun(t *testing.T) {
	t.Parallel()

	bus := events.NewBus(nil)
	sub := bus.Subscribe("mqtt", 4)
	client := newMockClient()
	p := NewCyclePublisher(client, "radmon")

	done := make(chan struct{})
	go func() {
		p.Run(t.Context(), sub)
		close(done)
	}()

	bus.Publish(testCycle(t))
	assert.Eventually(t, func() bool { return len(client.snapshot()) == 4 }, time.Second, 5*time.Millisecond)

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the bus closed")
	}
}

func TestCyclePublisherStopsOnContext(t *testing.T) {
	t.Parallel()

	bus := events.NewBus(nil)
	defer bus.Close()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		NewCyclePublisher(newMockClient(), "radmon").Run(ctx, bus.Subscribe("mqtt", 1))
		close(done)
	}()
	cancel()
	<-done
}
