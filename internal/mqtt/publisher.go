package mqtt

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/androsik2006/radmon/internal/events"
	"github.com/androsik2006/radmon/internal/logger"
)

// DefaultPublishTimeout bounds the publishing of one cycle.
const DefaultPublishTimeout = 15 * time.Second

// ReadingTopic returns the topic readings of sensorID are published to.
func ReadingTopic(base, sensorID string) string {
	return strings.TrimSuffix(base, "/") + "/readings/" + sensorID
}

// AlertTopic returns the topic alerts are published to.
func AlertTopic(base string) string {
	return strings.TrimSuffix(base, "/") + "/alerts"
}

// CycleTopic returns the topic cycle summaries are published to.
func CycleTopic(base string) string {
	return strings.TrimSuffix(base, "/") + "/cycles"
}

// CyclePublisher forwards cycle events from the bus to the broker.
type CyclePublisher struct {
	client  Client
	topic   string
	timeout time.Duration
	log     logger.Logger
}

// NewCyclePublisher creates a publisher for the base topic.
func NewCyclePublisher(client Client, baseTopic string) *CyclePublisher {
	return &CyclePublisher{
		client:  client,
		topic:   baseTopic,
		timeout: DefaultPublishTimeout,
		log:     GetLogger(),
	}
}

// Run publishes every event received on sub until ctx is done or the
// subscription is closed.
func (p *CyclePublisher) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			pctx, cancel := context.WithTimeout(ctx, p.timeout)
			if err := p.PublishCycle(pctx, ev); err != nil {
				p.log.Warn("failed to publish cycle",
					logger.Uint64("cycle", ev.Seq),
					logger.Error(err))
			}
			cancel()
		}
	}
}

// PublishCycle publishes each reading, each alert and the cycle summary.
// Every message is attempted; the failures are joined.
func (p *CyclePublisher) PublishCycle(ctx context.Context, ev events.CycleCompleted) error {
	var errs []error
	for _, r := range ev.Readings {
		errs = append(errs, p.publishJSON(ctx, ReadingTopic(p.topic, r.SensorID), NewReadingDTO(r)))
	}
	for _, a := range ev.Alerts {
		errs = append(errs, p.publishJSON(ctx, AlertTopic(p.topic), NewAlertDTO(a)))
	}
	errs = append(errs, p.publishJSON(ctx, CycleTopic(p.topic), NewCycleDTO(ev)))
	return stderrors.Join(errs...)
}

func (p *CyclePublisher) publishJSON(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, topic, string(payload))
}
