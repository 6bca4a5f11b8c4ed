// Package notification delivers alert messages to operators.
//
// Every delivery target implements Sink. Sinks are composed at startup by
// Build: each configured target is optionally wrapped by a rate limiter and a
// circuit breaker, then all of them are combined into a Fanout that succeeds
// when at least one target accepted the message.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/observability/metrics"
	"github.com/androsik2006/radmon/internal/privacy"
)

// Sink is a delivery target able to send a rendered message.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Send delivers the message once. It must respect ctx cancellation.
	Send(ctx context.Context, subject, body string) error
}

// ErrNoSinks is returned by a Fanout without targets.
var ErrNoSinks = errors.Newf("no notification sinks configured").
	Component("notification").
	Category(errors.CategoryNotification).
	Build()

// LogSink writes messages to the application log. It stands in for the SMS
// gateway, which the monitored site does not expose programmatically.
type LogSink struct {
	name      string
	recipient string
	log       logger.Logger
}

// NewLogSink returns a sink that logs messages addressed to recipient.
func NewLogSink(name, recipient string, log logger.Logger) *LogSink {
	if log == nil {
		log = GetLogger()
	}
	if name == "" {
		name = "log"
	}
	return &LogSink{name: name, recipient: recipient, log: log}
}

func (s *LogSink) Name() string { return s.name }

func (s *LogSink) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info("notification sent",
		logger.String("sink", s.name),
		logger.String("recipient", privacy.MaskPhone(s.recipient)),
		logger.String("subject", subject),
		logger.Int("body_length", len(body)))
	return nil
}

// Fanout sends each message to all of its sinks concurrently.
type Fanout struct {
	sinks   []Sink
	metrics *metrics.NotificationMetrics
	log     logger.Logger
}

// NewFanout combines sinks. m may be nil.
func NewFanout(m *metrics.NotificationMetrics, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, metrics: m, log: GetLogger()}
}

// Name implements Sink.
func (f *Fanout) Name() string { return "fanout" }

// Sinks returns the names of the combined sinks.
func (f *Fanout) Sinks() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return names
}

// Send delivers to every sink and succeeds when at least one sink succeeded.
// When all sinks fail the joined error is returned.
func (f *Fanout) Send(ctx context.Context, subject, body string) error {
	if len(f.sinks) == 0 {
		return ErrNoSinks
	}

	errs := make([]error, len(f.sinks))
	var wg sync.WaitGroup
	for i, s := range f.sinks {
		wg.Go(func() {
			errs[i] = f.sendOne(ctx, s, subject, body)
		})
	}
	wg.Wait()

	var failed []error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", f.sinks[i].Name(), err))
		}
	}
	if len(failed) < len(f.sinks) {
		return nil
	}
	return errors.New(errors.Join(failed...)).
		Component("notification").
		Category(errors.CategoryNotification).
		Context("sinks", len(f.sinks)).
		Build()
}

func (f *Fanout) sendOne(ctx context.Context, s Sink, subject, body string) error {
	start := time.Now()
	if f.metrics != nil {
		f.metrics.DeliveriesInFlight.Inc()
		defer f.metrics.DeliveriesInFlight.Dec()
	}

	err := s.Send(ctx, subject, body)

	if f.metrics != nil {
		f.metrics.RecordDelivery(s.Name(), deliveryResult(err), time.Since(start))
	}
	if err != nil {
		f.log.Warn("notification sink failed",
			logger.String("sink", s.Name()),
			logger.Error(err))
	}
	return err
}

func deliveryResult(err error) string {
	switch {
	case err == nil:
		return metrics.DeliveryResultSuccess
	case errors.IsCategory(err, errors.CategoryLimit):
		return metrics.DeliveryResultRejected
	default:
		return metrics.DeliveryResultError
	}
}
