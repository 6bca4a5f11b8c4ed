// Package alerting turns classified readings into alert events and hands
// them to the notification sinks.
package alerting

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/history"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/notification"
	"github.com/androsik2006/radmon/internal/observability/metrics"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Defaults.
const (
	DefaultMaxInFlight     = 8
	DefaultDeliveryTimeout = 10 * time.Second
	DefaultPersistTimeout  = 2 * time.Second
)

// ErrNotificationsDisabled is returned by SendTest without a sink.
var ErrNotificationsDisabled = errors.Newf("notifications are disabled").
	Component("alerting").
	Category(errors.CategoryNotification).
	Build()

// Options configures a Dispatcher. Zero values select the defaults.
type Options struct {
	MaxInFlight     int
	DeliveryTimeout time.Duration
	PersistTimeout  time.Duration

	// Locate returns the location shown in messages for a sensor.
	Locate func(sensorID string) string
	// Contacts returns the emergency contacts listed in critical messages.
	Contacts func() []conf.EmergencyContact

	NotificationMetrics *metrics.NotificationMetrics
	MonitorMetrics      *metrics.MonitorMetrics
	Log                 logger.Logger
}

// route is the part of the dispatcher a configuration reload replaces.
type route struct {
	sink            notification.Sink
	deliveryTimeout time.Duration
	persistTimeout  time.Duration
}

// Dispatcher evaluates readings and delivers one notification per alert.
type Dispatcher struct {
	gateway datastore.Gateway
	history *history.Store
	route   atomic.Pointer[route]
	opts    Options
	sem     *semaphore.Weighted
	log     logger.Logger

	// deliveries run under ctx so Close can abort them.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex // guards closed and wg.Add
	closed bool
}

// New creates a Dispatcher. sink may be nil, in which case alerts are
// recorded and stay pending.
func New(gateway datastore.Gateway, store *history.Store, sink notification.Sink, opts Options) *Dispatcher {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	log := opts.Log
	if log == nil {
		log = GetLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		gateway: datastore.Bounded(gateway),
		history: store,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.MaxInFlight)),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	d.route.Store(&route{sink: sink, deliveryTimeout: opts.DeliveryTimeout, persistTimeout: opts.PersistTimeout})
	return d
}

// Reconfigure replaces the sink and the timeouts used by deliveries that
// start afterwards. Deliveries already running finish on the old sink. Zero
// timeouts keep the current values; MaxInFlight is fixed at construction.
func (d *Dispatcher) Reconfigure(sink notification.Sink, deliveryTimeout, persistTimeout time.Duration) {
	cur := d.route.Load()
	next := &route{sink: sink, deliveryTimeout: cur.deliveryTimeout, persistTimeout: cur.persistTimeout}
	if deliveryTimeout > 0 {
		next.deliveryTimeout = deliveryTimeout
	}
	if persistTimeout > 0 {
		next.persistTimeout = persistTimeout
	}
	d.route.Store(next)
	d.log.Info("notification routing reconfigured",
		logger.Bool("sink", sink != nil),
		logger.Duration("delivery_timeout", next.deliveryTimeout))
}

// Sink returns the sink new deliveries are handed to, nil when none is set.
func (d *Dispatcher) Sink() notification.Sink {
	return d.route.Load().sink
}

// Evaluate raises an alert for a WARNING or DANGER reading. The alert is
// persisted, appended to the history log and then handed to one
// asynchronous delivery attempt. NORMAL readings return nil, false.
func (d *Dispatcher) Evaluate(ctx context.Context, r radiation.Reading) (*radiation.AlertEvent, bool) {
	ev, ok := radiation.NewAlertEvent(r)
	if !ok {
		return nil, false
	}

	d.persist(ctx, ev)
	d.history.AppendAlert(ev)

	fields := []logger.Field{
		logger.String("alert_id", ev.ID),
		logger.String("sensor_id", ev.SensorID),
		logger.String("type", string(ev.Type)),
		logger.Float64("value", ev.ActualValue),
		logger.Float64("threshold", ev.ThresholdValue),
	}
	if ev.Type == radiation.AlertCritical {
		d.log.Error("critical radiation level", fields...)
	} else {
		d.log.Warn("radiation level above warning threshold", fields...)
	}

	if m := d.opts.NotificationMetrics; m != nil {
		m.RecordAlert(string(ev.Type))
	}
	d.updatePending()
	d.schedule(ev)
	return &ev, true
}

func (d *Dispatcher) persist(ctx context.Context, ev radiation.AlertEvent) {
	pctx, cancel := context.WithTimeout(ctx, d.route.Load().persistTimeout)
	defer cancel()
	if err := d.gateway.RecordAlert(pctx, ev); err != nil {
		d.log.Warn("failed to persist alert",
			logger.String("alert_id", ev.ID),
			logger.String("sensor_id", ev.SensorID),
			logger.Error(err))
		if m := d.opts.MonitorMetrics; m != nil {
			m.RecordPersistenceFailure("record_alert")
		}
	}
}

func (d *Dispatcher) schedule(ev radiation.AlertEvent) {
	rt := d.route.Load()
	if rt.sink == nil {
		d.log.Debug("no notification sink, alert stays pending", logger.String("alert_id", ev.ID))
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("dispatcher closed, alert not delivered", logger.String("alert_id", ev.ID))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("alert delivery panicked, alert stays pending",
					logger.String("alert_id", ev.ID),
					logger.Any("panic", r),
					logger.String("stack", string(debug.Stack())))
			}
		}()
		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			d.log.Warn("alert delivery abandoned",
				logger.String("alert_id", ev.ID),
				logger.Error(err))
			return
		}
		defer d.sem.Release(1)
		d.deliver(rt, ev)
	}()
}

func (d *Dispatcher) deliver(rt *route, ev radiation.AlertEvent) {
	details := notification.AlertDetails{Event: ev}
	if d.opts.Locate != nil {
		details.Location = d.opts.Locate(ev.SensorID)
	}
	if ev.Type == radiation.AlertCritical && d.opts.Contacts != nil {
		details.Contacts = d.opts.Contacts()
	}
	msg, err := notification.RenderAlert(details)
	if err != nil {
		d.log.Error("failed to render alert", logger.String("alert_id", ev.ID), logger.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, rt.deliveryTimeout)
	err = rt.sink.Send(ctx, msg.Subject, msg.Body)
	cancel()
	if err != nil {
		d.log.Warn("alert delivery failed, alert stays pending",
			logger.String("alert_id", ev.ID),
			logger.String("sensor_id", ev.SensorID),
			logger.Error(err))
		return
	}

	d.history.MarkNotified(ev.ID)
	d.updatePending()

	pctx, pcancel := context.WithTimeout(d.ctx, rt.persistTimeout)
	defer pcancel()
	if err := d.gateway.MarkNotified(pctx, ev.ID); err != nil {
		d.log.Warn("failed to persist delivery state",
			logger.String("alert_id", ev.ID),
			logger.Error(err))
		if m := d.opts.MonitorMetrics; m != nil {
			m.RecordPersistenceFailure("mark_notified")
		}
	}
	d.log.Info("alert delivered",
		logger.String("alert_id", ev.ID),
		logger.String("sensor_id", ev.SensorID),
		logger.String("type", string(ev.Type)))
}

func (d *Dispatcher) updatePending() {
	if m := d.opts.NotificationMetrics; m != nil {
		m.SetPendingAlerts(len(d.history.PendingAlerts()))
	}
}

// SendTest delivers the operator test notification synchronously.
func (d *Dispatcher) SendTest(ctx context.Context) error {
	rt := d.route.Load()
	if rt.sink == nil {
		return ErrNotificationsDisabled
	}
	msg := notification.TestMessage()
	ctx, cancel := context.WithTimeout(ctx, rt.deliveryTimeout)
	defer cancel()
	if err := rt.sink.Send(ctx, msg.Subject, msg.Body); err != nil {
		return err
	}
	d.log.Info("test notification sent")
	return nil
}

// ResetAlarms records an operator acknowledgment. Alert state is unchanged.
func (d *Dispatcher) ResetAlarms(operator string) {
	d.log.Info("Аварийные сигналы сброшены оператором",
		logger.String("operator", operator),
		logger.Int("pending_alerts", len(d.history.PendingAlerts())))
}

// Close stops accepting deliveries and waits for in-flight ones. When ctx
// ends first the remaining deliveries are cancelled and ctx.Err is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
