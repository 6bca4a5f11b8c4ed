// Package engine assembles the monitoring components from the settings and
// drives their lifecycle for the CLI commands.
package engine

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/androsik2006/radmon/internal/alerting"
	"github.com/androsik2006/radmon/internal/api"
	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/backup/targets"
	"github.com/androsik2006/radmon/internal/buildinfo"
	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/events"
	"github.com/androsik2006/radmon/internal/history"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/monitor"
	"github.com/androsik2006/radmon/internal/mqtt"
	"github.com/androsik2006/radmon/internal/notification"
	"github.com/androsik2006/radmon/internal/observability"
	"github.com/androsik2006/radmon/internal/radiation"
	"github.com/androsik2006/radmon/internal/source"
)

// Engine lifecycle timeouts.
const (
	StartupTimeout  = 10 * time.Second
	ShutdownTimeout = 15 * time.Second

	mqttSubscriberBuffer = 16
)

// GetLogger returns the engine package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("engine")
}

// Engine owns the long-lived components of one radmon process.
type Engine struct {
	Manager    *conf.Manager
	Info       *buildinfo.Context
	Metrics    *observability.Metrics
	Store      datastore.Interface
	History    *history.Store
	Registry   *monitor.Registry
	Dispatcher *alerting.Dispatcher
	Scheduler  *monitor.Scheduler
	Bus        *events.Bus
	Backups    *backup.Manager

	source atomic.Pointer[source.Simulator]
	seed   uint64
	log    logger.Logger

	closeOnce sync.Once
}

// New opens the datastore, registers the configured sensors, restores
// operator status overrides and wires every component. Close releases them.
func New(ctx context.Context, manager *conf.Manager, info *buildinfo.Context) (*Engine, error) {
	settings := manager.Settings()
	e := &Engine{
		Manager: manager,
		Info:    info,
		seed:    settings.Monitor.SimulatorSeed,
		log:     GetLogger(),
	}

	if settings.Monitor.Source != "simulator" {
		return nil, errors.Newf("unsupported reading source %q", settings.Monitor.Source).
			Component("engine").
			Category(errors.CategoryConfiguration).
			Build()
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).Component("engine").Category(errors.CategorySystem).Build()
	}
	e.Metrics = m

	store, err := datastore.New(&settings.Database)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	e.Store = store

	if err := e.syncSensors(ctx, settings); err != nil {
		_ = store.Close()
		return nil, err
	}

	snap := conf.NewSnapshot(settings)
	e.History = history.New(history.Config{
		Capacity:      settings.History.Capacity,
		AlertCapacity: settings.History.AlertCapacity,
		StaleAfter:    snap.StaleAfter,
	})
	e.Registry = monitor.NewRegistry(manager.Snapshot, store)
	e.Registry.Seed(e.restoreOverrides(ctx, snap))
	e.resetSource(settings)

	sink, err := e.buildSink(settings)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	e.Dispatcher = alerting.New(store, e.History, sink, alerting.Options{
		MaxInFlight:         settings.Notification.MaxInFlight,
		DeliveryTimeout:     settings.Notification.Timeout.Duration(),
		PersistTimeout:      settings.Monitor.PersistTimeout.Duration(),
		Locate:              e.locate,
		Contacts:            e.contacts,
		NotificationMetrics: m.Notification,
		MonitorMetrics:      m.Monitor,
	})

	e.Bus = events.NewBus(m.Monitor.RecordEventDropped)
	e.Scheduler, err = monitor.NewScheduler(monitor.Options{
		Snapshot: manager.Snapshot,
		Source:   radiation.ReadingSourceFunc(e.read),
		History:  e.History,
		Gateway:  store,
		Alerts:   e.Dispatcher,
		Bus:      e.Bus,
		Registry: e.Registry,
		Metrics:  m.Monitor,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	backupTargets, err := targets.FromSettings(settings.Backup.Targets)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	e.Backups, err = backup.NewManager(backup.ConfigFromSettings(settings), store, backupTargets...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	manager.OnChange(e.applySettings)
	return e, nil
}

func (e *Engine) syncSensors(ctx context.Context, settings *conf.Settings) error {
	ctx, cancel := context.WithTimeout(ctx, StartupTimeout)
	defer cancel()
	return e.Store.SyncSensors(ctx, conf.SensorDescriptors(settings.Sensors))
}

// restoreOverrides returns the stored statuses that differ from the
// configured ones. A read failure is logged and yields no overrides.
func (e *Engine) restoreOverrides(ctx context.Context, snap *conf.Snapshot) map[string]radiation.SensorStatus {
	ctx, cancel := context.WithTimeout(ctx, StartupTimeout)
	defer cancel()

	stored, err := e.Store.GetSensors(ctx)
	if err != nil {
		e.log.Warn("could not restore sensor statuses", logger.Error(err))
		return nil
	}
	overrides := make(map[string]radiation.SensorStatus)
	for _, s := range stored {
		d, ok := snap.Sensor(s.SensorID)
		if !ok {
			continue
		}
		if status := radiation.SensorStatus(s.Status); status.Valid() && status != d.Status {
			overrides[s.SensorID] = status
		}
	}
	if len(overrides) > 0 {
		e.log.Info("restored sensor status overrides",
			logger.Any("sensors", slices.Sorted(maps.Keys(overrides))))
	}
	return overrides
}

// resetSource rebuilds the simulator for the configured sensor ids.
func (e *Engine) resetSource(settings *conf.Settings) {
	ids := make([]string, 0, len(settings.Sensors))
	for _, s := range settings.Sensors {
		ids = append(ids, s.ID)
	}
	e.source.Store(source.NewSimulator(ids, e.seed))
}

func (e *Engine) read(ctx context.Context, sensorID string) (float64, error) {
	return e.source.Load().Read(ctx, sensorID)
}

// Simulator returns the active reading source.
func (e *Engine) Simulator() *source.Simulator {
	return e.source.Load()
}

// applySettings runs after a successful configuration reload. Cycle
// parameters are picked up through the snapshot. Notification routing is
// rebuilt, and a changed sensor set updates the source and the datastore.
func (e *Engine) applySettings(settings *conf.Settings) {
	e.applyNotification(settings)

	known := e.source.Load().Sensors()
	changed := len(known) != len(settings.Sensors)
	for i, s := range settings.Sensors {
		if changed || known[i] != s.ID {
			changed = true
			break
		}
	}
	if !changed {
		return
	}
	e.resetSource(settings)
	if err := e.syncSensors(context.Background(), settings); err != nil {
		e.log.Warn("failed to register reloaded sensors", logger.Error(err))
	}
	e.log.Info("sensor set changed", logger.Int("sensors", len(settings.Sensors)))
}

// buildSink returns the notification fan-out for settings, nil when
// notifications are disabled.
func (e *Engine) buildSink(settings *conf.Settings) (notification.Sink, error) {
	fanout, err := notification.Build(&settings.Notification, notification.Options{Metrics: e.Metrics.Notification})
	if err != nil || fanout == nil {
		return nil, err
	}
	return fanout, nil
}

// applyNotification swaps the dispatcher onto sinks built from settings. A
// build failure keeps the current sinks.
func (e *Engine) applyNotification(settings *conf.Settings) {
	sink, err := e.buildSink(settings)
	if err != nil {
		e.log.Warn("keeping previous notification sinks", logger.Error(err))
		return
	}
	e.Dispatcher.Reconfigure(sink,
		settings.Notification.Timeout.Duration(),
		settings.Monitor.PersistTimeout.Duration())
}

func (e *Engine) locate(sensorID string) string {
	if d, ok := e.Manager.Snapshot().Sensor(sensorID); ok {
		return d.Location
	}
	return ""
}

func (e *Engine) contacts() []conf.EmergencyContact {
	return e.Manager.Settings().Notification.EmergencyContacts
}

// NewAPIServer creates the HTTP server bound to the engine components.
func (e *Engine) NewAPIServer() (*api.Server, error) {
	return api.New(e.Manager.Settings(),
		api.WithBuildInfo(e.Info),
		api.WithSnapshot(e.Manager.Snapshot),
		api.WithCollector(e.Scheduler),
		api.WithSensorRegistry(e.Registry),
		api.WithHistory(e.History),
		api.WithStore(e.Store),
		api.WithAlerter(e.Dispatcher),
		api.WithBackups(e.Backups),
		api.WithReloader(e.Manager),
		api.WithMetricsHandler(e.Metrics.Handler()),
	)
}

// Run starts periodic collection, the HTTP API and the MQTT publisher when
// enabled, and blocks until ctx is cancelled. Components are stopped in
// reverse order; an in-flight cycle finishes first.
func (e *Engine) Run(ctx context.Context, watchConfig bool) error {
	settings := e.Manager.Settings()
	if watchConfig {
		e.Manager.Watch()
	}

	var server *api.Server
	if settings.API.Enabled {
		var err error
		if server, err = e.NewAPIServer(); err != nil {
			return err
		}
		if err := server.Start(); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	pubCtx, cancelPub := context.WithCancel(context.WithoutCancel(ctx))
	client := e.startMQTT(pubCtx, settings, &wg)

	if err := e.Scheduler.Start(ctx); err != nil {
		cancelPub()
		wg.Wait()
		if server != nil {
			_ = server.Shutdown(context.WithoutCancel(ctx))
		}
		return err
	}
	e.log.Info("radmon running",
		logger.String("version", e.Info.Version()),
		logger.Int("sensors", len(settings.Sensors)),
		logger.Bool("api", server != nil),
		logger.Bool("mqtt", client != nil))

	<-ctx.Done()
	e.log.Info("shutdown requested")

	e.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			e.log.Warn("HTTP server shutdown failed", logger.Error(err))
		}
	}

	cancelPub()
	wg.Wait()
	if client != nil {
		client.Disconnect()
	}
	return nil
}

// startMQTT connects the cycle publisher. Broker failures are logged and
// the publisher keeps retrying through the client's reconnect logic.
func (e *Engine) startMQTT(ctx context.Context, settings *conf.Settings, wg *sync.WaitGroup) mqtt.Client {
	if !settings.MQTT.Enabled {
		return nil
	}
	client, err := mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT), e.Metrics.MQTT)
	if err != nil {
		e.log.Error("MQTT disabled: invalid configuration", logger.Error(err))
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, StartupTimeout)
	if err := client.Connect(connectCtx); err != nil {
		e.log.Warn("MQTT broker unavailable, publishing will retry", logger.Error(err))
	}
	cancel()

	if settings.MQTT.Discovery {
		discovery := mqtt.NewDiscoveryPublisher(client, &mqtt.DiscoveryConfig{
			DiscoveryPrefix: settings.MQTT.DiscoveryPrefix,
			BaseTopic:       settings.MQTT.Topic,
			NodeID:          settings.Main.Name,
			Version:         e.Info.Version(),
		})
		dctx, dcancel := context.WithTimeout(ctx, StartupTimeout)
		if err := discovery.PublishDiscovery(dctx, e.Registry.Sensors()); err != nil {
			e.log.Warn("failed to publish discovery", logger.Error(err))
		}
		dcancel()
	}

	sub := e.Bus.Subscribe("mqtt", mqttSubscriberBuffer)
	publisher := mqtt.NewCyclePublisher(client, settings.MQTT.Topic)
	wg.Go(func() {
		defer sub.Close()
		publisher.Run(ctx, sub)
	})
	return client
}

// Close waits for pending alert deliveries within ctx and closes the
// datastore. It is safe to call more than once.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		if cerr := e.Dispatcher.Close(ctx); cerr != nil {
			e.log.Warn("pending alert deliveries abandoned", logger.Error(cerr))
		}
		e.Bus.Close()
		err = e.Store.Close()
	})
	return err
}
