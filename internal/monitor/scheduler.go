// Package monitor runs the periodic collection loop.
//
// A cycle reads every active sensor, classifies the values, records them in
// history and the datastore, evaluates alerts and publishes a CycleCompleted
// event. Cycles never overlap: the loop and on-demand collection share the
// cycle lock. Reads and persistence calls are bounded by their timeouts even
// when the collaborator ignores its context.
package monitor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/events"
	"github.com/androsik2006/radmon/internal/history"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/observability/metrics"
	"github.com/androsik2006/radmon/internal/radiation"
)

// State is the lifecycle state of the scheduler.
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "STOPPED"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrAlreadyRunning is returned by Start on a running scheduler.
var ErrAlreadyRunning = errors.Newf("scheduler is already running").
	Component("monitor").
	Category(errors.CategoryState).
	Build()

// Evaluator raises alerts for classified readings.
type Evaluator interface {
	Evaluate(ctx context.Context, r radiation.Reading) (*radiation.AlertEvent, bool)
}

// SnapshotFunc returns the configuration applied to the next cycle.
type SnapshotFunc func() *conf.Snapshot

// Options wires the scheduler to its collaborators. Snapshot, Source and
// History are required.
type Options struct {
	Snapshot SnapshotFunc
	Source   radiation.ReadingSource
	History  *history.Store
	Gateway  datastore.Gateway
	Alerts   Evaluator
	Bus      *events.Bus
	Registry *Registry
	Metrics  *metrics.MonitorMetrics
	Log      logger.Logger
}

// Scheduler drives collection cycles.
type Scheduler struct {
	opts Options
	log  logger.Logger

	mu     sync.Mutex // guards state and cancel
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cycleLock chan struct{} // one token, held for the length of a cycle
	group     singleflight.Group
	seq     atomic.Uint64
	last    atomic.Pointer[events.CycleCompleted]
}

// NewScheduler validates opts and returns a stopped scheduler.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Snapshot == nil || opts.Source == nil || opts.History == nil {
		return nil, errors.Newf("scheduler requires a snapshot, a source and a history store").
			Component("monitor").
			Category(errors.CategoryConfiguration).
			Build()
	}
	log := opts.Log
	if log == nil {
		log = GetLogger()
	}
	opts.Gateway = datastore.Bounded(opts.Gateway)
	return &Scheduler{opts: opts, log: log, cycleLock: make(chan struct{}, 1)}, nil
}

// Start begins periodic collection. The first cycle runs immediately.
// Cancelling ctx stops the loop like Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning
	s.setRunningMetric(true)

	s.wg.Add(1)
	go s.loop(loopCtx)
	s.log.Info("collection scheduler started",
		logger.Duration("interval", s.opts.Snapshot().Interval))
	return nil
}

// Stop ends periodic collection. An in-flight cycle finishes first; no
// further cycle is scheduled. Stop returns after the loop goroutine exited
// and is a no-op on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("collection scheduler stopped")
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastCycle returns the most recent completed cycle.
func (s *Scheduler) LastCycle() (events.CycleCompleted, bool) {
	if c := s.last.Load(); c != nil {
		return *c, true
	}
	return events.CycleCompleted{}, false
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.state = StateStopped
		s.cancel = nil
		s.mu.Unlock()
		s.setRunningMetric(false)
	}()

	// Cycles outlive a stop request so the in-flight one can finish.
	cycleCtx := context.WithoutCancel(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// Both cases may be ready after an overrun; a stop wins.
		if ctx.Err() != nil {
			return
		}

		started := time.Now()
		_, err := s.collect(cycleCtx)
		interval := s.opts.Snapshot().Interval

		wait := interval - time.Since(started)
		if err != nil {
			// A failed cycle waits one full period before the next attempt.
			wait = interval
		}
		timer.Reset(max(wait, 0))
	}
}

// CollectNow runs one cycle on demand and returns its summary. Concurrent
// callers share a single cycle; the cycle never overlaps a periodic one.
func (s *Scheduler) CollectNow(ctx context.Context) (events.CycleCompleted, error) {
	ch := s.group.DoChan("collect", func() (any, error) {
		return s.collect(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return events.CycleCompleted{}, res.Err
		}
		return res.Val.(events.CycleCompleted), nil
	case <-ctx.Done():
		return events.CycleCompleted{}, ctx.Err()
	}
}

// collect runs one cycle under the cycle lock and converts a panic into an error.
func (s *Scheduler) collect(ctx context.Context) (ev events.CycleCompleted, err error) {
	s.cycleLock <- struct{}{}
	defer func() { <-s.cycleLock }()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("collection cycle panicked: %v", r).
				Component("monitor").
				Category(errors.CategorySystem).
				Priority(errors.PriorityHigh).
				Build()
			s.log.Error("collection cycle panicked",
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
		}
		if err != nil {
			s.recordCycle(metrics.CycleResultError, time.Since(started))
		}
	}()

	return s.runCycle(ctx, started), nil
}

type readResult struct {
	sensor  radiation.SensorDescriptor
	reading radiation.Reading
	err     error
}

func (s *Scheduler) runCycle(ctx context.Context, started time.Time) events.CycleCompleted {
	snap := s.opts.Snapshot()
	if s.opts.Registry != nil {
		snap = snap.WithStatuses(s.opts.Registry.Overrides())
	}
	s.opts.History.SetStaleAfter(snap.StaleAfter)

	seq := s.seq.Add(1)
	s.opts.History.MarkCycle(seq, started)

	results := s.readAll(ctx, snap, seq)

	ev := events.CycleCompleted{
		ID:        uuid.NewString(),
		Seq:       seq,
		StartedAt: started,
	}
	for _, res := range results {
		if res.err != nil {
			ev.Failures = append(ev.Failures, events.SensorFailure{SensorID: res.sensor.ID, Error: res.err.Error()})
			s.log.Warn("sensor read failed",
				logger.String("sensor_id", res.sensor.ID),
				logger.Uint64("cycle", seq),
				logger.Error(res.err))
			if s.opts.Metrics != nil {
				s.opts.Metrics.RecordReadFailure(res.sensor.ID)
			}
			continue
		}

		r := res.reading
		s.opts.History.Append(r.SensorID, r)
		s.persistReading(ctx, snap, r)
		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordReading(r.SensorID, r.Status.String(), r.Value)
		}
		ev.Readings = append(ev.Readings, r)

		if s.opts.Alerts != nil {
			if alert, ok := s.opts.Alerts.Evaluate(ctx, r); ok {
				ev.Alerts = append(ev.Alerts, *alert)
			}
		}
	}
	ev.FinishedAt = time.Now()

	s.last.Store(&ev)
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}

	result := metrics.CycleResultOK
	if len(ev.Failures) > 0 {
		result = metrics.CycleResultPartial
	}
	s.recordCycle(result, ev.Duration())
	s.log.Debug("collection cycle completed",
		logger.Uint64("cycle", seq),
		logger.Int("readings", len(ev.Readings)),
		logger.Int("alerts", len(ev.Alerts)),
		logger.Int("failures", len(ev.Failures)),
		logger.Duration("duration", ev.Duration()))
	return ev
}

// readAll reads every active sensor with bounded concurrency. Results keep
// the sensor order of the snapshot.
func (s *Scheduler) readAll(ctx context.Context, snap *conf.Snapshot, seq uint64) []readResult {
	sensors := snap.ActiveSensors()
	results := make([]readResult, len(sensors))

	var g errgroup.Group
	g.SetLimit(snap.ReadConcurrency)
	for i, d := range sensors {
		g.Go(func() error {
			results[i] = s.readOne(ctx, snap, d, seq)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) readOne(ctx context.Context, snap *conf.Snapshot, d radiation.SensorDescriptor, seq uint64) (res readResult) {
	res.sensor = d
	defer func() {
		if r := recover(); r != nil {
			res.err = sensorReadError(d.ID, fmt.Errorf("reading source panicked: %v", r))
		}
	}()

	rctx := ctx
	if snap.ReadTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, snap.ReadTimeout)
		defer cancel()
	}

	value, err := s.readSource(rctx, d.ID)
	if err != nil {
		res.err = sensorReadError(d.ID, err)
		return res
	}

	r, err := radiation.NewReading(d.ID, value, time.Now(), snap.ThresholdsFor(d), seq)
	if err != nil {
		res.err = sensorReadError(d.ID, err)
		return res
	}
	res.reading = r
	return res
}

// readSource returns when the source answers or ctx ends, whichever comes
// first. A source stuck past its deadline is left behind and its late
// answer is discarded.
func (s *Scheduler) readSource(ctx context.Context, sensorID string) (float64, error) {
	type answer struct {
		value float64
		err   error
	}
	ch := make(chan answer, 1)
	go func() {
		var a answer
		defer func() {
			if r := recover(); r != nil {
				a = answer{err: fmt.Errorf("reading source panicked: %v", r)}
			}
			ch <- a
		}()
		a.value, a.err = s.opts.Source.Read(ctx, sensorID)
	}()

	select {
	case a := <-ch:
		if a.err == nil && ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return a.value, a.err
	case <-ctx.Done():
		s.log.Warn("sensor read abandoned",
			logger.String("sensor_id", sensorID),
			logger.Error(ctx.Err()))
		return 0, ctx.Err()
	}
}

func sensorReadError(sensorID string, err error) error {
	if errors.IsCategory(err, errors.CategorySensorRead) {
		return err
	}
	return errors.New(err).
		Component("monitor").
		Category(errors.CategorySensorRead).
		Context("sensor_id", sensorID).
		Build()
}

func (s *Scheduler) persistReading(ctx context.Context, snap *conf.Snapshot, r radiation.Reading) {
	if s.opts.Gateway == nil {
		return
	}
	pctx := ctx
	if snap.PersistTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, snap.PersistTimeout)
		defer cancel()
	}
	if err := s.opts.Gateway.RecordReading(pctx, r); err != nil {
		s.log.Warn("failed to persist reading",
			logger.String("sensor_id", r.SensorID),
			logger.Uint64("cycle", r.Cycle),
			logger.Error(err))
		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordPersistenceFailure("record_reading")
		}
	}
}

func (s *Scheduler) recordCycle(result string, d time.Duration) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordCycle(result, d)
	}
}

func (s *Scheduler) setRunningMetric(running bool) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.SetRunning(running)
	}
}
