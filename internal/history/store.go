// Package history keeps the bounded in-memory view of recent readings and
// alerts that query surfaces read from.
//
// Writers are serialized by a mutex and publish a new immutable state
// through an atomic pointer. Readers load the pointer and never block, so
// a concurrent Append is either fully visible or not visible at all.
package history

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/androsik2006/radmon/internal/radiation"
)

// Default capacities.
const (
	DefaultCapacity      = 50
	DefaultAlertCapacity = 1000
)

// Config sizes a Store.
type Config struct {
	Capacity      int           // readings kept per sensor, N
	AlertCapacity int           // alerts kept in the log, M
	StaleAfter    time.Duration // Latest expires after this long without a reading
}

// CyclePoint is one entry of the shared cycle axis.
type CyclePoint struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// Point is a sensor value aligned to a cycle. Present is false when the
// sensor produced no reading in that cycle.
type Point struct {
	CyclePoint
	Present bool             `json:"present"`
	Value   float64          `json:"value"`
	Status  radiation.Status `json:"status"`
}

// Series is one sensor's aligned history.
type Series struct {
	SensorID string  `json:"sensor_id"`
	Points   []Point `json:"points"`
}

// state is never modified once published.
type state struct {
	order   []string // sensor ids in first-seen order
	windows map[string][]radiation.Reading
	axis    []CyclePoint
	alerts  []radiation.AlertEvent
}

var emptyState = &state{windows: map[string][]radiation.Reading{}}

// Store is safe for concurrent use.
type Store struct {
	capacity      int
	alertCapacity int
	staleAfter    atomic.Int64 // time.Duration

	mu      sync.Mutex // serializes writers
	current atomic.Pointer[state]

	latest *cache.Cache
}

// New creates a Store. Zero capacities fall back to the defaults.
func New(cfg Config) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.AlertCapacity <= 0 {
		cfg.AlertCapacity = DefaultAlertCapacity
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Minute
	}

	s := &Store{
		capacity:      cfg.Capacity,
		alertCapacity: cfg.AlertCapacity,
		latest:        cache.New(cfg.StaleAfter, 0), // keys are the bounded sensor set, no janitor
	}
	s.staleAfter.Store(int64(cfg.StaleAfter))
	s.current.Store(emptyState)
	return s
}

// Capacity returns N, the per-sensor window size.
func (s *Store) Capacity() int { return s.capacity }

// SetStaleAfter changes the staleness horizon for readings appended from
// now on.
func (s *Store) SetStaleAfter(d time.Duration) {
	if d > 0 {
		s.staleAfter.Store(int64(d))
	}
}

// update publishes fn applied to a shallow copy of the current state.
func (s *Store) update(fn func(next *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	next := *cur
	fn(&next)
	s.current.Store(&next)
}

// appendBounded returns a new slice holding the last capacity elements of
// window plus v. window is never modified.
func appendBounded[T any](window []T, v T, capacity int) []T {
	start := 0
	if len(window) >= capacity {
		start = len(window) - capacity + 1
	}
	out := make([]T, 0, min(len(window)+1, capacity))
	out = append(out, window[start:]...)
	return append(out, v)
}

// Append records r as the newest reading of sensorID, evicting the oldest
// reading once the window holds N.
func (s *Store) Append(sensorID string, r radiation.Reading) {
	s.update(func(next *state) {
		window, known := next.windows[sensorID]
		windows := make(map[string][]radiation.Reading, len(next.windows)+1)
		for id, w := range next.windows {
			windows[id] = w
		}
		windows[sensorID] = appendBounded(window, r, s.capacity)
		next.windows = windows
		if !known {
			next.order = append(slices.Clip(next.order), sensorID)
		}
	})
	s.latest.Set(sensorID, r, time.Duration(s.staleAfter.Load()))
}

// MarkCycle appends a cycle to the shared axis. The axis keeps the last N
// cycles so every window can be aligned to it.
func (s *Store) MarkCycle(seq uint64, ts time.Time) {
	s.update(func(next *state) {
		next.axis = appendBounded(next.axis, CyclePoint{Seq: seq, Timestamp: ts}, s.capacity)
	})
}

// Recent returns up to n of the newest readings of sensorID, oldest first.
// n <= 0 returns the whole window.
func (s *Store) Recent(sensorID string, n int) []radiation.Reading {
	window := s.current.Load().windows[sensorID]
	if n > 0 && n < len(window) {
		window = window[len(window)-n:]
	}
	return slices.Clone(window)
}

// Sensors returns the ids of every sensor with history, in first-seen order.
func (s *Store) Sensors() []string {
	return slices.Clone(s.current.Load().order)
}

// Cycles returns up to n of the newest cycle axis entries, oldest first.
func (s *Store) Cycles(n int) []CyclePoint {
	axis := s.current.Load().axis
	if n > 0 && n < len(axis) {
		axis = axis[len(axis)-n:]
	}
	return slices.Clone(axis)
}

// RecentAll aligns every sensor's window to the last n cycles of the shared
// axis. Sensors without a reading for a cycle get a point with Present
// false, so all series have the same length.
func (s *Store) RecentAll(n int) []Series {
	st := s.current.Load()
	axis := st.axis
	if n > 0 && n < len(axis) {
		axis = axis[len(axis)-n:]
	}

	out := make([]Series, 0, len(st.order))
	for _, id := range st.order {
		window := st.windows[id]
		bySeq := make(map[uint64]radiation.Reading, len(window))
		for _, r := range window {
			bySeq[r.Cycle] = r
		}

		points := make([]Point, len(axis))
		for i, c := range axis {
			points[i].CyclePoint = c
			if r, ok := bySeq[c.Seq]; ok {
				points[i].Present = true
				points[i].Value = r.Value
				points[i].Status = r.Status
			}
		}
		out = append(out, Series{SensorID: id, Points: points})
	}
	return out
}

// Latest returns the newest reading of sensorID unless it has gone stale.
func (s *Store) Latest(sensorID string) (radiation.Reading, bool) {
	v, found := s.latest.Get(sensorID)
	if !found {
		return radiation.Reading{}, false
	}
	r, ok := v.(radiation.Reading)
	return r, ok
}

// IsStale reports whether sensorID has had no reading within the staleness
// horizon. Sensors never seen are stale.
func (s *Store) IsStale(sensorID string) bool {
	_, fresh := s.Latest(sensorID)
	return !fresh
}

// AppendAlert adds a to the alert log, evicting the oldest entry once the
// log holds M.
func (s *Store) AppendAlert(a radiation.AlertEvent) {
	s.update(func(next *state) {
		next.alerts = appendBounded(next.alerts, a, s.alertCapacity)
	})
}

// Alerts returns up to n of the newest alerts, oldest first. n <= 0 returns
// the whole log.
func (s *Store) Alerts(n int) []radiation.AlertEvent {
	alerts := s.current.Load().alerts
	if n > 0 && n < len(alerts) {
		alerts = alerts[len(alerts)-n:]
	}
	return slices.Clone(alerts)
}

// PendingAlerts returns the logged alerts whose delivery has not succeeded.
func (s *Store) PendingAlerts() []radiation.AlertEvent {
	alerts := s.current.Load().alerts
	var pending []radiation.AlertEvent
	for _, a := range alerts {
		if a.Pending() {
			pending = append(pending, a)
		}
	}
	return pending
}

// MarkNotified flips the alert with id to notified. It returns false when
// the alert is not in the log, for example after eviction.
func (s *Store) MarkNotified(id string) bool {
	found := false
	s.update(func(next *state) {
		idx := slices.IndexFunc(next.alerts, func(a radiation.AlertEvent) bool { return a.ID == id })
		if idx < 0 || next.alerts[idx].Notified {
			found = idx >= 0
			return
		}
		alerts := slices.Clone(next.alerts)
		alerts[idx].Notified = true
		next.alerts = alerts
		found = true
	})
	return found
}

// ClearAlerts empties the alert log.
func (s *Store) ClearAlerts() {
	s.update(func(next *state) {
		next.alerts = nil
	})
}
