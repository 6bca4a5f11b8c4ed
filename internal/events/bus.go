// Package events fans cycle notifications out to subscribers.
//
// Publishing never blocks: every subscriber owns a buffered channel and an
// event that does not fit is dropped for that subscriber only.
package events

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/androsik2006/radmon/internal/logger"
)

// DefaultBufferSize is used when Subscribe is called with a non-positive buffer.
const DefaultBufferSize = 16

// DropFunc is called with the subscriber name whenever an event is dropped.
type DropFunc func(subscriber string)

// Bus delivers CycleCompleted events to its subscribers.
type Bus struct {
	mu        sync.RWMutex
	subs      []*Subscription
	closed    bool
	onDrop    DropFunc
	published atomic.Uint64
	dropped   atomic.Uint64
	log       logger.Logger
}

// NewBus creates a bus. onDrop may be nil.
func NewBus(onDrop DropFunc) *Bus {
	return &Bus{onDrop: onDrop, log: GetLogger()}
}

// Subscription is a subscriber's view of the bus.
type Subscription struct {
	name    string
	ch      chan CycleCompleted
	dropped atomic.Uint64
	bus     *Bus
	once    sync.Once
}

// Subscribe registers a subscriber with the given buffer size. The returned
// channel is closed by Close or when the bus closes. Subscribing to a closed
// bus returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	s := &Subscription{name: name, ch: make(chan CycleCompleted, buffer), bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	b.subs = append(b.subs, s)
	b.log.Debug("subscriber registered",
		logger.String("subscriber", name),
		logger.Int("buffer", buffer))
	return s
}

// Publish offers ev to every subscriber without blocking.
func (b *Bus) Publish(ev CycleCompleted) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.published.Add(1)

	for _, s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			b.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop(s.name)
			}
			b.log.Debug("cycle event dropped",
				logger.String("subscriber", s.name),
				logger.Uint64("seq", ev.Seq))
		}
	}
}

// Stats returns the bus counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return BusStats{
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: n,
	}
}

// Close unsubscribes and closes every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.once.Do(func() { close(s.ch) })
	}
	b.subs = nil
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(b.subs, func(x *Subscription) bool { return x == s })
	s.once.Do(func() { close(s.ch) })
}

// Name returns the subscriber name.
func (s *Subscription) Name() string { return s.name }

// C returns the channel events arrive on.
func (s *Subscription) C() <-chan CycleCompleted { return s.ch }

// Dropped returns how many events this subscriber missed.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close removes the subscription from the bus and closes its channel.
func (s *Subscription) Close() {
	s.bus.remove(s)
}
