package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// recordingTransport keeps every event the client sends.
type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *recordingTransport) Configure(sentry.ClientOptions) {} //nolint:gocritic // sentry.Transport signature

func (r *recordingTransport) SendEvent(event *sentry.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingTransport) Flush(time.Duration) bool                 { return true }
func (r *recordingTransport) FlushWithContext(ctx context.Context) bool { return ctx.Err() == nil }
func (r *recordingTransport) Close()                                    {}

func (r *recordingTransport) recorded() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sentry.Event(nil), r.events...)
}
