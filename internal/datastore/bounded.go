package datastore

import (
	"context"
	"fmt"

	"github.com/androsik2006/radmon/internal/radiation"
)

// boundedGateway runs every call on its own goroutine and gives up when the
// caller's context ends, even if the wrapped gateway ignores it. An
// abandoned call keeps running in the background and its result is dropped.
type boundedGateway struct {
	next Gateway
}

// Bounded wraps g so no call outlives its context. It returns nil for a nil g.
func Bounded(g Gateway) Gateway {
	switch g := g.(type) {
	case nil:
		return nil
	case *boundedGateway:
		return g
	default:
		return &boundedGateway{next: g}
	}
}

func (b *boundedGateway) RecordReading(ctx context.Context, r radiation.Reading) error {
	return bounded(ctx, "record_reading", func() error { return b.next.RecordReading(ctx, r) })
}

func (b *boundedGateway) RecordAlert(ctx context.Context, a radiation.AlertEvent) error {
	return bounded(ctx, "record_alert", func() error { return b.next.RecordAlert(ctx, a) })
}

func (b *boundedGateway) MarkNotified(ctx context.Context, alertID string) error {
	return bounded(ctx, "mark_notified", func() error { return b.next.MarkNotified(ctx, alertID) })
}

func bounded(ctx context.Context, operation string, call func() error) error {
	done := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = persistenceError(fmt.Errorf("gateway panicked: %v", r), operation)
			}
			done <- err
		}()
		err = call()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return persistenceError(ctx.Err(), operation)
	}
}
