package notification

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/errors"
)

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	m := newTestNotificationMetrics(t)
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, HalfOpenMaxRequests: 1}, m, "email")
	fail := func(context.Context) error { return errors.NewStd("smtp down") }

	for range 3 {
		require.Error(t, cb.Call(t.Context(), fail))
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 3, cb.Failures())
	assert.InDelta(t, float64(StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("email")), 1e-9)

	called := false
	err := cb.Call(t.Context(), func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called, "open circuit must not invoke the sink")
	assert.True(t, errors.IsCategory(err, errors.CategoryLimit))
}

func TestCircuitBreakerRecovers(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 30 * time.Second, HalfOpenMaxRequests: 1}, nil, "webhook")
		require.Error(t, cb.Call(t.Context(), func(context.Context) error { return errors.NewStd("500") }))
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(29 * time.Second)
		require.ErrorIs(t, cb.Call(t.Context(), func(context.Context) error { return nil }), ErrCircuitBreakerOpen)

		time.Sleep(time.Second)
		require.NoError(t, cb.Call(t.Context(), func(context.Context) error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, 0, cb.Failures())
	})
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Second, HalfOpenMaxRequests: 1}, nil, "sms")
		fail := func(context.Context) error { return errors.NewStd("fail") }

		require.Error(t, cb.Call(t.Context(), fail))
		time.Sleep(10 * time.Second)
		require.Error(t, cb.Call(t.Context(), fail))
		assert.Equal(t, StateOpen, cb.State())
	})
}

func TestCircuitBreakerHalfOpenLimit(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second, HalfOpenMaxRequests: 1}, nil, "x")
		require.Error(t, cb.Call(t.Context(), func(context.Context) error { return errors.NewStd("fail") }))
		time.Sleep(time.Second)

		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- cb.Call(t.Context(), func(context.Context) error { <-release; return nil })
		}()
		synctest.Wait()

		require.ErrorIs(t, cb.Call(t.Context(), func(context.Context) error { return nil }), ErrTooManyRequests)
		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, StateClosed, cb.State())
	})
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1}, nil, "x")
	err := cb.Call(t.Context(), func(context.Context) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerInvalidConfigFallsBack(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{}, nil, "x")
	assert.Equal(t, DefaultCircuitBreakerConfig(), cb.config)
}

func TestCircuitBreakerReset(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour, HalfOpenMaxRequests: 1}, nil, "x")
	require.Error(t, cb.Call(t.Context(), func(context.Context) error { return errors.NewStd("fail") }))
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	stats := cb.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Zero(t, stats.Failures)
}

func TestBreakerSinkDelegates(t *testing.T) {
	t.Parallel()

	inner := &fakeSink{name: "email", err: errors.NewStd("down")}
	s := NewBreakerSink(inner, CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour, HalfOpenMaxRequests: 1}, nil)
	assert.Equal(t, "email", s.Name())

	for range 4 {
		_ = s.Send(t.Context(), "s", "b")
	}
	assert.Equal(t, int32(2), inner.count.Load(), "breaker opens after two failures")
	assert.Equal(t, StateOpen, s.Breaker().State())
}
