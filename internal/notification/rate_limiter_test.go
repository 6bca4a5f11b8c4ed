package notification

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedSink(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		inner := &fakeSink{name: "email"}
		s := NewRateLimitedSink(inner, 60, 2)
		assert.Equal(t, "email", s.Name())

		require.NoError(t, s.Send(t.Context(), "1", ""))
		require.NoError(t, s.Send(t.Context(), "2", ""))
		require.ErrorIs(t, s.Send(t.Context(), "3", ""), ErrRateLimited)
		assert.Equal(t, int32(2), inner.count.Load())

		time.Sleep(time.Second)
		require.NoError(t, s.Send(t.Context(), "4", ""), "one token per second refills")
		assert.Equal(t, []string{"1", "2", "4"}, inner.calls)
	})
}

func TestRateLimitedSinkDefaults(t *testing.T) {
	t.Parallel()

	s := NewRateLimitedSink(&fakeSink{name: "x"}, 0, 0)
	assert.Equal(t, DefaultRateLimitBurst, s.limiter.Burst())
}
