package notification

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/androsik2006/radmon/internal/errors"
)

// Default rate limits.
const (
	DefaultRateLimitPerMinute = 30
	DefaultRateLimitBurst     = 10
)

// ErrRateLimited is returned when a sink refused a message because its budget is spent.
var ErrRateLimited = errors.Newf("notification rate limit exceeded").
	Component("notification").
	Category(errors.CategoryLimit).
	Build()

// RateLimitedSink rejects messages above perMinute with the given burst
// without waiting for a token.
type RateLimitedSink struct {
	next    Sink
	limiter *rate.Limiter
}

// NewRateLimitedSink wraps next. Non-positive values fall back to the defaults.
func NewRateLimitedSink(next Sink, perMinute, burst int) *RateLimitedSink {
	if perMinute <= 0 {
		perMinute = DefaultRateLimitPerMinute
	}
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}
	return &RateLimitedSink{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

func (s *RateLimitedSink) Name() string { return s.next.Name() }

func (s *RateLimitedSink) Send(ctx context.Context, subject, body string) error {
	if !s.limiter.Allow() {
		return fmt.Errorf("%s: %w", s.next.Name(), ErrRateLimited)
	}
	return s.next.Send(ctx, subject, body)
}
