package notification

import (
	"fmt"
	"net/http"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/observability/metrics"
)

// Options carries optional collaborators for Build.
type Options struct {
	Metrics    *metrics.NotificationMetrics
	HTTPClient *http.Client // webhook client, mainly for tests
	Log        logger.Logger
}

// Build assembles the configured sinks into a Fanout. It returns nil when
// notifications are disabled.
func Build(settings *conf.NotificationSettings, opts Options) (*Fanout, error) {
	if settings == nil || !settings.Enabled {
		return nil, nil
	}
	log := opts.Log
	if log == nil {
		log = GetLogger()
	}
	timeout := settings.Timeout.Duration()

	var sinks []Sink
	if settings.Phone != "" {
		sinks = append(sinks, NewLogSink("sms", settings.Phone, log))
	}

	if settings.Email.Enabled {
		smtpURL, err := SMTPURL(&settings.Email)
		if err != nil {
			return nil, configError(err)
		}
		s, err := NewShoutrrrSink("email", []string{smtpURL}, timeout)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if len(settings.URLs) > 0 {
		s, err := NewShoutrrrSink("shoutrrr", settings.URLs, timeout)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if settings.Webhook.Enabled {
		webhookTimeout := settings.Webhook.Timeout.Duration()
		if webhookTimeout <= 0 {
			webhookTimeout = timeout
		}
		s, err := NewWebhookSink("webhook", settings.Webhook.URL, settings.Webhook.Headers, webhookTimeout, opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	for i, s := range sinks {
		sinks[i] = wrap(s, settings, opts.Metrics)
	}

	f := NewFanout(opts.Metrics, sinks...)
	f.log = log
	log.Info("notification sinks configured", logger.Any("sinks", f.Sinks()))
	return f, nil
}

// wrap applies the breaker inside the rate limiter so rejections by the
// limiter never count as sink failures.
func wrap(s Sink, settings *conf.NotificationSettings, m *metrics.NotificationMetrics) Sink {
	if cb := settings.CircuitBreaker; cb.Enabled {
		s = NewBreakerSink(s, CircuitBreakerConfig{
			MaxFailures:         cb.MaxFailures,
			Timeout:             cb.Timeout.Duration(),
			HalfOpenMaxRequests: cb.HalfOpenMaxTries,
		}, m)
	}
	if rl := settings.RateLimit; rl.Enabled {
		s = NewRateLimitedSink(s, rl.PerMinute, rl.Burst)
	}
	return s
}

func configError(err error) error {
	return errors.New(fmt.Errorf("notification: %w", err)).
		Component("notification").
		Category(errors.CategoryConfiguration).
		Build()
}
