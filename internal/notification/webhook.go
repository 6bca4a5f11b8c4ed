package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/androsik2006/radmon/internal/errors"
)

const (
	defaultWebhookTimeout = 10 * time.Second

	// maxErrorBodySize limits error response body reading.
	maxErrorBodySize = 1024

	webhookUserAgent = "radmon-webhook/1.0"
)

// WebhookPayload is the JSON document posted to the webhook.
type WebhookPayload struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WebhookSink posts messages as JSON.
type WebhookSink struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookSink validates endpoint and returns the sink. A nil client gets
// a default one with the given timeout.
func NewWebhookSink(name, endpoint string, headers map[string]string, timeout time.Duration, client *http.Client) (*WebhookSink, error) {
	if err := validateWebhookURL(endpoint); err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if name == "" {
		name = "webhook"
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookSink{
		name:    name,
		url:     endpoint,
		headers: maps.Clone(headers),
		client:  client,
	}, nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL host is required")
	}
	return nil
}

func (w *WebhookSink) Name() string { return w.name }

func (w *WebhookSink) Send(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(WebhookPayload{
		Source:    "radmon",
		Title:     subject,
		Message:   body,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	for key, value := range w.headers {
		req.Header.Set(key, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return fmt.Errorf("request cancelled: %w", err)
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("request timed out: %w", err)
		}
		return errors.New(fmt.Errorf("request failed: %w", err)).
			Component("notification").
			Category(errors.CategoryNetwork).
			Build()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return errors.Newf("webhook returned status %d: %s", resp.StatusCode, string(b)).
			Component("notification").
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			Build()
	}
	return nil
}
