package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// criticalRetryDelay is the pause before the single retry of a critical event.
var criticalRetryDelay = 2 * time.Second

// WebhookAlerter posts events as JSON to a webhook URL. Critical events
// are retried once on transport errors and 5xx responses.
type WebhookAlerter struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookAlerter creates a webhook alerter. headers are added to every
// request, after the event headers, so they can override them.
func NewWebhookAlerter(url string, headers map[string]string) *WebhookAlerter {
	return &WebhookAlerter{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookAlerter) Name() string {
	return "webhook"
}

func (w *WebhookAlerter) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	retry, err := w.post(ctx, event, body)
	if err == nil || !retry || event.Severity != SeverityCritical {
		return err
	}

	select {
	case <-time.After(criticalRetryDelay):
	case <-ctx.Done():
		return err
	}
	_, err = w.post(ctx, event, body)
	return err
}

// post delivers one attempt and reports whether a failure is worth retrying.
func (w *WebhookAlerter) post(ctx context.Context, event Event, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Wayfind-Event", event.EventType)
	req.Header.Set("X-Wayfind-Severity", event.Severity)
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		msg := strings.TrimSpace(string(snippet))
		if msg != "" {
			return resp.StatusCode >= 500, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, msg)
		}
		return resp.StatusCode >= 500, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return false, nil
}
