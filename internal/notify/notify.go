// Package notify shows forecast notifications to the user.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/i474232898/forecast-cache/internal/weather"
)

// LogNotifier writes notifications to the log. It is used when no webhook is configured.
type LogNotifier struct{}

var _ weather.Notifier = LogNotifier{}

func (LogNotifier) Show(_ context.Context, n weather.Notification) error {
	log.Printf("INFO: notification: %s: %s (%s)", n.Title, n.Text, n.DeepLink)
	return nil
}

// WebhookNotifier posts notifications as JSON to a URL, for example a push gateway.
type WebhookNotifier struct {
	client *http.Client
	url    string
}

var _ weather.Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(client *http.Client, url string) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{client: client, url: url}
}

func (w *WebhookNotifier) Show(ctx context.Context, n weather.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post notification: unexpected status code %d", resp.StatusCode)
	}
	return nil
}
