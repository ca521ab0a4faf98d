package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookPushSender delivers push notifications by POSTing a JSON payload to a
// configured webhook URL. The receiving service is responsible for fanning the
// message out to the user's devices.
type WebhookPushSender struct {
	url    string
	client *http.Client
}

// NewWebhookPushSender creates a WebhookPushSender targeting the given URL.
func NewWebhookPushSender(url string) *WebhookPushSender {
	return &WebhookPushSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	SentAt    string `json:"sent_at"`
}

// SendPush posts the notification to the webhook endpoint.
func (s *WebhookPushSender) SendPush(ctx context.Context, to, title, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Recipient: to,
		Title:     title,
		Body:      body,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
