package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Webhook posts plain text messages to a chat webhook. Fire and forget:
// failures are logged and never propagated to the caller.
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook creates a webhook notifier
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post sends the message
func (w *Webhook) Post(ctx context.Context, message string) {
	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal notification payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Notification post failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("Notification rejected by webhook")
		return
	}

	log.Debug().Msg("Notification posted")
}

// Noop is the notifier used when notifications are disabled
type Noop struct{}

// Post does nothing
func (Noop) Post(ctx context.Context, message string) {}
