package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"fileloader/internal/config"
)

// WebhookOperatorNotifier posts operator-lane failures as JSON to a
// configured webhook URL (SPEC_FULL.md §4.11 notification supplement — no
// Slack SDK exists anywhere in the example corpus, so a plain HTTP POST is
// the grounded equivalent).
type WebhookOperatorNotifier struct {
	cfg    config.NotificationConfig
	client *http.Client
}

// NewWebhookOperatorNotifier binds a notifier to cfg's webhook URL.
func NewWebhookOperatorNotifier(cfg config.NotificationConfig) *WebhookOperatorNotifier {
	return &WebhookOperatorNotifier{cfg: cfg, client: &http.Client{}}
}

type webhookPayload struct {
	Source  string `json:"source"`
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NotifyOperator POSTs n as JSON to the configured webhook URL.
func (w *WebhookOperatorNotifier) NotifyOperator(ctx context.Context, n Notice) error {
	if w.cfg.WebhookURL == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{Source: n.SourceName, File: n.FileName, Kind: n.Kind, Message: n.Message})
	if err != nil {
		return fmt.Errorf("encode operator notification for %s: %w", n.FileName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build operator notification request for %s: %w", n.FileName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send operator notification for %s: %w", n.FileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("operator webhook for %s returned status %d", n.FileName, resp.StatusCode)
	}
	return nil
}
