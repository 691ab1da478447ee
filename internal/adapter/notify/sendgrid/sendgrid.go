// Package sendgrid sends email through the SendGrid v3 mail API. Accepted
// sends return 202 with an empty body; the message id travels in the
// X-Message-Id response header.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

const Name = "notifications.sendgrid"

const defaultBaseURL = "https://api.sendgrid.com"

// New constructs a SendGrid adapter. Config: api_key (required), from_email,
// base_url override.
func New(cfg adapter.Config) (any, error) {
	key := cfg.String("api_key")
	if key == "" {
		return nil, fmt.Errorf("sendgrid api_key is required: %w", adapter.ErrConfiguration)
	}
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		apiKey:    key,
		fromEmail: cfg.String("from_email"),
		baseURL:   strings.TrimRight(base, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type Adapter struct {
	apiKey    string
	fromEmail string
	baseURL   string
	client    *http.Client
}

var _ adapter.EmailAdapter = (*Adapter)(nil)

func (a *Adapter) SendEmail(ctx context.Context, msg adapter.EmailMessage) adapter.SendResult {
	from := msg.From
	if from == "" {
		from = a.fromEmail
	}

	recipients := make([]map[string]string, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, map[string]string{"email": to})
	}

	content := []map[string]string{}
	if msg.Text != "" {
		content = append(content, map[string]string{"type": "text/plain", "value": msg.Text})
	}
	if msg.HTML != "" {
		content = append(content, map[string]string{"type": "text/html", "value": msg.HTML})
	}

	payload := map[string]any{
		"personalizations": []map[string]any{{"to": recipients}},
		"from":             map[string]string{"email": from},
		"subject":          msg.Subject,
		"content":          content,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v3/mail/send", bytes.NewReader(encoded))
	if err != nil {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &adapter.RequestError{
			Provider:   "sendgrid",
			Operation:  "send_email",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: reqErr.Error()}
	}

	return adapter.SendResult{
		Status:     adapter.SendStatusQueued,
		ProviderID: resp.Header.Get("X-Message-Id"),
	}
}
