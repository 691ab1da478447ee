// Package twilio sends SMS through the Twilio Messages REST API.
package twilio

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

const Name = "notifications.twilio"

const defaultBaseURL = "https://api.twilio.com"

// New constructs a Twilio adapter. Config: account_sid, auth_token,
// from_number (all required), base_url override.
func New(cfg adapter.Config) (any, error) {
	accountSID := cfg.String("account_sid")
	authToken := cfg.String("auth_token")
	from := cfg.String("from_number")
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("twilio account_sid, auth_token and from_number are required: %w", adapter.ErrConfiguration)
	}
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    strings.TrimRight(base, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type Adapter struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

var _ adapter.SmsAdapter = (*Adapter)(nil)

func (a *Adapter) SendSMS(ctx context.Context, msg adapter.SmsMessage) adapter.SendResult {
	from := msg.SenderID
	if from == "" {
		from = a.from
	}

	values := url.Values{}
	values.Set("To", msg.To)
	values.Set("From", from)
	values.Set("Body", msg.Message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.baseURL, url.PathEscape(a.accountSID))
	headers := map[string]string{"Authorization": basicAuth(a.accountSID, a.authToken)}

	raw, err := adapter.DoForm(ctx, a.client, endpoint, headers, values, "twilio", "send_sms")
	if err != nil {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: err.Error()}
	}

	result := adapter.SendResult{Status: adapter.SendStatusSent, Raw: raw}
	result.ProviderID, _ = raw["sid"].(string)
	if status, ok := raw["status"].(string); ok && (status == "queued" || status == "accepted") {
		result.Status = adapter.SendStatusQueued
	}
	return result
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}
