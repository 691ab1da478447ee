// Package fcm sends push notifications through the Firebase Cloud Messaging
// HTTP v1 API, authenticating with a Google service account.
package fcm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const Name = "notifications.fcm"

const (
	defaultBaseURL = "https://fcm.googleapis.com"
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
)

// New constructs an FCM adapter. Config: service_account_json (required, the
// raw service account key), base_url override. The service account is parsed
// at construction; tokens are minted and refreshed lazily by the oauth2
// transport.
func New(cfg adapter.Config) (any, error) {
	raw := cfg.String("service_account_json")
	if raw == "" {
		return nil, fmt.Errorf("fcm service_account_json is required: %w", adapter.ErrConfiguration)
	}

	creds, err := google.CredentialsFromJSON(context.Background(), []byte(raw), messagingScope)
	if err != nil {
		return nil, fmt.Errorf("fcm service account: %w: %v", adapter.ErrConfiguration, err)
	}
	if creds.ProjectID == "" {
		return nil, fmt.Errorf("fcm service account has no project_id: %w", adapter.ErrConfiguration)
	}

	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}

	client := oauth2.NewClient(context.Background(), creds.TokenSource)
	client.Timeout = 10 * time.Second

	return &Adapter{
		projectID: creds.ProjectID,
		baseURL:   strings.TrimRight(base, "/"),
		client:    client,
	}, nil
}

type Adapter struct {
	projectID string
	baseURL   string
	client    *http.Client
}

var _ adapter.PushAdapter = (*Adapter)(nil)

func (a *Adapter) SendPush(ctx context.Context, msg adapter.PushMessage) adapter.SendResult {
	message := map[string]any{
		"token": msg.Token,
		"notification": map[string]string{
			"title": msg.Title,
			"body":  msg.Body,
		},
	}
	if len(msg.Data) > 0 {
		message["data"] = msg.Data
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", a.baseURL, a.projectID)
	raw, err := adapter.DoJSON(ctx, a.client, http.MethodPost, endpoint, nil,
		map[string]any{"message": message}, "fcm", "send_push")
	if err != nil {
		return adapter.SendResult{Status: adapter.SendStatusFailed, Error: err.Error()}
	}

	result := adapter.SendResult{Status: adapter.SendStatusSent, Raw: raw}
	result.ProviderID, _ = raw["name"].(string)
	return result
}
