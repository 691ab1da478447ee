package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(adapter.Config{}); !errors.Is(err, adapter.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSendEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sg-key" {
			t.Errorf("missing bearer key")
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["subject"] != "Booking confirmed" {
			t.Errorf("unexpected subject %v", payload["subject"])
		}
		from, _ := payload["from"].(map[string]any)
		if from["email"] != "noreply@globetrotter.example" {
			t.Errorf("expected configured from address, got %v", from)
		}

		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	inst, err := New(adapter.Config{
		"api_key":    "sg-key",
		"from_email": "noreply@globetrotter.example",
		"base_url":   server.URL,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := inst.(*Adapter)

	result := a.SendEmail(context.Background(), adapter.EmailMessage{
		To:      []string{"traveler@example.com"},
		Subject: "Booking confirmed",
		Text:    "See you at the gate.",
	})
	if result.Status != adapter.SendStatusQueued {
		t.Fatalf("expected QUEUED, got %s (%s)", result.Status, result.Error)
	}
	if result.ProviderID != "msg-1" {
		t.Fatalf("expected message id from header, got %q", result.ProviderID)
	}
}

func TestSendEmailFailureIsCaptured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad request"}]}`, http.StatusBadRequest)
	}))
	defer server.Close()

	inst, _ := New(adapter.Config{"api_key": "sg-key", "base_url": server.URL})
	a := inst.(*Adapter)

	result := a.SendEmail(context.Background(), adapter.EmailMessage{To: []string{"x@example.com"}, Subject: "s", Text: "t"})
	if result.Status != adapter.SendStatusFailed || result.Error == "" {
		t.Fatalf("expected captured failure, got %+v", result)
	}
}
