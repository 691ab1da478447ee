package flutterwave

import (
	"errors"
	"testing"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/shopspring/decimal"
)

func TestNewRequiresSecretKey(t *testing.T) {
	if _, err := New(adapter.Config{}); !errors.Is(err, adapter.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestVerifyWebhook(t *testing.T) {
	inst, err := New(adapter.Config{"secret_key": "FLWSECK-x", "webhook_secret": "hash-1"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := inst.(*Adapter)

	if !a.VerifyWebhook(nil, adapter.Headers{"verif-hash": "hash-1"}) {
		t.Fatalf("expected matching verif-hash to pass")
	}
	if a.VerifyWebhook(nil, adapter.Headers{"verif-hash": "hash-2"}) {
		t.Fatalf("expected mismatched verif-hash to fail")
	}
	if a.VerifyWebhook(nil, adapter.Headers{}) {
		t.Fatalf("expected missing verif-hash to fail")
	}
}

func TestVerifyWebhookFailsClosedWithoutSecret(t *testing.T) {
	inst, _ := New(adapter.Config{"secret_key": "FLWSECK-x"})
	a := inst.(*Adapter)
	if a.VerifyWebhook(nil, adapter.Headers{"verif-hash": "anything"}) {
		t.Fatalf("expected verification to fail without a configured secret")
	}
}

func TestParseWebhook(t *testing.T) {
	inst, _ := New(adapter.Config{"secret_key": "FLWSECK-x"})
	a := inst.(*Adapter)

	payload := []byte(`{
		"event": "charge.completed",
		"data": {
			"id": 8472,
			"tx_ref": "gt-abc",
			"status": "successful",
			"amount": 250.5,
			"currency": "ngn",
			"meta": {"payment_id": "17"}
		}
	}`)

	event, err := a.ParseWebhook(payload, adapter.Headers{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != adapter.EventPaymentSucceeded {
		t.Fatalf("expected payment_succeeded, got %s", event.Type)
	}
	if event.TxnRef != "gt-abc" {
		t.Fatalf("expected tx_ref gt-abc, got %s", event.TxnRef)
	}
	if event.PaymentID != "17" {
		t.Fatalf("expected embedded payment id, got %q", event.PaymentID)
	}
	if !event.Amount.Equal(decimal.RequireFromString("250.5")) {
		t.Fatalf("expected amount 250.5, got %s", event.Amount)
	}
	if event.Currency != "NGN" {
		t.Fatalf("expected NGN, got %s", event.Currency)
	}

	failed := []byte(`{"event":"charge.completed","data":{"id":1,"tx_ref":"gt-x","status":"failed","amount":10,"currency":"NGN"}}`)
	event, err = a.ParseWebhook(failed, adapter.Headers{})
	if err != nil {
		t.Fatalf("parse failed charge: %v", err)
	}
	if event.Type != adapter.EventPaymentFailed {
		t.Fatalf("expected payment_failed, got %s", event.Type)
	}
}
