// Package fake is an in-process payment provider used by local development
// and the end-to-end tests. Checkouts always succeed unless simulate_failures
// is set, and webhooks are self-describing JSON.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Name = "payments.fake"

func New(cfg adapter.Config) (any, error) {
	return &Adapter{
		simulateFailures: cfg.Bool("simulate_failures"),
		failRefunds:      cfg.Bool("fail_refunds"),
	}, nil
}

type Adapter struct {
	simulateFailures bool
	failRefunds      bool
}

var (
	_ adapter.PaymentAdapter  = (*Adapter)(nil)
	_ adapter.WebhookVerifier = (*Adapter)(nil)
)

func (a *Adapter) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error) {
	if a.simulateFailures {
		return nil, &adapter.RequestError{Provider: "fake", Operation: "create_checkout", StatusCode: 502, Body: "simulated failure"}
	}

	sessionID := uuid.NewString()
	checkoutURL := req.ReturnURLs.Success
	if checkoutURL == "" {
		checkoutURL = "http://localhost/fake/success"
	}
	return &adapter.CheckoutSession{
		SessionID: sessionID,
		URL:       checkoutURL,
		TxnRef:    sessionID,
		Raw: map[string]any{
			"adapter":    "fake",
			"mode":       "checkout",
			"amount":     req.Amount.String(),
			"currency":   req.Currency,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (a *Adapter) Refund(ctx context.Context, req adapter.RefundRequest) (*adapter.RefundResult, error) {
	if a.failRefunds {
		return nil, &adapter.RequestError{Provider: "fake", Operation: "refund", StatusCode: 502, Body: "simulated refund failure"}
	}

	result := &adapter.RefundResult{
		RefundID: uuid.NewString(),
		Status:   "success",
		Raw: map[string]any{
			"adapter":      "fake",
			"mode":         "refund",
			"txn_ref":      req.TxnRef,
			"reason":       req.Reason,
			"processed_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if req.Amount != nil {
		result.Amount = *req.Amount
	}
	return result, nil
}

func (a *Adapter) VerifyWebhook(payload []byte, headers adapter.Headers) bool {
	// Fake webhooks are always valid.
	return true
}

func (a *Adapter) ParseWebhook(payload []byte, headers adapter.Headers) (*adapter.WebhookEvent, error) {
	var body struct {
		Event     string `json:"event"`
		EventID   string `json:"event_id"`
		TxnRef    string `json:"txn_ref"`
		PaymentID string `json:"payment_id"`
		Amount    string `json:"amount"`
		Currency  string `json:"currency"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("fake webhook: %w", err)
	}

	eventID := body.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	amount := decimal.Zero
	if body.Amount != "" {
		if parsed, err := decimal.NewFromString(body.Amount); err == nil {
			amount = parsed
		}
	}
	currency := strings.ToUpper(body.Currency)
	if currency == "" {
		currency = "USD"
	}

	raw := map[string]any{}
	_ = json.Unmarshal(payload, &raw)

	return &adapter.WebhookEvent{
		Type:      strings.TrimSpace(body.Event),
		EventID:   eventID,
		Amount:    amount,
		Currency:  currency,
		TxnRef:    body.TxnRef,
		PaymentID: body.PaymentID,
		Raw:       raw,
	}, nil
}
