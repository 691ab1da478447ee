package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/shopspring/decimal"
)

const Name = "payments.stripe"

const defaultBaseURL = "https://api.stripe.com"

// New constructs a Stripe adapter. Required config: api_key. Optional:
// webhook_secret (verification fails closed without it), base_url.
func New(cfg adapter.Config) (any, error) {
	apiKey := cfg.String("api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("stripe api_key: %w", adapter.ErrConfiguration)
	}
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		apiKey:        apiKey,
		webhookSecret: cfg.String("webhook_secret"),
		baseURL:       strings.TrimRight(base, "/"),
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type Adapter struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

var (
	_ adapter.PaymentAdapter  = (*Adapter)(nil)
	_ adapter.WebhookVerifier = (*Adapter)(nil)
)

func (a *Adapter) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error) {
	description := req.Metadata["description"]
	if description == "" {
		description = "GlobeTrotter Booking"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][product_data][name]", description)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(minorUnits(req.Amount), 10))
	form.Set("line_items[0][quantity]", "1")
	if req.ReturnURLs.Success != "" {
		form.Set("success_url", req.ReturnURLs.Success)
	}
	if req.ReturnURLs.Cancel != "" {
		form.Set("cancel_url", req.ReturnURLs.Cancel)
	}
	if req.Customer.Email != "" {
		form.Set("customer_email", req.Customer.Email)
	}
	for key, value := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	raw, err := adapter.DoForm(ctx, a.client, a.baseURL+"/v1/checkout/sessions", a.authHeaders(), form, "stripe", "create_checkout")
	if err != nil {
		return nil, err
	}

	sessionID, _ := raw["id"].(string)
	checkoutURL, _ := raw["url"].(string)
	return &adapter.CheckoutSession{
		SessionID: sessionID,
		URL:       checkoutURL,
		TxnRef:    sessionID,
		Raw:       raw,
	}, nil
}

func (a *Adapter) Refund(ctx context.Context, req adapter.RefundRequest) (*adapter.RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", req.TxnRef)
	if req.Amount != nil {
		form.Set("amount", strconv.FormatInt(minorUnits(*req.Amount), 10))
	}
	if req.Reason != "" {
		form.Set("reason", req.Reason)
	}

	raw, err := adapter.DoForm(ctx, a.client, a.baseURL+"/v1/refunds", a.authHeaders(), form, "stripe", "refund")
	if err != nil {
		return nil, err
	}

	refundID, _ := raw["id"].(string)
	status, _ := raw["status"].(string)
	currency, _ := raw["currency"].(string)
	return &adapter.RefundResult{
		RefundID: refundID,
		Status:   status,
		Amount:   fromMinorUnits(raw["amount"]),
		Currency: strings.ToUpper(currency),
		Raw:      raw,
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header: HMAC-SHA256 over
// "<timestamp>.<payload>" keyed by the webhook secret. Fails closed when no
// secret is configured.
func (a *Adapter) VerifyWebhook(payload []byte, headers adapter.Headers) bool {
	if a.webhookSecret == "" {
		return false
	}
	sigHeader := strings.TrimSpace(headers.Get("stripe-signature"))
	if sigHeader == "" {
		return false
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return true
		}
	}
	return false
}

func (a *Adapter) ParseWebhook(payload []byte, headers adapter.Headers) (*adapter.WebhookEvent, error) {
	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("stripe webhook: %w", err)
	}

	var object struct {
		ID          string            `json:"id"`
		Status      string            `json:"status"`
		AmountTotal *int64            `json:"amount_total"`
		Amount      *int64            `json:"amount"`
		Currency    string            `json:"currency"`
		Metadata    map[string]string `json:"metadata"`
	}
	if len(event.Data.Object) > 0 {
		if err := json.Unmarshal(event.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("stripe webhook object: %w", err)
		}
	}

	raw := map[string]any{}
	_ = json.Unmarshal(payload, &raw)

	amount := decimal.Zero
	if object.AmountTotal != nil {
		amount = decimal.New(*object.AmountTotal, -2)
	} else if object.Amount != nil {
		amount = decimal.New(*object.Amount, -2)
	}

	return &adapter.WebhookEvent{
		Type:      canonicalEventType(event.Type),
		EventID:   event.ID,
		Status:    object.Status,
		Amount:    amount,
		Currency:  strings.ToUpper(object.Currency),
		TxnRef:    object.ID,
		PaymentID: object.Metadata["payment_id"],
		Raw:       raw,
	}, nil
}

func canonicalEventType(stripeType string) string {
	switch strings.TrimSpace(stripeType) {
	case "checkout.session.completed", "payment_intent.succeeded":
		return adapter.EventPaymentSucceeded
	case "payment_intent.payment_failed":
		return adapter.EventPaymentFailed
	case "payment_intent.canceled", "checkout.session.expired":
		return adapter.EventPaymentCanceled
	default:
		return strings.TrimSpace(stripeType)
	}
}

func (a *Adapter) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.apiKey}
}

// parseSignatureHeader splits "t=<ts>,v1=<sig>[,v1=<sig>...]".
func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			timestamp = pair[1]
		case "v1":
			signatures = append(signatures, pair[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, fmt.Errorf("malformed signature header")
	}
	return timestamp, signatures, nil
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func fromMinorUnits(value any) decimal.Decimal {
	switch v := value.(type) {
	case float64:
		return decimal.New(int64(v), -2)
	case int64:
		return decimal.New(v, -2)
	case json.Number:
		parsed, err := v.Int64()
		if err == nil {
			return decimal.New(parsed, -2)
		}
	}
	return decimal.Zero
}
