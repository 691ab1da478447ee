package flutterwave

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const Name = "payments.flutterwave"

const defaultBaseURL = "https://api.flutterwave.com/v3"

// New constructs a Flutterwave adapter. Required config: secret_key.
// Optional: webhook_secret (verif-hash; verification fails closed without
// it), base_url.
func New(cfg adapter.Config) (any, error) {
	secretKey := cfg.String("secret_key")
	if secretKey == "" {
		return nil, fmt.Errorf("flutterwave secret_key: %w", adapter.ErrConfiguration)
	}
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		secretKey:     secretKey,
		webhookSecret: cfg.String("webhook_secret"),
		baseURL:       strings.TrimRight(base, "/"),
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type Adapter struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

var (
	_ adapter.PaymentAdapter  = (*Adapter)(nil)
	_ adapter.WebhookVerifier = (*Adapter)(nil)
)

func (a *Adapter) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error) {
	txRef := req.Metadata["reference"]
	if txRef == "" {
		txRef = "gt-" + uuid.NewString()
	}

	meta := map[string]any{}
	for key, value := range req.Metadata {
		meta[key] = value
	}

	payload := map[string]any{
		"tx_ref":       txRef,
		"amount":       req.Amount.String(),
		"currency":     req.Currency,
		"redirect_url": req.ReturnURLs.Success,
		"customer": map[string]any{
			"email":       req.Customer.Email,
			"phonenumber": req.Customer.Phone,
			"name":        req.Customer.Name,
		},
		"meta": meta,
	}

	raw, err := adapter.DoJSON(ctx, a.client, http.MethodPost, a.baseURL+"/payments", a.authHeaders(), payload, "flutterwave", "create_checkout")
	if err != nil {
		return nil, err
	}

	link := ""
	if data, ok := raw["data"].(map[string]any); ok {
		link, _ = data["link"].(string)
	}
	return &adapter.CheckoutSession{
		SessionID: txRef,
		URL:       link,
		TxnRef:    txRef,
		Raw:       raw,
	}, nil
}

func (a *Adapter) Refund(ctx context.Context, req adapter.RefundRequest) (*adapter.RefundResult, error) {
	payload := map[string]any{}
	if req.Amount != nil {
		payload["amount"] = req.Amount.String()
	}
	if req.Reason != "" {
		payload["comments"] = req.Reason
	}

	raw, err := adapter.DoJSON(ctx, a.client, http.MethodPost,
		fmt.Sprintf("%s/transactions/%s/refund", a.baseURL, req.TxnRef),
		a.authHeaders(), payload, "flutterwave", "refund")
	if err != nil {
		return nil, err
	}

	result := &adapter.RefundResult{Raw: raw}
	if data, ok := raw["data"].(map[string]any); ok {
		if id, ok := data["id"].(float64); ok {
			result.RefundID = fmt.Sprintf("%.0f", id)
		}
		result.Status, _ = data["status"].(string)
		if amount, ok := data["amount_refunded"].(float64); ok {
			result.Amount = decimal.NewFromFloat(amount)
		}
		if currency, ok := data["currency"].(string); ok {
			result.Currency = strings.ToUpper(currency)
		}
	}
	return result, nil
}

// VerifyWebhook compares the verif-hash header against the configured secret
// in constant time, which is Flutterwave's documented webhook scheme. Fails
// closed when no secret is configured.
func (a *Adapter) VerifyWebhook(payload []byte, headers adapter.Headers) bool {
	if a.webhookSecret == "" {
		return false
	}
	hash := strings.TrimSpace(headers.Get("verif-hash"))
	if hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(a.webhookSecret)) == 1
}

func (a *Adapter) ParseWebhook(payload []byte, headers adapter.Headers) (*adapter.WebhookEvent, error) {
	var body struct {
		Event string `json:"event"`
		Data  struct {
			ID       json.Number       `json:"id"`
			TxRef    string            `json:"tx_ref"`
			Status   string            `json:"status"`
			Amount   json.Number       `json:"amount"`
			Currency string            `json:"currency"`
			Meta     map[string]string `json:"meta"`
		} `json:"data"`
	}
	decoder := json.NewDecoder(strings.NewReader(string(payload)))
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return nil, fmt.Errorf("flutterwave webhook: %w", err)
	}
	if body.Data.TxRef == "" {
		return nil, fmt.Errorf("flutterwave webhook: missing tx_ref")
	}

	eventType := strings.TrimSpace(body.Event)
	switch {
	case eventType == "charge.completed" && strings.EqualFold(body.Data.Status, "successful"):
		eventType = adapter.EventPaymentSucceeded
	case eventType == "charge.completed":
		eventType = adapter.EventPaymentFailed
	}

	amount := decimal.Zero
	if parsed, err := decimal.NewFromString(body.Data.Amount.String()); err == nil {
		amount = parsed
	}

	raw := map[string]any{}
	_ = json.Unmarshal(payload, &raw)

	return &adapter.WebhookEvent{
		Type:      eventType,
		EventID:   body.Data.ID.String(),
		Status:    body.Data.Status,
		Amount:    amount,
		Currency:  strings.ToUpper(body.Data.Currency),
		TxnRef:    body.Data.TxRef,
		PaymentID: body.Data.Meta["payment_id"],
		Raw:       raw,
	}, nil
}

func (a *Adapter) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.secretKey}
}
