package mpesa

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/shopspring/decimal"
)

const Name = "payments.mpesa"

const defaultBaseURL = "https://sandbox.safaricom.co.ke"

// New constructs an M-Pesa (Daraja) adapter. The adapter is allowed to be
// built unconfigured; credential checks happen on first use.
func New(cfg adapter.Config) (any, error) {
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		baseURL:        strings.TrimRight(base, "/"),
		consumerKey:    cfg.String("consumer_key"),
		consumerSecret: cfg.String("consumer_secret"),
		shortcode:      cfg.String("shortcode"),
		passkey:        cfg.String("passkey"),
		callbackURL:    cfg.String("callback_url"),
		webhookSecret:  cfg.String("webhook_secret"),
		client:         &http.Client{Timeout: 15 * time.Second},
		now:            time.Now,
	}, nil
}

type Adapter struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	webhookSecret  string
	client         *http.Client
	now            func() time.Time
}

var (
	_ adapter.PaymentAdapter  = (*Adapter)(nil)
	_ adapter.WebhookVerifier = (*Adapter)(nil)
)

func (a *Adapter) accessToken(ctx context.Context) (string, error) {
	if a.consumerKey == "" || a.consumerSecret == "" {
		return "", fmt.Errorf("mpesa consumer credentials: %w", adapter.ErrConfiguration)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.consumerKey, a.consumerSecret)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("mpesa token status %d: %w", resp.StatusCode, adapter.ErrAuthentication)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("mpesa token empty: %w", adapter.ErrAuthentication)
	}
	return out.AccessToken, nil
}

// CreateCheckout issues an STK push. There is no redirect URL; the customer
// approves on their handset and the result arrives via the callback webhook.
func (a *Adapter) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := a.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(a.shortcode + a.passkey + timestamp))

	reference := req.Metadata["reference"]
	if reference == "" {
		reference = "GlobeTrotter"
	}
	description := req.Metadata["description"]
	if description == "" {
		description = "Travel booking"
	}

	payload := map[string]any{
		"BusinessShortCode": a.shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            req.Amount.String(),
		"PartyA":            req.Customer.Phone,
		"PartyB":            a.shortcode,
		"PhoneNumber":       req.Customer.Phone,
		"CallBackURL":       a.callbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   description,
	}

	raw, err := adapter.DoJSON(ctx, a.client, http.MethodPost, a.baseURL+"/mpesa/stkpush/v1/processrequest",
		map[string]string{"Authorization": "Bearer " + token}, payload, "mpesa", "create_checkout")
	if err != nil {
		return nil, err
	}

	checkoutID, _ := raw["CheckoutRequestID"].(string)
	return &adapter.CheckoutSession{
		SessionID: checkoutID,
		TxnRef:    checkoutID,
		Raw:       raw,
	}, nil
}

func (a *Adapter) Refund(ctx context.Context, req adapter.RefundRequest) (*adapter.RefundResult, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"Initiator":              a.shortcode,
		"CommandID":              "TransactionReversal",
		"TransactionID":          req.TxnRef,
		"ReceiverParty":          a.shortcode,
		"RecieverIdentifierType": "11",
		"Remarks":                req.Reason,
		"ResultURL":              a.callbackURL,
		"QueueTimeOutURL":        a.callbackURL,
	}
	if req.Amount != nil {
		payload["Amount"] = req.Amount.String()
	}

	raw, err := adapter.DoJSON(ctx, a.client, http.MethodPost, a.baseURL+"/mpesa/reversal/v1/request",
		map[string]string{"Authorization": "Bearer " + token}, payload, "mpesa", "refund")
	if err != nil {
		return nil, err
	}

	conversationID, _ := raw["ConversationID"].(string)
	desc, _ := raw["ResponseDescription"].(string)
	result := &adapter.RefundResult{
		RefundID: conversationID,
		Status:   desc,
		Raw:      raw,
	}
	if req.Amount != nil {
		result.Amount = *req.Amount
	}
	return result, nil
}

// VerifyWebhook checks the X-MPesa-Signature header against an HMAC-SHA256 of
// the payload. Daraja callbacks have no native signing; the shared secret is
// an optional gateway-level arrangement, so an unconfigured secret passes
// (fail open).
func (a *Adapter) VerifyWebhook(payload []byte, headers adapter.Headers) bool {
	if a.webhookSecret == "" {
		return true
	}
	signature := strings.TrimSpace(headers.Get("x-mpesa-signature"))
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

func (a *Adapter) ParseWebhook(payload []byte, headers adapter.Headers) (*adapter.WebhookEvent, error) {
	var body struct {
		Body struct {
			StkCallback struct {
				MerchantRequestID string `json:"MerchantRequestID"`
				CheckoutRequestID string `json:"CheckoutRequestID"`
				ResultCode        int    `json:"ResultCode"`
				ResultDesc        string `json:"ResultDesc"`
				CallbackMetadata  struct {
					Item []struct {
						Name  string `json:"Name"`
						Value any    `json:"Value"`
					} `json:"Item"`
				} `json:"CallbackMetadata"`
			} `json:"stkCallback"`
		} `json:"Body"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("mpesa webhook: %w", err)
	}
	callback := body.Body.StkCallback
	if callback.CheckoutRequestID == "" {
		return nil, fmt.Errorf("mpesa webhook: missing CheckoutRequestID")
	}

	eventType := adapter.EventPaymentFailed
	switch callback.ResultCode {
	case 0:
		eventType = adapter.EventPaymentSucceeded
	case 1032: // request cancelled by user
		eventType = adapter.EventPaymentCanceled
	}

	amount := decimal.Zero
	for _, item := range callback.CallbackMetadata.Item {
		if item.Name != "Amount" {
			continue
		}
		switch v := item.Value.(type) {
		case float64:
			amount = decimal.NewFromFloat(v)
		case string:
			parsed, err := decimal.NewFromString(v)
			if err == nil {
				amount = parsed
			}
		}
	}

	raw := map[string]any{}
	_ = json.Unmarshal(payload, &raw)

	return &adapter.WebhookEvent{
		Type:     eventType,
		EventID:  callback.MerchantRequestID,
		Status:   callback.ResultDesc,
		Amount:   amount,
		Currency: "KES",
		TxnRef:   callback.CheckoutRequestID,
		Raw:      raw,
	}, nil
}
