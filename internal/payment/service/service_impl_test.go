package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	paymentfake "github.com/globetrotter-hq/globetrotter/internal/adapter/payments/fake"
	"github.com/globetrotter-hq/globetrotter/internal/locking"
	"github.com/globetrotter-hq/globetrotter/internal/payment/domain"
	paymentrepo "github.com/globetrotter-hq/globetrotter/internal/payment/repository"
	"github.com/globetrotter-hq/globetrotter/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// strictAdapter rejects every webhook, for signature-failure paths.
type strictAdapter struct{}

func (strictAdapter) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error) {
	return &adapter.CheckoutSession{SessionID: "strict-1", TxnRef: "strict-1"}, nil
}

func (strictAdapter) Refund(ctx context.Context, req adapter.RefundRequest) (*adapter.RefundResult, error) {
	return &adapter.RefundResult{RefundID: "strict-refund", Status: "success"}, nil
}

func (strictAdapter) VerifyWebhook(payload []byte, headers adapter.Headers) bool { return false }

func (strictAdapter) ParseWebhook(payload []byte, headers adapter.Headers) (*adapter.WebhookEvent, error) {
	return &adapter.WebhookEvent{}, nil
}

type recordingConfirmer struct {
	mu    sync.Mutex
	calls []snowflake.ID
	fail  bool
}

func (c *recordingConfirmer) ConfirmOnPayment(ctx context.Context, bookingID snowflake.ID, payment *domain.Payment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, bookingID)
	if c.fail {
		return errors.New("confirmation blew up")
	}
	return nil
}

type staticGuard struct{ cancelled bool }

func (g staticGuard) IsCancelled(ctx context.Context, bookingID snowflake.ID) (bool, error) {
	return g.cancelled, nil
}

type testEnv struct {
	svc       *Service
	db        *gorm.DB
	confirmer *recordingConfirmer
	node      *snowflake.Node
}

func newTestEnv(t *testing.T, adapterConfigs map[string]adapter.Config) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// In-memory sqlite is per connection; keep the pool at one.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&domain.Payment{}, &domain.RefundRequest{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	registry := adapter.NewRegistry()
	if err := registry.Register(paymentfake.Name, paymentfake.New); err != nil {
		t.Fatalf("register fake: %v", err)
	}
	if err := registry.Register("payments.strict", func(cfg adapter.Config) (any, error) {
		return strictAdapter{}, nil
	}); err != nil {
		t.Fatalf("register strict: %v", err)
	}

	if adapterConfigs == nil {
		adapterConfigs = map[string]adapter.Config{}
	}
	resolver := adapter.NewResolver(registry, adapterConfigs)

	confirmer := &recordingConfirmer{}
	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Resolver:  resolver,
		Repo:      paymentrepo.Provide(),
		Locker:    locking.NewKeyedMutex(),
		Confirmer: confirmer,
	})
	return &testEnv{svc: svc, db: db, confirmer: confirmer, node: node}
}

func (e *testEnv) initiate(t *testing.T, bookingID *snowflake.ID, key string) *domain.Payment {
	t.Helper()
	result, err := e.svc.InitiatePayment(context.Background(), InitiateRequest{
		BookingID:      bookingID,
		Gateway:        "fake",
		Amount:         decimal.RequireFromString("100.00"),
		Currency:       "usd",
		IdempotencyKey: key,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return result.Payment
}

func successWebhook(payment *domain.Payment) []byte {
	ref := ""
	if payment.TxnRef != nil {
		ref = *payment.TxnRef
	}
	return []byte(fmt.Sprintf(
		`{"event":"payment_succeeded","event_id":"evt-1","txn_ref":"%s","amount":"100.00","currency":"USD"}`, ref))
}

func TestInitiatePaymentIdempotencyKeyReuse(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()

	first := env.initiate(t, &bookingID, "key-1")
	if first.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", first.Status)
	}
	if first.TxnRef == nil || first.CheckoutURL == "" {
		t.Fatalf("expected checkout session data on the payment")
	}

	result, err := env.svc.InitiatePayment(context.Background(), InitiateRequest{
		BookingID:      &bookingID,
		Gateway:        "fake",
		Amount:         decimal.RequireFromString("100.00"),
		Currency:       "USD",
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if !result.Reused || result.Payment.ID != first.ID {
		t.Fatalf("expected the same payment back, got %v (reused=%v)", result.Payment.ID, result.Reused)
	}
}

func TestInitiatePaymentIdempotencyKeyScopedToGateway(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()

	first := env.initiate(t, &bookingID, "key-1")

	// Same key against a different gateway must not hand back the other
	// gateway's payment. The key column is globally unique, so the create
	// surfaces as a duplicate-key error instead.
	result, err := env.svc.InitiatePayment(context.Background(), InitiateRequest{
		BookingID:      &bookingID,
		Gateway:        "strict",
		Amount:         decimal.RequireFromString("100.00"),
		Currency:       "USD",
		IdempotencyKey: "key-1",
	})
	if err == nil {
		t.Fatalf("expected cross-gateway key reuse to fail, got payment %v (reused=%v)",
			result.Payment.ID, result.Reused)
	}
	if !db.IsDuplicateKeyErr(err) {
		t.Fatalf("expected a duplicate-key violation, got %v", err)
	}

	reloaded, err := env.svc.GetPayment(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if reloaded.Gateway != "fake" || reloaded.Status != domain.StatusPending {
		t.Fatalf("original payment must be untouched, got %s/%s", reloaded.Gateway, reloaded.Status)
	}
}

func TestInitiatePaymentReusesPendingForBooking(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()

	first := env.initiate(t, &bookingID, "")
	result, err := env.svc.InitiatePayment(context.Background(), InitiateRequest{
		BookingID: &bookingID,
		Gateway:   "fake",
		Amount:    decimal.RequireFromString("100.00"),
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if !result.Reused || result.Payment.ID != first.ID {
		t.Fatalf("expected pending payment reuse, got %v (reused=%v)", result.Payment.ID, result.Reused)
	}
}

func TestInitiatePaymentAdapterFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t, map[string]adapter.Config{
		"payments.fake": {"simulate_failures": true},
	})
	bookingID := env.node.Generate()

	_, err := env.svc.InitiatePayment(context.Background(), InitiateRequest{
		BookingID:      &bookingID,
		Gateway:        "fake",
		Amount:         decimal.RequireFromString("100.00"),
		Currency:       "USD",
		IdempotencyKey: "key-fail",
	})
	if err == nil {
		t.Fatalf("expected adapter failure to surface")
	}
	var reqErr *adapter.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}

	var stored domain.Payment
	if err := env.db.Where("idempotency_key = ?", "key-fail").First(&stored).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if stored.Status != domain.StatusFailed {
		t.Fatalf("expected FAILED, got %s", stored.Status)
	}
	if stored.Metadata["error"] == nil {
		t.Fatalf("expected the adapter error recorded in metadata")
	}
}

func TestInitiatePaymentRejectsCancelledBooking(t *testing.T) {
	env := newTestEnv(t, nil)
	env.svc.guard = staticGuard{cancelled: true}
	bookingID := env.node.Generate()

	_, err := env.svc.InitiatePayment(context.Background(), InitiateRequest{
		BookingID: &bookingID,
		Gateway:   "fake",
		Amount:    decimal.RequireFromString("100.00"),
		Currency:  "USD",
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestInitiatePaymentRejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.InitiatePayment(context.Background(), InitiateRequest{
		Gateway:  "fake",
		Amount:   decimal.Zero,
		Currency: "USD",
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestWebhookSettlesPaymentAndConfirmsBookingOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := env.initiate(t, &bookingID, "")

	payload := successWebhook(payment)
	outcome, err := env.svc.HandleWebhook(context.Background(), "fake", payload, adapter.Headers{})
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if outcome.AlreadyProcessed {
		t.Fatalf("first delivery should not be already processed")
	}
	if outcome.Payment.Status != domain.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", outcome.Payment.Status)
	}
	if len(env.confirmer.calls) != 1 || env.confirmer.calls[0] != bookingID {
		t.Fatalf("expected one confirmation call for the booking, got %v", env.confirmer.calls)
	}

	// Same event delivered again: short circuit, no second confirmation.
	outcome, err = env.svc.HandleWebhook(context.Background(), "fake", payload, adapter.Headers{})
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !outcome.AlreadyProcessed {
		t.Fatalf("expected already_processed on redelivery")
	}
	if len(env.confirmer.calls) != 1 {
		t.Fatalf("confirmation hook re-fired on redelivery")
	}
}

func TestWebhookConfirmationFailureDoesNotFailDelivery(t *testing.T) {
	env := newTestEnv(t, nil)
	env.confirmer.fail = true
	bookingID := env.node.Generate()
	payment := env.initiate(t, &bookingID, "")

	outcome, err := env.svc.HandleWebhook(context.Background(), "fake", successWebhook(payment), adapter.Headers{})
	if err != nil {
		t.Fatalf("delivery should succeed despite hook failure: %v", err)
	}
	if outcome.Payment.Status != domain.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", outcome.Payment.Status)
	}
}

func TestWebhookCancelledEvent(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := env.initiate(t, &bookingID, "")

	payload := []byte(fmt.Sprintf(`{"event":"payment_canceled","txn_ref":"%s"}`, *payment.TxnRef))
	outcome, err := env.svc.HandleWebhook(context.Background(), "fake", payload, adapter.Headers{})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if outcome.Payment.Status != domain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", outcome.Payment.Status)
	}
	if len(env.confirmer.calls) != 0 {
		t.Fatalf("cancellation must not confirm the booking")
	}
}

func TestWebhookUnknownTransactionCreatesOrphan(t *testing.T) {
	env := newTestEnv(t, nil)

	payload := []byte(`{"event":"payment_succeeded","txn_ref":"never-seen","amount":"55.00","currency":"EUR"}`)
	outcome, err := env.svc.HandleWebhook(context.Background(), "fake", payload, adapter.Headers{})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if !outcome.Orphaned {
		t.Fatalf("expected orphan outcome")
	}
	if outcome.Payment.Metadata["orphan"] != true {
		t.Fatalf("expected orphan marker in metadata")
	}
	if outcome.Payment.Status != domain.StatusSuccess {
		t.Fatalf("expected orphan recorded at event status, got %s", outcome.Payment.Status)
	}
}

func TestWebhookVerificationFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.HandleWebhook(context.Background(), "strict", []byte(`{}`), adapter.Headers{})
	if !errors.Is(err, adapter.ErrWebhookVerification) {
		t.Fatalf("expected ErrWebhookVerification, got %v", err)
	}
}

func TestWebhookUnknownEventTypeIsIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := env.initiate(t, &bookingID, "")

	payload := []byte(fmt.Sprintf(`{"event":"payment_method.attached","txn_ref":"%s"}`, *payment.TxnRef))
	outcome, err := env.svc.HandleWebhook(context.Background(), "fake", payload, adapter.Headers{})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if !outcome.Ignored {
		t.Fatalf("expected ignored outcome for unhandled event type")
	}
}

func settle(t *testing.T, env *testEnv, payment *domain.Payment) *domain.Payment {
	t.Helper()
	outcome, err := env.svc.HandleWebhook(context.Background(), "fake", successWebhook(payment), adapter.Headers{})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	return outcome.Payment
}

func TestRefundLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := settle(t, env, env.initiate(t, &bookingID, ""))

	refund, err := env.svc.RequestRefund(context.Background(), payment.ID, nil, "flight cancelled", "agent-7")
	if err != nil {
		t.Fatalf("request refund: %v", err)
	}
	if refund.Status != domain.RefundPending {
		t.Fatalf("expected PENDING refund, got %s", refund.Status)
	}

	approved, err := env.svc.ApproveRefund(context.Background(), refund.ID, "supervisor-1")
	if err != nil {
		t.Fatalf("approve refund: %v", err)
	}
	if approved.Status != domain.RefundApproved || approved.ProcessedBy != "supervisor-1" {
		t.Fatalf("unexpected refund state %+v", approved)
	}
	if approved.Metadata["refund_response"] == nil {
		t.Fatalf("expected gateway response recorded")
	}

	reloaded, err := env.svc.GetPayment(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if reloaded.Status != domain.StatusRefunded {
		t.Fatalf("expected REFUNDED payment, got %s", reloaded.Status)
	}
}

func TestApproveRefundAdapterFailureKeepsApproved(t *testing.T) {
	env := newTestEnv(t, map[string]adapter.Config{
		"payments.fake": {"fail_refunds": true},
	})
	bookingID := env.node.Generate()
	payment := settle(t, env, env.initiate(t, &bookingID, ""))

	refund, err := env.svc.RequestRefund(context.Background(), payment.ID, nil, "schedule change", "agent-7")
	if err != nil {
		t.Fatalf("request refund: %v", err)
	}

	_, err = env.svc.ApproveRefund(context.Background(), refund.ID, "supervisor-1")
	if err == nil {
		t.Fatalf("expected the adapter failure to surface")
	}

	var stored domain.RefundRequest
	if dbErr := env.db.Where("id = ?", refund.ID).First(&stored).Error; dbErr != nil {
		t.Fatalf("load refund: %v", dbErr)
	}
	if stored.Status != domain.RefundApproved {
		t.Fatalf("approval must survive the adapter failure, got %s", stored.Status)
	}
	if stored.ProcessedBy != "supervisor-1" {
		t.Fatalf("expected processed_by persisted before the adapter call")
	}
	if stored.Metadata["adapter_error"] == nil {
		t.Fatalf("expected the adapter error annotated in metadata")
	}

	reloaded, err := env.svc.GetPayment(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if reloaded.Status != domain.StatusSuccess {
		t.Fatalf("payment must stay SUCCESS when the gateway refund failed, got %s", reloaded.Status)
	}
}

func TestApproveRefundRequiresSuccessfulPayment(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := settle(t, env, env.initiate(t, &bookingID, ""))

	first, err := env.svc.RequestRefund(context.Background(), payment.ID, nil, "flight cancelled", "agent-7")
	if err != nil {
		t.Fatalf("first refund request: %v", err)
	}
	second, err := env.svc.RequestRefund(context.Background(), payment.ID, nil, "duplicate request", "agent-8")
	if err != nil {
		t.Fatalf("second refund request: %v", err)
	}

	if _, err := env.svc.ApproveRefund(context.Background(), first.ID, "supervisor-1"); err != nil {
		t.Fatalf("approve first refund: %v", err)
	}

	// The payment is REFUNDED now; approving the second request must not
	// reach the gateway a second time.
	_, err = env.svc.ApproveRefund(context.Background(), second.ID, "supervisor-2")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for a refunded payment, got %v", err)
	}

	var stored domain.RefundRequest
	if dbErr := env.db.Where("id = ?", second.ID).First(&stored).Error; dbErr != nil {
		t.Fatalf("load second refund: %v", dbErr)
	}
	if stored.Status != domain.RefundPending {
		t.Fatalf("rejected approval must leave the refund PENDING, got %s", stored.Status)
	}
	if stored.Metadata["refund_response"] != nil {
		t.Fatalf("no gateway response may be recorded for the rejected approval")
	}
}

func TestRequestRefundRequiresSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := env.initiate(t, &bookingID, "")

	_, err := env.svc.RequestRefund(context.Background(), payment.ID, nil, "changed my mind", "agent-7")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending payment, got %v", err)
	}
}

func TestRejectRefundOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := settle(t, env, env.initiate(t, &bookingID, ""))

	refund, err := env.svc.RequestRefund(context.Background(), payment.ID, nil, "dup", "agent-7")
	if err != nil {
		t.Fatalf("request refund: %v", err)
	}

	rejected, err := env.svc.RejectRefund(context.Background(), refund.ID, "supervisor-1", "duplicate request")
	if err != nil {
		t.Fatalf("reject refund: %v", err)
	}
	if rejected.Status != domain.RefundRejected {
		t.Fatalf("expected REJECTED, got %s", rejected.Status)
	}
	if rejected.Metadata["rejection_reason"] != "duplicate request" {
		t.Fatalf("expected rejection reason recorded")
	}

	if _, err := env.svc.ApproveRefund(context.Background(), refund.ID, "supervisor-2"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState approving a rejected refund, got %v", err)
	}
}

func TestRefundAmountValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	bookingID := env.node.Generate()
	payment := settle(t, env, env.initiate(t, &bookingID, ""))

	over := decimal.RequireFromString("500.00")
	if _, err := env.svc.RequestRefund(context.Background(), payment.ID, &over, "too much", "agent-7"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	partial := decimal.RequireFromString("40.00")
	refund, err := env.svc.RequestRefund(context.Background(), payment.ID, &partial, "partial", "agent-7")
	if err != nil {
		t.Fatalf("partial refund request: %v", err)
	}
	if refund.Amount == nil || !refund.Amount.Equal(partial) {
		t.Fatalf("expected partial amount persisted")
	}
}
