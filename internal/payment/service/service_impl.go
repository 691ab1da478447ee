package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/globetrotter-hq/globetrotter/internal/locking"
	obsmetrics "github.com/globetrotter-hq/globetrotter/internal/observability/metrics"
	"github.com/globetrotter-hq/globetrotter/internal/payment/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Resolver  *adapter.Resolver
	Repo      domain.Repository
	Locker    locking.Locker
	Confirmer domain.BookingConfirmer `optional:"true"`
	Guard     domain.BookingGuard     `optional:"true"`
	Metrics   *obsmetrics.Metrics     `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	resolver  *adapter.Resolver
	repo      domain.Repository
	locker    locking.Locker
	confirmer domain.BookingConfirmer
	guard     domain.BookingGuard
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		resolver:  p.Resolver,
		repo:      p.Repo,
		locker:    p.Locker,
		confirmer: p.Confirmer,
		guard:     p.Guard,
		metrics:   p.Metrics,
	}
}

type InitiateRequest struct {
	BookingID      *snowflake.ID
	Gateway        string
	Amount         decimal.Decimal
	Currency       string
	Customer       adapter.Customer
	IdempotencyKey string
	Metadata       map[string]string
	ReturnURLs     adapter.ReturnURLs
}

type InitiateResult struct {
	Payment *domain.Payment
	Reused  bool
}

// InitiatePayment creates (or re-uses) a pending payment and opens a checkout
// session with the gateway. Resolution order: idempotency key, then an
// existing pending payment for the same booking and gateway, then a new row.
// The whole resolution runs under the booking-scoped lock plus row locks, so
// two concurrent initiations for one booking collapse to a single payment.
func (s *Service) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	gateway := strings.ToLower(strings.TrimSpace(req.Gateway))
	if gateway == "" {
		return nil, fmt.Errorf("gateway is required: %w", domain.ErrInvalidState)
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	if req.BookingID != nil && s.guard != nil {
		cancelled, err := s.guard.IsCancelled(ctx, *req.BookingID)
		if err != nil {
			return nil, err
		}
		if cancelled {
			return nil, fmt.Errorf("booking is cancelled: %w", domain.ErrInvalidState)
		}
	}

	release, err := s.locker.Acquire(ctx, s.initiationLockKey(req))
	if err != nil {
		return nil, err
	}
	defer release()

	var payment *domain.Payment
	reused := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.IdempotencyKey != "" {
			existing, err := s.repo.FindByIdempotencyKey(ctx, tx, gateway, req.IdempotencyKey, true)
			if err != nil {
				return err
			}
			if existing != nil {
				payment, reused = existing, true
				return nil
			}
		}
		if req.BookingID != nil {
			existing, err := s.repo.FindPendingForBooking(ctx, tx, *req.BookingID, gateway, true)
			if err != nil {
				return err
			}
			if existing != nil {
				payment, reused = existing, true
				return nil
			}
		}

		now := time.Now().UTC()
		payment = &domain.Payment{
			ID:        s.genID.Generate(),
			BookingID: req.BookingID,
			Gateway:   gateway,
			Amount:    req.Amount,
			Currency:  strings.ToUpper(req.Currency),
			Status:    domain.StatusPending,
			Metadata:  datatypes.JSONMap{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			payment.IdempotencyKey = &key
		}
		for k, v := range req.Metadata {
			payment.Metadata[k] = v
		}
		return s.repo.CreatePayment(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}
	if reused {
		return &InitiateResult{Payment: payment, Reused: true}, nil
	}

	gatewayAdapter, err := s.resolver.Payment(gateway)
	if err != nil {
		return nil, err
	}

	checkoutReq := adapter.CheckoutRequest{
		Amount:     req.Amount,
		Currency:   payment.Currency,
		Customer:   req.Customer,
		ReturnURLs: req.ReturnURLs,
		Metadata:   map[string]string{"payment_id": payment.ID.String()},
	}
	for k, v := range req.Metadata {
		checkoutReq.Metadata[k] = v
	}

	session, err := gatewayAdapter.CreateCheckout(ctx, checkoutReq)
	if err != nil {
		payment.Status = domain.StatusFailed
		payment.Metadata["error"] = err.Error()
		payment.UpdatedAt = time.Now().UTC()
		if saveErr := s.repo.SavePayment(ctx, s.db, payment); saveErr != nil {
			s.log.Error("failed to persist checkout failure",
				zap.String("payment_id", payment.ID.String()), zap.Error(saveErr))
		}
		s.recordEvent(gateway, "checkout_failed")
		return nil, err
	}

	txnRef := session.TxnRef
	if txnRef == "" {
		txnRef = session.SessionID
	}
	if txnRef != "" {
		payment.TxnRef = &txnRef
	}
	payment.CheckoutURL = session.URL
	payment.Metadata["adapter_response"] = session.Raw
	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.SavePayment(ctx, s.db, payment); err != nil {
		return nil, err
	}

	s.recordEvent(gateway, "checkout_created")
	s.log.Info("payment initiated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", gateway),
		zap.String("txn_ref", txnRef))
	return &InitiateResult{Payment: payment}, nil
}

func (s *Service) initiationLockKey(req InitiateRequest) string {
	if req.BookingID != nil {
		return "payment:booking:" + req.BookingID.String()
	}
	if req.IdempotencyKey != "" {
		return "payment:key:" + req.IdempotencyKey
	}
	return "payment:anon"
}

type WebhookOutcome struct {
	Payment          *domain.Payment
	EventType        string
	AlreadyProcessed bool
	Orphaned         bool
	Ignored          bool
}

// HandleWebhook verifies, parses and applies one gateway webhook delivery.
// Deliveries that repeat a state the payment already reached short-circuit
// as already processed and do not re-fire the confirmation hook. Events for
// transactions this system never initiated are recorded as orphan payments
// for reconciliation.
func (s *Service) HandleWebhook(ctx context.Context, gateway string, payload []byte, headers adapter.Headers) (*WebhookOutcome, error) {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	gatewayAdapter, err := s.resolver.Payment(gateway)
	if err != nil {
		return nil, err
	}

	if verifier, ok := gatewayAdapter.(adapter.WebhookVerifier); ok {
		if !verifier.VerifyWebhook(payload, headers) {
			s.metrics.RecordWebhookRejected(gateway)
			return nil, fmt.Errorf("%s: %w", gateway, adapter.ErrWebhookVerification)
		}
	}

	event, err := gatewayAdapter.ParseWebhook(payload, headers)
	if err != nil {
		return nil, fmt.Errorf("%s webhook: %w", gateway, err)
	}

	target, known := statusForEvent(event.Type)
	if !known {
		s.log.Info("ignoring unhandled webhook event",
			zap.String("gateway", gateway), zap.String("event_type", event.Type))
		return &WebhookOutcome{EventType: event.Type, Ignored: true}, nil
	}

	outcome := &WebhookOutcome{EventType: event.Type}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		payment, err := s.locatePayment(ctx, tx, gateway, event)
		if err != nil {
			return err
		}
		if payment == nil {
			payment, err = s.createOrphan(ctx, tx, gateway, target, event)
			if err != nil {
				return err
			}
			outcome.Payment = payment
			outcome.Orphaned = true
			return nil
		}

		if payment.Status == target || !payment.Status.CanTransitionTo(target) {
			outcome.Payment = payment
			outcome.AlreadyProcessed = true
			return nil
		}

		payment.Status = target
		if payment.TxnRef == nil && event.TxnRef != "" {
			ref := event.TxnRef
			payment.TxnRef = &ref
		}
		if payment.Metadata == nil {
			payment.Metadata = datatypes.JSONMap{}
		}
		payment.Metadata["last_event"] = map[string]any{
			"type":     event.Type,
			"event_id": event.EventID,
			"raw":      event.Raw,
		}
		payment.UpdatedAt = time.Now().UTC()
		outcome.Payment = payment
		return s.repo.SavePayment(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(gateway, event.Type)

	if !outcome.AlreadyProcessed && target == domain.StatusSuccess &&
		outcome.Payment.BookingID != nil && s.confirmer != nil {
		if err := s.confirmer.ConfirmOnPayment(ctx, *outcome.Payment.BookingID, outcome.Payment); err != nil {
			s.log.Error("booking confirmation hook failed",
				zap.String("payment_id", outcome.Payment.ID.String()),
				zap.String("booking_id", outcome.Payment.BookingID.String()),
				zap.Error(err))
		}
	}

	return outcome, nil
}

func statusForEvent(eventType string) (domain.PaymentStatus, bool) {
	switch eventType {
	case adapter.EventPaymentSucceeded:
		return domain.StatusSuccess, true
	case adapter.EventPaymentFailed:
		return domain.StatusFailed, true
	case adapter.EventPaymentCanceled:
		return domain.StatusCancelled, true
	}
	return "", false
}

// locatePayment resolves a webhook event to a payment row: by gateway
// transaction reference first, then by the payment id the checkout embedded
// in provider metadata.
func (s *Service) locatePayment(ctx context.Context, tx *gorm.DB, gateway string, event *adapter.WebhookEvent) (*domain.Payment, error) {
	payment, err := s.repo.FindByTxnRef(ctx, tx, gateway, event.TxnRef, true)
	if err != nil || payment != nil {
		return payment, err
	}
	if event.PaymentID == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(event.PaymentID)
	if err != nil {
		return nil, nil
	}
	return s.repo.FindPayment(ctx, tx, id, true)
}

func (s *Service) createOrphan(ctx context.Context, tx *gorm.DB, gateway string, status domain.PaymentStatus, event *adapter.WebhookEvent) (*domain.Payment, error) {
	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:       s.genID.Generate(),
		Gateway:  gateway,
		Amount:   event.Amount,
		Currency: event.Currency,
		Status:   status,
		Metadata: datatypes.JSONMap{
			"orphan": true,
			"last_event": map[string]any{
				"type":     event.Type,
				"event_id": event.EventID,
				"raw":      event.Raw,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if event.TxnRef != "" {
		ref := event.TxnRef
		payment.TxnRef = &ref
	}
	s.log.Warn("webhook for unknown transaction, recording orphan payment",
		zap.String("gateway", gateway),
		zap.String("txn_ref", event.TxnRef),
		zap.String("event_type", event.Type))
	return payment, s.repo.CreatePayment(ctx, tx, payment)
}

// RequestRefund opens a refund request against a settled payment.
func (s *Service) RequestRefund(ctx context.Context, paymentID snowflake.ID, amount *decimal.Decimal, reason, requestedBy string) (*domain.RefundRequest, error) {
	payment, err := s.repo.FindPayment(ctx, s.db, paymentID, false)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	if payment.Status != domain.StatusSuccess {
		return nil, fmt.Errorf("refund requires a successful payment: %w", domain.ErrInvalidState)
	}
	if amount != nil && (!amount.IsPositive() || amount.GreaterThan(payment.Amount)) {
		return nil, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	refund := &domain.RefundRequest{
		ID:          s.genID.Generate(),
		PaymentID:   payment.ID,
		Amount:      amount,
		Reason:      reason,
		Status:      domain.RefundPending,
		RequestedBy: requestedBy,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateRefund(ctx, s.db, refund); err != nil {
		return nil, err
	}
	return refund, nil
}

// ApproveRefund moves a pending refund to APPROVED and then calls the
// gateway. The approval is committed before the adapter call on purpose: if
// the call fails or the process dies, the request stays APPROVED with the
// adapter error recorded, never silently re-opened.
func (s *Service) ApproveRefund(ctx context.Context, refundID snowflake.ID, processedBy string) (*domain.RefundRequest, error) {
	var refund *domain.RefundRequest
	var payment *domain.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		refund, err = s.repo.FindRefund(ctx, tx, refundID, true)
		if err != nil {
			return err
		}
		if refund == nil {
			return domain.ErrRefundNotFound
		}
		if refund.Status != domain.RefundPending {
			return fmt.Errorf("refund already %s: %w", refund.Status, domain.ErrInvalidState)
		}
		payment, err = s.repo.FindPayment(ctx, tx, refund.PaymentID, true)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if payment.Status != domain.StatusSuccess {
			return fmt.Errorf("payment is %s: %w", payment.Status, domain.ErrInvalidState)
		}

		refund.Status = domain.RefundApproved
		refund.ProcessedBy = processedBy
		refund.UpdatedAt = time.Now().UTC()
		return s.repo.SaveRefund(ctx, tx, refund)
	})
	if err != nil {
		return nil, err
	}

	gatewayAdapter, err := s.resolver.Payment(payment.Gateway)
	if err != nil {
		return refund, s.annotateRefundError(ctx, refund, err)
	}

	refundReq := adapter.RefundRequest{Amount: refund.Amount, Reason: refund.Reason}
	if payment.TxnRef != nil {
		refundReq.TxnRef = *payment.TxnRef
	}
	result, err := gatewayAdapter.Refund(ctx, refundReq)
	if err != nil {
		return refund, s.annotateRefundError(ctx, refund, err)
	}

	if refund.Metadata == nil {
		refund.Metadata = datatypes.JSONMap{}
	}
	refund.Metadata["refund_response"] = result.Raw
	refund.UpdatedAt = time.Now().UTC()
	if err := s.repo.SaveRefund(ctx, s.db, refund); err != nil {
		return refund, err
	}

	payment.Status = domain.StatusRefunded
	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.SavePayment(ctx, s.db, payment); err != nil {
		return refund, err
	}

	s.recordEvent(payment.Gateway, "refunded")
	return refund, nil
}

func (s *Service) annotateRefundError(ctx context.Context, refund *domain.RefundRequest, cause error) error {
	if refund.Metadata == nil {
		refund.Metadata = datatypes.JSONMap{}
	}
	refund.Metadata["adapter_error"] = cause.Error()
	refund.UpdatedAt = time.Now().UTC()
	if err := s.repo.SaveRefund(ctx, s.db, refund); err != nil {
		s.log.Error("failed to record refund adapter error",
			zap.String("refund_id", refund.ID.String()), zap.Error(err))
	}
	return cause
}

// RejectRefund closes a pending refund request with a reason.
func (s *Service) RejectRefund(ctx context.Context, refundID snowflake.ID, processedBy, reason string) (*domain.RefundRequest, error) {
	var refund *domain.RefundRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		refund, err = s.repo.FindRefund(ctx, tx, refundID, true)
		if err != nil {
			return err
		}
		if refund == nil {
			return domain.ErrRefundNotFound
		}
		if refund.Status != domain.RefundPending {
			return fmt.Errorf("refund already %s: %w", refund.Status, domain.ErrInvalidState)
		}

		refund.Status = domain.RefundRejected
		refund.ProcessedBy = processedBy
		if refund.Metadata == nil {
			refund.Metadata = datatypes.JSONMap{}
		}
		if reason != "" {
			refund.Metadata["rejection_reason"] = reason
		}
		refund.UpdatedAt = time.Now().UTC()
		return s.repo.SaveRefund(ctx, tx, refund)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

func (s *Service) GetPayment(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindPayment(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) recordEvent(gateway, eventType string) {
	s.metrics.RecordPaymentEvent(gateway, eventType)
}
