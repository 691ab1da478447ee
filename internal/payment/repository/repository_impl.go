package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/globetrotter-hq/globetrotter/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// lockForUpdate adds FOR UPDATE on dialects that support it. SQLite runs
// single-writer, so the clause is skipped there.
func lockForUpdate(db *gorm.DB, forUpdate bool) *gorm.DB {
	if !forUpdate || db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Payment, error) {
	var payment domain.Payment
	err := lockForUpdate(db.WithContext(ctx), forUpdate).
		Where("id = ?", id).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, gateway, key string, forUpdate bool) (*domain.Payment, error) {
	var payment domain.Payment
	err := lockForUpdate(db.WithContext(ctx), forUpdate).
		Where("gateway = ? AND idempotency_key = ?", gateway, key).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindPendingForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, gateway string, forUpdate bool) (*domain.Payment, error) {
	var payment domain.Payment
	err := lockForUpdate(db.WithContext(ctx), forUpdate).
		Where("booking_id = ? AND gateway = ? AND status = ?", bookingID, gateway, domain.StatusPending).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindByTxnRef(ctx context.Context, db *gorm.DB, gateway, txnRef string, forUpdate bool) (*domain.Payment, error) {
	if txnRef == "" {
		return nil, nil
	}
	var payment domain.Payment
	err := lockForUpdate(db.WithContext(ctx), forUpdate).
		Where("gateway = ? AND txn_ref = ?", gateway, txnRef).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) CreatePayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) SavePayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Save(payment).Error
}

func (r *repo) FindRefund(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.RefundRequest, error) {
	var refund domain.RefundRequest
	err := lockForUpdate(db.WithContext(ctx), forUpdate).
		Where("id = ?", id).
		First(&refund).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repo) CreateRefund(ctx context.Context, db *gorm.DB, refund *domain.RefundRequest) error {
	return db.WithContext(ctx).Create(refund).Error
}

func (r *repo) SaveRefund(ctx context.Context, db *gorm.DB, refund *domain.RefundRequest) error {
	return db.WithContext(ctx).Save(refund).Error
}
