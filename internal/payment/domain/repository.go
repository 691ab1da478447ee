package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the persistence surface for payments and refund requests.
// Methods take the *gorm.DB handle so callers can run them inside a
// transaction. forUpdate requests a row lock where the dialect supports it.
type Repository interface {
	FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Payment, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, gateway, key string, forUpdate bool) (*Payment, error)
	FindPendingForBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID, gateway string, forUpdate bool) (*Payment, error)
	FindByTxnRef(ctx context.Context, db *gorm.DB, gateway, txnRef string, forUpdate bool) (*Payment, error)
	CreatePayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	SavePayment(ctx context.Context, db *gorm.DB, payment *Payment) error

	FindRefund(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*RefundRequest, error)
	CreateRefund(ctx context.Context, db *gorm.DB, refund *RefundRequest) error
	SaveRefund(ctx context.Context, db *gorm.DB, refund *RefundRequest) error
}
