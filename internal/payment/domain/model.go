package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusSuccess   PaymentStatus = "SUCCESS"
	StatusFailed    PaymentStatus = "FAILED"
	StatusRefunded  PaymentStatus = "REFUNDED"
	StatusCancelled PaymentStatus = "CANCELLED"
)

// IsTerminal reports whether a payment has reached a settled state. The only
// transition out of a terminal state is SUCCESS to REFUNDED.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo enforces the payment state machine.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusSuccess || next == StatusFailed || next == StatusCancelled
	case StatusSuccess:
		return next == StatusRefunded
	}
	return false
}

type Payment struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	BookingID      *snowflake.ID     `json:"booking_id" gorm:"index"`
	Gateway        string            `json:"gateway" gorm:"type:text;not null;uniqueIndex:idx_gateway_txn_ref,priority:1"`
	Amount         decimal.Decimal   `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency       string            `json:"currency" gorm:"type:text;not null"`
	Status         PaymentStatus     `json:"status" gorm:"type:text;not null;index"`
	TxnRef         *string           `json:"txn_ref" gorm:"type:text;uniqueIndex:idx_gateway_txn_ref,priority:2"`
	IdempotencyKey *string           `json:"idempotency_key" gorm:"type:text;uniqueIndex"`
	CheckoutURL    string            `json:"checkout_url" gorm:"type:text"`
	Metadata       datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

type RefundStatus string

const (
	RefundPending  RefundStatus = "PENDING"
	RefundApproved RefundStatus = "APPROVED"
	RefundRejected RefundStatus = "REJECTED"
)

type RefundRequest struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	PaymentID   snowflake.ID      `json:"payment_id" gorm:"not null;index"`
	Amount      *decimal.Decimal  `json:"amount" gorm:"type:decimal(12,2)"`
	Reason      string            `json:"reason" gorm:"type:text"`
	Status      RefundStatus      `json:"status" gorm:"type:text;not null"`
	RequestedBy string            `json:"requested_by" gorm:"type:text"`
	ProcessedBy string            `json:"processed_by" gorm:"type:text"`
	Metadata    datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
}

func (RefundRequest) TableName() string { return "refund_requests" }
