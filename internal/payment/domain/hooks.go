package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// BookingConfirmer is invoked after a payment settles as SUCCESS. Failures
// are logged by the caller and never fail the webhook.
type BookingConfirmer interface {
	ConfirmOnPayment(ctx context.Context, bookingID snowflake.ID, payment *Payment) error
}

// BookingGuard answers whether a booking can still accept payments.
type BookingGuard interface {
	IsCancelled(ctx context.Context, bookingID snowflake.ID) (bool, error)
}
