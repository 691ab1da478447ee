package domain

import "errors"

var (
	ErrInvalidState   = errors.New("operation not allowed in current state")
	ErrNotFound       = errors.New("payment not found")
	ErrRefundNotFound = errors.New("refund request not found")
	ErrInvalidAmount  = errors.New("invalid amount")
)
