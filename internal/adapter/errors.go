package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidName rejects registry names without a single "domain.provider"
	// namespace separator.
	ErrInvalidName = errors.New("adapter name must be namespaced, e.g. \"payments.stripe\"")

	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrCapability reports a registered adapter that does not implement the
	// capability the caller asked for.
	ErrCapability = errors.New("adapter does not implement requested capability")

	// ErrConfiguration means required credentials or settings are absent.
	// Never retried.
	ErrConfiguration = errors.New("adapter configuration missing")

	// ErrAuthentication means a token or credential exchange with the
	// provider failed. The adapter does not retry it.
	ErrAuthentication = errors.New("provider authentication failed")

	// ErrWebhookVerification means a webhook signature check failed; the
	// webhook must be rejected and not processed.
	ErrWebhookVerification = errors.New("webhook signature verification failed")
)

// RequestError carries a non-2xx provider response for a business operation.
type RequestError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: upstream status %d", e.Provider, e.Operation, e.StatusCode)
}

// IsRequestError unwraps err as a *RequestError if possible.
func IsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
