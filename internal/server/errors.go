package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	bookingdomain "github.com/globetrotter-hq/globetrotter/internal/booking/domain"
	paymentdomain "github.com/globetrotter-hq/globetrotter/internal/payment/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation error"
	}
	return "validation error: " + e.Errors[0].Message
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors attached to the gin context into a
// single JSON error envelope. Handlers call AbortWithError and return; the
// translation to an HTTP status lives here.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var reqErr *adapter.RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: reqErr.Error(),
		}
	}

	switch {
	case errors.Is(err, paymentdomain.ErrInvalidAmount):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "amount", Code: "invalid_amount", Message: "amount must be positive and within the refundable balance"},
			},
		}
	case errors.Is(err, adapter.ErrUnknownAdapter),
		errors.Is(err, adapter.ErrCapability),
		errors.Is(err, adapter.ErrInvalidName):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "provider", Code: "unknown_provider", Message: "unknown or unsupported provider"},
			},
		}
	case errors.Is(err, adapter.ErrWebhookVerification):
		return http.StatusBadRequest, errorPayload{
			Type:    "webhook_verification_failed",
			Message: "webhook signature verification failed",
		}
	case errors.Is(err, paymentdomain.ErrInvalidState):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "operation not allowed in current state",
		}
	case errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrRefundNotFound),
		errors.Is(err, bookingdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, adapter.ErrConfiguration):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "provider is not configured",
		}
	case errors.Is(err, adapter.ErrAuthentication):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "provider authentication failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
