package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	paymentservice "github.com/globetrotter-hq/globetrotter/internal/payment/service"
	"github.com/shopspring/decimal"
)

type initiatePaymentRequest struct {
	BookingID      string            `json:"booking_id"`
	Gateway        string            `json:"gateway"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	IdempotencyKey string            `json:"idempotency_key"`
	Metadata       map[string]string `json:"metadata"`
	Customer       struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	ReturnURLs struct {
		Success string `json:"success"`
		Cancel  string `json:"cancel"`
	} `json:"return_urls"`
}

func (s *Server) handleInitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be valid JSON"))
		return
	}
	if req.Gateway == "" {
		AbortWithError(c, newValidationError("gateway", "required", "gateway is required"))
		return
	}
	if req.Currency == "" {
		AbortWithError(c, newValidationError("currency", "required", "currency is required"))
		return
	}

	initReq := paymentservice.InitiateRequest{
		Gateway:        req.Gateway,
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
		Customer: adapter.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		ReturnURLs: adapter.ReturnURLs{
			Success: req.ReturnURLs.Success,
			Cancel:  req.ReturnURLs.Cancel,
		},
	}
	if req.BookingID != "" {
		bookingID, err := snowflake.ParseString(req.BookingID)
		if err != nil {
			AbortWithError(c, newValidationError("booking_id", "invalid_id", "booking_id must be a valid id"))
			return
		}
		initReq.BookingID = &bookingID
	}

	result, err := s.paymentSvc.InitiatePayment(c.Request.Context(), initReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"payment": result.Payment,
		"reused":  result.Reused,
	})
}

func (s *Server) handleGetPayment(c *gin.Context) {
	paymentID, err := snowflake.ParseString(c.Param("payment_id"))
	if err != nil {
		AbortWithError(c, newValidationError("payment_id", "invalid_id", "payment_id must be a valid id"))
		return
	}

	payment, err := s.paymentSvc.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

type requestRefundRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Reason      string           `json:"reason"`
	RequestedBy string           `json:"requested_by"`
}

func (s *Server) handleRequestRefund(c *gin.Context) {
	paymentID, err := snowflake.ParseString(c.Param("payment_id"))
	if err != nil {
		AbortWithError(c, newValidationError("payment_id", "invalid_id", "payment_id must be a valid id"))
		return
	}

	var req requestRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	refund, err := s.paymentSvc.RequestRefund(c.Request.Context(), paymentID, req.Amount, req.Reason, req.RequestedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"refund_request": refund})
}

type processRefundRequest struct {
	ProcessedBy string `json:"processed_by"`
	Reason      string `json:"reason"`
}

func (s *Server) handleProcessRefund(c *gin.Context) {
	refundID, err := snowflake.ParseString(c.Param("refund_id"))
	if err != nil {
		AbortWithError(c, newValidationError("refund_id", "invalid_id", "refund_id must be a valid id"))
		return
	}

	var req processRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be valid JSON"))
		return
	}

	switch c.Param("action") {
	case "approve":
		refund, err := s.paymentSvc.ApproveRefund(c.Request.Context(), refundID, req.ProcessedBy)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"refund_request": refund})
	case "reject":
		refund, err := s.paymentSvc.RejectRefund(c.Request.Context(), refundID, req.ProcessedBy, req.Reason)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"refund_request": refund})
	default:
		AbortWithError(c, newValidationError("action", "invalid_action", "action must be approve or reject"))
	}
}
