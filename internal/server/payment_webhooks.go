package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

// handlePaymentWebhook ingests one gateway delivery. Redeliveries of a state
// the payment already reached still return 200 so gateways stop retrying;
// signature failures return 400 and the event is never applied.
func (s *Server) handlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, newValidationError("body", "unreadable", "could not read request body"))
		return
	}

	outcome, err := s.paymentSvc.HandleWebhook(
		c.Request.Context(),
		c.Param("gateway"),
		payload,
		adapter.NormalizeHeaders(c.Request.Header),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result := gin.H{
		"event_type":        outcome.EventType,
		"already_processed": outcome.AlreadyProcessed,
		"orphaned":          outcome.Orphaned,
		"ignored":           outcome.Ignored,
	}
	if outcome.Payment != nil {
		result["payment_id"] = outcome.Payment.ID.String()
		result["status"] = outcome.Payment.Status
	}
	c.JSON(http.StatusOK, gin.H{
		"detail": "ok",
		"result": result,
	})
}
