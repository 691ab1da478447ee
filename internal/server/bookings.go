package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleGetBooking(c *gin.Context) {
	bookingID, err := snowflake.ParseString(c.Param("booking_id"))
	if err != nil {
		AbortWithError(c, newValidationError("booking_id", "invalid_id", "booking_id must be a valid id"))
		return
	}

	booking, err := s.bookingSvc.Get(c.Request.Context(), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
