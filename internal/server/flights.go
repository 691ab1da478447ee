package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

func (s *Server) handleFlightSearch(c *gin.Context) {
	req := adapter.FlightSearchRequest{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		DepartDate:  c.Query("depart_date"),
		ReturnDate:  c.Query("return_date"),
		Cabin:       c.Query("cabin"),
		Adults:      1,
	}
	if req.Origin == "" || req.Destination == "" || req.DepartDate == "" {
		AbortWithError(c, newValidationError("query", "required", "origin, destination and depart_date are required"))
		return
	}
	if raw := c.Query("adults"); raw != "" {
		adults, err := strconv.Atoi(raw)
		if err != nil || adults < 1 {
			AbortWithError(c, newValidationError("adults", "invalid", "adults must be a positive integer"))
			return
		}
		req.Adults = adults
	}

	result, err := s.flightsSvc.Search(c.Request.Context(), c.Query("provider"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"offers":  result.Offers,
		"skipped": result.Skipped,
	})
}

func (s *Server) handleFlightPrice(c *gin.Context) {
	price, err := s.flightsSvc.Price(c.Request.Context(), c.Query("provider"), c.Param("offer_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": price})
}

type flightBookRequest struct {
	Provider   string `json:"provider"`
	OfferID    string `json:"offer_id"`
	Passengers []struct {
		Type      string `json:"type"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		BirthDate string `json:"birth_date"`
	} `json:"passengers"`
	Contact struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contact"`
}

func (s *Server) handleFlightBook(c *gin.Context) {
	var req flightBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be valid JSON"))
		return
	}
	if req.OfferID == "" {
		AbortWithError(c, newValidationError("offer_id", "required", "offer_id is required"))
		return
	}
	if len(req.Passengers) == 0 {
		AbortWithError(c, newValidationError("passengers", "required", "at least one passenger is required"))
		return
	}

	passengers := make([]adapter.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, adapter.Passenger{
			Type:      p.Type,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			BirthDate: p.BirthDate,
		})
	}
	contact := adapter.Customer{
		Name:  req.Contact.Name,
		Email: req.Contact.Email,
		Phone: req.Contact.Phone,
	}

	booking, err := s.flightsSvc.Book(c.Request.Context(), req.Provider, req.OfferID, passengers, contact)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

func (s *Server) handleGetPNR(c *gin.Context) {
	pnr, err := s.flightsSvc.GetPNR(c.Request.Context(), c.Query("provider"), c.Param("locator"), c.Query("last_name"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pnr": pnr})
}
