package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGeocode(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		AbortWithError(c, newValidationError("query", "required", "query is required"))
		return
	}

	results, err := s.mapsSvc.Geocode(c.Request.Context(), c.Query("provider"), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleReverseGeocode(c *gin.Context) {
	lat, lng, err := latLngParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, mapErr := s.mapsSvc.ReverseGeocode(c.Request.Context(), c.Query("provider"), lat, lng)
	if mapErr != nil {
		AbortWithError(c, mapErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) handlePlaces(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		AbortWithError(c, newValidationError("query", "required", "query is required"))
		return
	}

	var lat, lng *float64
	if c.Query("lat") != "" || c.Query("lng") != "" {
		parsedLat, parsedLng, err := latLngParams(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		lat, lng = &parsedLat, &parsedLng
	}

	places, err := s.mapsSvc.Places(c.Request.Context(), c.Query("provider"), query, lat, lng)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

func (s *Server) handleDistanceMatrix(c *gin.Context) {
	origins := splitParam(c.Query("origins"))
	destinations := splitParam(c.Query("destinations"))
	if len(origins) == 0 || len(destinations) == 0 {
		AbortWithError(c, newValidationError("query", "required", "origins and destinations are required"))
		return
	}

	matrix, err := s.mapsSvc.DistanceMatrix(c.Request.Context(), c.Query("provider"), origins, destinations, c.Query("mode"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matrix": matrix})
}

func (s *Server) handleStaticMap(c *gin.Context) {
	lat, lng, err := latLngParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	zoom := intQuery(c, "zoom", 12)
	width := intQuery(c, "width", 600)
	height := intQuery(c, "height", 400)

	url, mapErr := s.mapsSvc.StaticMapURL(c.Query("provider"), lat, lng, zoom, width, height)
	if mapErr != nil {
		AbortWithError(c, mapErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func latLngParams(c *gin.Context) (float64, float64, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return 0, 0, newValidationError("lat", "invalid", "lat must be a number")
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return 0, 0, newValidationError("lng", "invalid", "lng must be a number")
	}
	return lat, lng, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}
