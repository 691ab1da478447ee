package duffel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/shopspring/decimal"
)

const Name = "flights.duffel"

const defaultBaseURL = "https://api.duffel.com"

// New constructs a Duffel adapter. Config: access_token (required),
// base_url override.
func New(cfg adapter.Config) (any, error) {
	token := cfg.String("access_token")
	if token == "" {
		return nil, fmt.Errorf("duffel access_token is required: %w", adapter.ErrConfiguration)
	}
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		accessToken: token,
		baseURL:     strings.TrimRight(base, "/"),
		client:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type Adapter struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

var _ adapter.FlightsAdapter = (*Adapter)(nil)

func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"Authorization":  "Bearer " + a.accessToken,
		"Duffel-Version": "v1",
	}
}

func (a *Adapter) Search(ctx context.Context, req adapter.FlightSearchRequest) (*adapter.FlightSearchResult, error) {
	slices := []map[string]any{{
		"origin":         req.Origin,
		"destination":    req.Destination,
		"departure_date": req.DepartDate,
	}}
	if req.ReturnDate != "" {
		slices = append(slices, map[string]any{
			"origin":         req.Destination,
			"destination":    req.Origin,
			"departure_date": req.ReturnDate,
		})
	}
	passengers := make([]map[string]any, 0, max(req.Adults, 1))
	for i := 0; i < max(req.Adults, 1); i++ {
		passengers = append(passengers, map[string]any{"type": "adult"})
	}

	payload := map[string]any{
		"data": map[string]any{
			"slices":     slices,
			"passengers": passengers,
		},
	}
	if req.Cabin != "" {
		payload["data"].(map[string]any)["cabin_class"] = strings.ToLower(req.Cabin)
	}

	raw, err := adapter.DoJSON(ctx, a.client, http.MethodPost,
		a.baseURL+"/air/offer_requests?return_offers=true", a.headers(), payload, "duffel", "search")
	if err != nil {
		return nil, err
	}

	result := &adapter.FlightSearchResult{Raw: raw}
	data, _ := raw["data"].(map[string]any)
	offers, _ := data["offers"].([]any)
	for _, item := range offers {
		offer, ok := normalizeOffer(item)
		if !ok {
			result.Skipped++
			continue
		}
		result.Offers = append(result.Offers, offer)
	}
	return result, nil
}

func (a *Adapter) Price(ctx context.Context, offerID string) (*adapter.FlightPrice, error) {
	raw, err := adapter.DoJSON(ctx, a.client, http.MethodGet,
		a.baseURL+"/air/offers/"+url.PathEscape(offerID), a.headers(), nil, "duffel", "price")
	if err != nil {
		return nil, err
	}

	price := &adapter.FlightPrice{OfferID: offerID, Raw: raw}
	if data, ok := raw["data"].(map[string]any); ok {
		price.Total = decimalField(data, "total_amount")
		if currency, ok := data["total_currency"].(string); ok {
			price.Currency = strings.ToUpper(currency)
		}
	}
	return price, nil
}

func (a *Adapter) Book(ctx context.Context, offerID string, passengers []adapter.Passenger, contact adapter.Customer) (*adapter.FlightBooking, error) {
	travelers := make([]map[string]any, 0, len(passengers))
	for _, p := range passengers {
		travelers = append(travelers, map[string]any{
			"given_name":   p.FirstName,
			"family_name":  p.LastName,
			"born_on":      p.BirthDate,
			"email":        contact.Email,
			"phone_number": contact.Phone,
			"type":         "adult",
		})
	}

	payload := map[string]any{
		"data": map[string]any{
			"selected_offers": []string{offerID},
			"passengers":      travelers,
			"type":            "instant",
		},
	}
	raw, err := adapter.DoJSON(ctx, a.client, http.MethodPost,
		a.baseURL+"/air/bookings", a.headers(), payload, "duffel", "book")
	if err != nil {
		return nil, err
	}

	booking := &adapter.FlightBooking{Status: "CONFIRMED", Raw: raw}
	if data, ok := raw["data"].(map[string]any); ok {
		booking.Locator, _ = data["booking_reference"].(string)
		if booking.Locator == "" {
			booking.Locator, _ = data["id"].(string)
		}
	}
	if booking.Locator == "" {
		booking.Locator = fmt.Sprintf("DF-%d", time.Now().Unix())
	}
	return booking, nil
}

func (a *Adapter) GetPNR(ctx context.Context, locator, lastName string) (*adapter.PNR, error) {
	raw, err := adapter.DoJSON(ctx, a.client, http.MethodGet,
		a.baseURL+"/air/bookings/"+url.PathEscape(locator), a.headers(), nil, "duffel", "get_pnr")
	if err != nil {
		if re, ok := adapter.IsRequestError(err); ok && re.StatusCode == http.StatusNotFound {
			return &adapter.PNR{Locator: locator, Status: "NOT_FOUND"}, nil
		}
		return nil, err
	}

	itinerary, _ := raw["data"].(map[string]any)
	return &adapter.PNR{Locator: locator, Status: "CONFIRMED", Itinerary: itinerary, Raw: raw}, nil
}

// normalizeOffer maps a Duffel offer into the canonical shape. Offers
// without slices or segments are reported as malformed.
func normalizeOffer(item any) (adapter.FlightOffer, bool) {
	entry, ok := item.(map[string]any)
	if !ok {
		return adapter.FlightOffer{}, false
	}

	slices, _ := entry["slices"].([]any)
	if len(slices) == 0 {
		return adapter.FlightOffer{}, false
	}
	first, ok := slices[0].(map[string]any)
	if !ok {
		return adapter.FlightOffer{}, false
	}
	segments, _ := first["segments"].([]any)
	if len(segments) == 0 {
		return adapter.FlightOffer{}, false
	}

	offer := adapter.FlightOffer{Raw: entry}
	offer.OfferID, _ = entry["id"].(string)
	offer.PriceTotal = decimalField(entry, "total_amount")
	if currency, ok := entry["total_currency"].(string); ok {
		offer.Currency = strings.ToUpper(currency)
	}
	if owner, ok := entry["owner"].(map[string]any); ok {
		offer.CarrierCode, _ = owner["iata_code"].(string)
		offer.CarrierName, _ = owner["name"].(string)
	}
	if text, ok := first["duration"].(string); ok {
		offer.Duration = parseISODuration(text)
	}

	for _, seg := range segments {
		segment, ok := seg.(map[string]any)
		if !ok {
			return adapter.FlightOffer{}, false
		}
		normalized, ok := normalizeSegment(segment)
		if !ok {
			return adapter.FlightOffer{}, false
		}
		offer.Segments = append(offer.Segments, normalized)
	}

	offer.Stops = len(offer.Segments) - 1
	if offer.CarrierCode == "" {
		offer.CarrierCode = offer.Segments[0].CarrierCode
	}
	return offer, true
}

func normalizeSegment(segment map[string]any) (adapter.FlightSegment, bool) {
	origin, _ := segment["origin"].(map[string]any)
	destination, _ := segment["destination"].(map[string]any)
	if origin == nil || destination == nil {
		return adapter.FlightSegment{}, false
	}

	out := adapter.FlightSegment{}
	out.Origin, _ = origin["iata_code"].(string)
	out.Destination, _ = destination["iata_code"].(string)
	if out.Origin == "" || out.Destination == "" {
		return adapter.FlightSegment{}, false
	}

	if carrier, ok := segment["marketing_carrier"].(map[string]any); ok {
		out.CarrierCode, _ = carrier["iata_code"].(string)
	}
	out.FlightNumber, _ = segment["marketing_carrier_flight_number"].(string)
	if at, ok := segment["departing_at"].(string); ok {
		out.DepartureAt = parseTime(at)
	}
	if at, ok := segment["arriving_at"].(string); ok {
		out.ArrivalAt = parseTime(at)
	}
	return out, true
}

func decimalField(entry map[string]any, key string) decimal.Decimal {
	if text, ok := entry[key].(string); ok {
		if parsed, err := decimal.NewFromString(text); err == nil {
			return parsed
		}
	}
	return decimal.Zero
}

func parseTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// parseISODuration handles the "PT5H30M" subset Duffel emits.
func parseISODuration(value string) time.Duration {
	value = strings.TrimPrefix(strings.ToUpper(value), "PT")
	var total time.Duration
	number := ""
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			number += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			n, err := strconv.Atoi(number)
			if err != nil {
				return 0
			}
			switch r {
			case 'H':
				total += time.Duration(n) * time.Hour
			case 'M':
				total += time.Duration(n) * time.Minute
			case 'S':
				total += time.Duration(n) * time.Second
			}
			number = ""
		default:
			return 0
		}
	}
	return total
}
