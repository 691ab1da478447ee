// Package fake is an in-process flight provider used by local development
// and tests. Searches return deterministic offers and bookings are held in
// memory, keyed by locator.
package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/shopspring/decimal"
)

const Name = "flights.fake"

func New(cfg adapter.Config) (any, error) {
	return &Adapter{
		bookings: map[string]*adapter.FlightBooking{},
	}, nil
}

type Adapter struct {
	mu       sync.Mutex
	sequence int
	bookings map[string]*adapter.FlightBooking
}

var _ adapter.FlightsAdapter = (*Adapter)(nil)

func (a *Adapter) Search(ctx context.Context, req adapter.FlightSearchRequest) (*adapter.FlightSearchResult, error) {
	departure, err := time.Parse("2006-01-02", req.DepartDate)
	if err != nil {
		departure = time.Now().UTC().AddDate(0, 0, 7)
	}
	departure = departure.Add(8 * time.Hour)

	offer := adapter.FlightOffer{
		OfferID:     fmt.Sprintf("fake-%s-%s-%s", strings.ToLower(req.Origin), strings.ToLower(req.Destination), req.DepartDate),
		CarrierCode: "FK",
		CarrierName: "Fake Air",
		Duration:    6 * time.Hour,
		Stops:       0,
		PriceTotal:  decimal.RequireFromString("199.99"),
		Currency:    "USD",
		Segments: []adapter.FlightSegment{{
			CarrierCode:  "FK",
			FlightNumber: "100",
			Origin:       strings.ToUpper(req.Origin),
			Destination:  strings.ToUpper(req.Destination),
			DepartureAt:  departure,
			ArrivalAt:    departure.Add(6 * time.Hour),
		}},
	}
	return &adapter.FlightSearchResult{Offers: []adapter.FlightOffer{offer}}, nil
}

func (a *Adapter) Price(ctx context.Context, offerID string) (*adapter.FlightPrice, error) {
	return &adapter.FlightPrice{
		OfferID:  offerID,
		Total:    decimal.RequireFromString("199.99"),
		Currency: "USD",
	}, nil
}

func (a *Adapter) Book(ctx context.Context, offerID string, passengers []adapter.Passenger, contact adapter.Customer) (*adapter.FlightBooking, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sequence++
	booking := &adapter.FlightBooking{
		Locator: fmt.Sprintf("FK%04d", a.sequence),
		Status:  "CONFIRMED",
		Raw: map[string]any{
			"offer_id":   offerID,
			"passengers": len(passengers),
			"contact":    contact.Email,
		},
	}
	a.bookings[booking.Locator] = booking
	return booking, nil
}

func (a *Adapter) GetPNR(ctx context.Context, locator, lastName string) (*adapter.PNR, error) {
	a.mu.Lock()
	booking, ok := a.bookings[locator]
	a.mu.Unlock()
	if !ok {
		return &adapter.PNR{Locator: locator, Status: "NOT_FOUND"}, nil
	}
	return &adapter.PNR{Locator: locator, Status: booking.Status, Itinerary: booking.Raw}, nil
}
