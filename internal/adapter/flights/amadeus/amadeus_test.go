package amadeus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/shopspring/decimal"
)

const searchResponse = `{
	"data": [
		{
			"id": "offer-1",
			"itineraries": [{
				"duration": "PT5H30M",
				"segments": [
					{"carrierCode":"KQ","number":"101","departure":{"iataCode":"NBO","at":"2026-09-01T08:00:00"},"arrival":{"iataCode":"LHR","at":"2026-09-01T13:30:00"}}
				]
			}],
			"price": {"total": "450.00", "currency": "USD"}
		},
		{
			"id": "offer-2",
			"price": {"total": "300.00", "currency": "USD"}
		},
		{
			"id": "offer-3",
			"itineraries": [{"duration": "PT2H", "segments": []}],
			"price": {"total": "120.00", "currency": "USD"}
		}
	],
	"dictionaries": {"carriers": {"KQ": "Kenya Airways"}}
}`

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	inst, err := New(adapter.Config{
		"client_id":     "cid",
		"client_secret": "csecret",
		"base_url":      baseURL,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := inst.(*Adapter)
	// Isolate the process-wide token cache per test.
	a.tokens = newTokenCache()
	return a
}

func TestSearchSkipsMalformedOffers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			fmt.Fprint(w, `{"access_token":"tok","expires_in":1799}`)
		case "/v2/shopping/flight-offers":
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("missing bearer token")
			}
			fmt.Fprint(w, searchResponse)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	result, err := a.Search(context.Background(), adapter.FlightSearchRequest{
		Origin:      "NBO",
		Destination: "LHR",
		DepartDate:  "2026-09-01",
		Adults:      1,
		Cabin:       "economy",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(result.Offers) != 1 {
		t.Fatalf("expected 1 well-formed offer, got %d", len(result.Offers))
	}
	if result.Skipped != 2 {
		t.Fatalf("expected 2 skipped offers, got %d", result.Skipped)
	}

	offer := result.Offers[0]
	if offer.OfferID != "offer-1" {
		t.Fatalf("unexpected offer id %s", offer.OfferID)
	}
	if offer.CarrierCode != "KQ" || offer.CarrierName != "Kenya Airways" {
		t.Fatalf("unexpected carrier %s/%s", offer.CarrierCode, offer.CarrierName)
	}
	if offer.Stops != 0 {
		t.Fatalf("expected nonstop, got %d stops", offer.Stops)
	}
	if offer.Duration != 5*time.Hour+30*time.Minute {
		t.Fatalf("unexpected duration %s", offer.Duration)
	}
	if !offer.PriceTotal.Equal(decimal.RequireFromString("450.00")) || offer.Currency != "USD" {
		t.Fatalf("unexpected price %s %s", offer.PriceTotal, offer.Currency)
	}
	if offer.Segments[0].Origin != "NBO" || offer.Segments[0].Destination != "LHR" {
		t.Fatalf("unexpected segment endpoints")
	}
	if offer.Segments[0].DepartureAt.IsZero() {
		t.Fatalf("expected departure timestamp")
	}
}

func TestTokenCacheReuseWithinTTL(t *testing.T) {
	var tokenCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			tokenCalls.Add(1)
			fmt.Fprint(w, `{"access_token":"tok","expires_in":1799}`)
		case "/v2/shopping/flight-offers":
			fmt.Fprint(w, `{"data":[]}`)
		}
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	for i := 0; i < 3; i++ {
		if _, err := a.Search(context.Background(), adapter.FlightSearchRequest{
			Origin: "NBO", Destination: "LHR", DepartDate: "2026-09-01",
		}); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}

	if got := tokenCalls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 token fetch within the TTL window, got %d", got)
	}
}

func TestTokenCacheRefreshAfterExpiry(t *testing.T) {
	var tokenCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/security/oauth2/token":
			tokenCalls.Add(1)
			fmt.Fprint(w, `{"access_token":"tok","expires_in":1799}`)
		case "/v2/shopping/flight-offers":
			fmt.Fprint(w, `{"data":[]}`)
		}
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)

	current := time.Now()
	a.tokens.now = func() time.Time { return current }

	if _, err := a.Search(context.Background(), adapter.FlightSearchRequest{Origin: "NBO", Destination: "LHR", DepartDate: "2026-09-01"}); err != nil {
		t.Fatalf("first search: %v", err)
	}

	// Advance past expires_in minus the safety margin.
	current = current.Add(1800 * time.Second)

	if _, err := a.Search(context.Background(), adapter.FlightSearchRequest{Origin: "NBO", Destination: "LHR", DepartDate: "2026-09-01"}); err != nil {
		t.Fatalf("second search: %v", err)
	}

	if got := tokenCalls.Load(); got != 2 {
		t.Fatalf("expected exactly one refresh after expiry, got %d fetches", got)
	}
}

func TestTokenFetchFailureSurfacesAsAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	_, err := a.Search(context.Background(), adapter.FlightSearchRequest{Origin: "NBO", Destination: "LHR", DepartDate: "2026-09-01"})
	if !errors.Is(err, adapter.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestGetPNRNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			fmt.Fprint(w, `{"access_token":"tok","expires_in":1799}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	pnr, err := a.GetPNR(context.Background(), "NOPE123", "Doe")
	if err != nil {
		t.Fatalf("get pnr: %v", err)
	}
	if pnr.Status != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", pnr.Status)
	}
}

func TestParseISODuration(t *testing.T) {
	cases := map[string]time.Duration{
		"PT5H30M": 5*time.Hour + 30*time.Minute,
		"PT2H":    2 * time.Hour,
		"PT45M":   45 * time.Minute,
		"bogus":   0,
	}
	for input, want := range cases {
		if got := parseISODuration(input); got != want {
			t.Fatalf("parseISODuration(%q) = %s, want %s", input, got, want)
		}
	}
}
