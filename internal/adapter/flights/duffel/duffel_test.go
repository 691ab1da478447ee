package duffel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
	"github.com/shopspring/decimal"
)

func TestNewRequiresAccessToken(t *testing.T) {
	if _, err := New(adapter.Config{}); !errors.Is(err, adapter.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSearchNormalizesOffers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/air/offer_requests" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer duffel_test_tok" {
			t.Errorf("missing bearer token")
		}
		if r.Header.Get("Duffel-Version") != "v1" {
			t.Errorf("missing version header")
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}

		fmt.Fprint(w, `{"data":{"offers":[
			{
				"id":"off_1",
				"total_amount":"389.20",
				"total_currency":"usd",
				"owner":{"iata_code":"BA","name":"British Airways"},
				"slices":[{"duration":"PT8H","segments":[{
					"origin":{"iata_code":"NBO"},
					"destination":{"iata_code":"LHR"},
					"marketing_carrier":{"iata_code":"BA"},
					"marketing_carrier_flight_number":"64",
					"departing_at":"2026-09-01T08:00:00Z",
					"arriving_at":"2026-09-01T16:00:00Z"
				}]}]
			},
			{"id":"off_2","total_amount":"100.00","total_currency":"USD","slices":[]}
		]}}`)
	}))
	defer server.Close()

	inst, err := New(adapter.Config{"access_token": "duffel_test_tok", "base_url": server.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := inst.(*Adapter)

	result, err := a.Search(context.Background(), adapter.FlightSearchRequest{
		Origin: "NBO", Destination: "LHR", DepartDate: "2026-09-01", Adults: 2,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Offers) != 1 || result.Skipped != 1 {
		t.Fatalf("expected 1 offer and 1 skipped, got %d/%d", len(result.Offers), result.Skipped)
	}

	offer := result.Offers[0]
	if offer.OfferID != "off_1" {
		t.Fatalf("unexpected offer id %s", offer.OfferID)
	}
	if offer.CarrierCode != "BA" || offer.CarrierName != "British Airways" {
		t.Fatalf("unexpected carrier %s/%s", offer.CarrierCode, offer.CarrierName)
	}
	if !offer.PriceTotal.Equal(decimal.RequireFromString("389.20")) || offer.Currency != "USD" {
		t.Fatalf("unexpected price %s %s", offer.PriceTotal, offer.Currency)
	}
	if offer.Segments[0].FlightNumber != "64" {
		t.Fatalf("unexpected flight number %s", offer.Segments[0].FlightNumber)
	}
}

func TestGetPNRNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	inst, _ := New(adapter.Config{"access_token": "tok", "base_url": server.URL})
	a := inst.(*Adapter)

	pnr, err := a.GetPNR(context.Background(), "ZZZ999", "Doe")
	if err != nil {
		t.Fatalf("get pnr: %v", err)
	}
	if pnr.Status != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", pnr.Status)
	}
}
