package mapbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

func TestNewRequiresAccessToken(t *testing.T) {
	if _, err := New(adapter.Config{}); !errors.Is(err, adapter.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestReverseGeocodeOrdersLngFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "36.8219,-1.2921") {
			t.Errorf("expected lng,lat ordering in path, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "mb" {
			t.Errorf("expected access token in query")
		}
		fmt.Fprint(w, `{"features":[{
			"id":"place.1",
			"place_name":"Nairobi, Kenya",
			"center":[36.8219,-1.2921]
		}]}`)
	}))
	defer server.Close()

	inst, err := New(adapter.Config{"access_token": "mb", "base_url": server.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := inst.(*Adapter)

	result, err := a.ReverseGeocode(context.Background(), -1.2921, 36.8219)
	if err != nil {
		t.Fatalf("reverse geocode: %v", err)
	}
	if result == nil || result.FormattedAddress != "Nairobi, Kenya" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Lat != -1.2921 || result.Lng != 36.8219 {
		t.Fatalf("unexpected coordinates %f,%f", result.Lat, result.Lng)
	}
}

func TestPlacesSendsProximity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("proximity") != "36.8219,-1.2921" {
			t.Errorf("expected proximity lng,lat, got %q", r.URL.Query().Get("proximity"))
		}
		fmt.Fprint(w, `{"features":[{"id":"poi.1","text":"Java House","place_name":"Java House, Nairobi","center":[36.8,-1.29]}]}`)
	}))
	defer server.Close()

	inst, _ := New(adapter.Config{"access_token": "mb", "base_url": server.URL})
	a := inst.(*Adapter)

	lat, lng := -1.2921, 36.8219
	places, err := a.Places(context.Background(), "coffee", &lat, &lng)
	if err != nil {
		t.Fatalf("places: %v", err)
	}
	if len(places) != 1 || places[0].Name != "Java House" {
		t.Fatalf("unexpected places %+v", places)
	}
}

func TestStaticMapURL(t *testing.T) {
	inst, _ := New(adapter.Config{"access_token": "mb"})
	a := inst.(*Adapter)

	u := a.StaticMapURL(-1.2921, 36.8219, 12, 640, 480)
	if !strings.Contains(u, "/styles/v1/mapbox/streets-v11/static/") {
		t.Fatalf("expected default style in %s", u)
	}
	if !strings.Contains(u, "36.8219,-1.2921,12/640x480") {
		t.Fatalf("expected lng,lat center in %s", u)
	}
	if !strings.Contains(u, "access_token=mb") {
		t.Fatalf("expected access token in %s", u)
	}
}
