package google

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

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(adapter.Config{}); !errors.Is(err, adapter.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/geocode/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "gk" {
			t.Errorf("expected api key in query")
		}
		if r.URL.Query().Get("address") != "Nairobi" {
			t.Errorf("expected address param, got %q", r.URL.Query().Get("address"))
		}
		fmt.Fprint(w, `{"status":"OK","results":[{
			"formatted_address":"Nairobi, Kenya",
			"place_id":"pid-1",
			"geometry":{"location":{"lat":-1.2921,"lng":36.8219}}
		}]}`)
	}))
	defer server.Close()

	inst, err := New(adapter.Config{"api_key": "gk", "base_url": server.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := inst.(*Adapter)

	results, err := a.Geocode(context.Background(), "Nairobi")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].FormattedAddress != "Nairobi, Kenya" || results[0].PlaceID != "pid-1" {
		t.Fatalf("unexpected result %+v", results[0])
	}
	if results[0].Lat != -1.2921 || results[0].Lng != 36.8219 {
		t.Fatalf("unexpected coordinates %f,%f", results[0].Lat, results[0].Lng)
	}
}

func TestDistanceMatrix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") != "walking" {
			t.Errorf("expected walking mode, got %q", r.URL.Query().Get("mode"))
		}
		fmt.Fprint(w, `{"status":"OK","rows":[{"elements":[
			{"status":"OK","distance":{"value":1250},"duration":{"value":900}},
			{"status":"ZERO_RESULTS"}
		]}]}`)
	}))
	defer server.Close()

	inst, _ := New(adapter.Config{"api_key": "gk", "base_url": server.URL})
	a := inst.(*Adapter)

	matrix, err := a.DistanceMatrix(context.Background(), []string{"Nairobi"}, []string{"Mombasa", "Kisumu"}, "walking")
	if err != nil {
		t.Fatalf("distance matrix: %v", err)
	}
	if len(matrix.Rows) != 1 || len(matrix.Rows[0].Elements) != 2 {
		t.Fatalf("unexpected matrix shape")
	}
	first := matrix.Rows[0].Elements[0]
	if first.DistanceMeters != 1250 || first.DurationSeconds != 900 || first.Status != "OK" {
		t.Fatalf("unexpected element %+v", first)
	}
	if matrix.Rows[0].Elements[1].Status != "ZERO_RESULTS" {
		t.Fatalf("expected ZERO_RESULTS status")
	}
}

func TestStaticMapURL(t *testing.T) {
	inst, _ := New(adapter.Config{"api_key": "gk"})
	a := inst.(*Adapter)

	u := a.StaticMapURL(-1.2921, 36.8219, 12, 640, 480)
	if !strings.HasPrefix(u, defaultBaseURL+"/maps/api/staticmap?") {
		t.Fatalf("unexpected url %s", u)
	}
	for _, fragment := range []string{"zoom=12", "size=640x480", "key=gk"} {
		if !strings.Contains(u, fragment) {
			t.Fatalf("expected %q in %s", fragment, u)
		}
	}
}
