// Package google wraps the Google Maps web service APIs (geocoding, places
// text search, distance matrix, static maps).
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/globetrotter-hq/globetrotter/internal/adapter"
)

const Name = "maps.google"

const defaultBaseURL = "https://maps.googleapis.com"

// New constructs a Google Maps adapter. Config: api_key (required),
// base_url override.
func New(cfg adapter.Config) (any, error) {
	key := cfg.String("api_key")
	if key == "" {
		return nil, fmt.Errorf("google maps api_key is required: %w", adapter.ErrConfiguration)
	}
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		apiKey:  key,
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type Adapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ adapter.MapsAdapter = (*Adapter)(nil)

func (a *Adapter) get(ctx context.Context, path string, params url.Values, operation string) (map[string]any, error) {
	params.Set("key", a.apiKey)
	return adapter.DoJSON(ctx, a.client, http.MethodGet,
		a.baseURL+path+"?"+params.Encode(), nil, nil, "google_maps", operation)
}

func (a *Adapter) Geocode(ctx context.Context, query string) ([]adapter.GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", query)
	raw, err := a.get(ctx, "/maps/api/geocode/json", params, "geocode")
	if err != nil {
		return nil, err
	}

	items, _ := raw["results"].([]any)
	results := make([]adapter.GeocodeResult, 0, len(items))
	for _, item := range items {
		if entry, ok := item.(map[string]any); ok {
			results = append(results, geocodeResult(entry))
		}
	}
	return results, nil
}

func (a *Adapter) ReverseGeocode(ctx context.Context, lat, lng float64) (*adapter.GeocodeResult, error) {
	params := url.Values{}
	params.Set("latlng", formatLatLng(lat, lng))
	raw, err := a.get(ctx, "/maps/api/geocode/json", params, "reverse_geocode")
	if err != nil {
		return nil, err
	}

	items, _ := raw["results"].([]any)
	if len(items) == 0 {
		return nil, nil
	}
	entry, ok := items[0].(map[string]any)
	if !ok {
		return nil, nil
	}
	result := geocodeResult(entry)
	return &result, nil
}

func (a *Adapter) Places(ctx context.Context, query string, lat, lng *float64) ([]adapter.Place, error) {
	params := url.Values{}
	params.Set("query", query)
	if lat != nil && lng != nil {
		params.Set("location", formatLatLng(*lat, *lng))
		params.Set("radius", "5000")
	}
	raw, err := a.get(ctx, "/maps/api/place/textsearch/json", params, "places")
	if err != nil {
		return nil, err
	}

	items, _ := raw["results"].([]any)
	places := make([]adapter.Place, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		place := adapter.Place{Raw: entry}
		place.Name, _ = entry["name"].(string)
		place.Address, _ = entry["formatted_address"].(string)
		place.PlaceID, _ = entry["place_id"].(string)
		place.Lat, place.Lng = locationOf(entry)
		places = append(places, place)
	}
	return places, nil
}

func (a *Adapter) DistanceMatrix(ctx context.Context, origins, destinations []string, mode string) (*adapter.DistanceMatrix, error) {
	if mode == "" {
		mode = "driving"
	}
	params := url.Values{}
	params.Set("origins", strings.Join(origins, "|"))
	params.Set("destinations", strings.Join(destinations, "|"))
	params.Set("mode", mode)
	raw, err := a.get(ctx, "/maps/api/distancematrix/json", params, "distance_matrix")
	if err != nil {
		return nil, err
	}

	matrix := &adapter.DistanceMatrix{Raw: raw}
	rows, _ := raw["rows"].([]any)
	for _, row := range rows {
		entry, ok := row.(map[string]any)
		if !ok {
			continue
		}
		out := adapter.DistanceRow{}
		elements, _ := entry["elements"].([]any)
		for _, element := range elements {
			cell, ok := element.(map[string]any)
			if !ok {
				continue
			}
			item := adapter.DistanceElement{}
			item.Status, _ = cell["status"].(string)
			if distance, ok := cell["distance"].(map[string]any); ok {
				item.DistanceMeters = int64Of(distance["value"])
			}
			if duration, ok := cell["duration"].(map[string]any); ok {
				item.DurationSeconds = int64Of(duration["value"])
			}
			out.Elements = append(out.Elements, item)
		}
		matrix.Rows = append(matrix.Rows, out)
	}
	return matrix, nil
}

func (a *Adapter) StaticMapURL(lat, lng float64, zoom, width, height int) string {
	params := url.Values{}
	params.Set("center", formatLatLng(lat, lng))
	params.Set("zoom", strconv.Itoa(zoom))
	params.Set("size", fmt.Sprintf("%dx%d", width, height))
	params.Set("markers", formatLatLng(lat, lng))
	params.Set("key", a.apiKey)
	return a.baseURL + "/maps/api/staticmap?" + params.Encode()
}

func geocodeResult(entry map[string]any) adapter.GeocodeResult {
	result := adapter.GeocodeResult{Raw: entry}
	result.FormattedAddress, _ = entry["formatted_address"].(string)
	result.PlaceID, _ = entry["place_id"].(string)
	result.Lat, result.Lng = locationOf(entry)
	return result
}

func locationOf(entry map[string]any) (float64, float64) {
	geometry, _ := entry["geometry"].(map[string]any)
	if geometry == nil {
		return 0, 0
	}
	location, _ := geometry["location"].(map[string]any)
	if location == nil {
		return 0, 0
	}
	lat, _ := location["lat"].(float64)
	lng, _ := location["lng"].(float64)
	return lat, lng
}

func int64Of(value any) int64 {
	if f, ok := value.(float64); ok {
		return int64(f)
	}
	return 0
}

func formatLatLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
