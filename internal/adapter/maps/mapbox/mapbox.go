// Package mapbox wraps the Mapbox geocoding, directions-matrix and static
// image APIs. Mapbox orders coordinates longitude first.
package mapbox

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

const Name = "maps.mapbox"

const (
	defaultBaseURL = "https://api.mapbox.com"
	defaultStyle   = "streets-v11"
)

// New constructs a Mapbox adapter. Config: access_token (required), style
// (static map style, default streets-v11), base_url override.
func New(cfg adapter.Config) (any, error) {
	token := cfg.String("access_token")
	if token == "" {
		return nil, fmt.Errorf("mapbox access_token is required: %w", adapter.ErrConfiguration)
	}
	style := cfg.String("style")
	if style == "" {
		style = defaultStyle
	}
	base := cfg.String("base_url")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		accessToken: token,
		style:       style,
		baseURL:     strings.TrimRight(base, "/"),
		client:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type Adapter struct {
	accessToken string
	style       string
	baseURL     string
	client      *http.Client
}

var _ adapter.MapsAdapter = (*Adapter)(nil)

func (a *Adapter) get(ctx context.Context, path string, params url.Values, operation string) (map[string]any, error) {
	params.Set("access_token", a.accessToken)
	return adapter.DoJSON(ctx, a.client, http.MethodGet,
		a.baseURL+path+"?"+params.Encode(), nil, nil, "mapbox", operation)
}

func (a *Adapter) Geocode(ctx context.Context, query string) ([]adapter.GeocodeResult, error) {
	raw, err := a.get(ctx, "/geocoding/v5/mapbox.places/"+url.PathEscape(query)+".json", url.Values{}, "geocode")
	if err != nil {
		return nil, err
	}

	features, _ := raw["features"].([]any)
	results := make([]adapter.GeocodeResult, 0, len(features))
	for _, feature := range features {
		if entry, ok := feature.(map[string]any); ok {
			results = append(results, featureResult(entry))
		}
	}
	return results, nil
}

func (a *Adapter) ReverseGeocode(ctx context.Context, lat, lng float64) (*adapter.GeocodeResult, error) {
	query := formatLngLat(lng, lat)
	raw, err := a.get(ctx, "/geocoding/v5/mapbox.places/"+url.PathEscape(query)+".json", url.Values{}, "reverse_geocode")
	if err != nil {
		return nil, err
	}

	features, _ := raw["features"].([]any)
	if len(features) == 0 {
		return nil, nil
	}
	entry, ok := features[0].(map[string]any)
	if !ok {
		return nil, nil
	}
	result := featureResult(entry)
	return &result, nil
}

func (a *Adapter) Places(ctx context.Context, query string, lat, lng *float64) ([]adapter.Place, error) {
	params := url.Values{}
	params.Set("types", "poi")
	if lat != nil && lng != nil {
		params.Set("proximity", formatLngLat(*lng, *lat))
	}
	raw, err := a.get(ctx, "/geocoding/v5/mapbox.places/"+url.PathEscape(query)+".json", params, "places")
	if err != nil {
		return nil, err
	}

	features, _ := raw["features"].([]any)
	places := make([]adapter.Place, 0, len(features))
	for _, feature := range features {
		entry, ok := feature.(map[string]any)
		if !ok {
			continue
		}
		place := adapter.Place{Raw: entry}
		place.Name, _ = entry["text"].(string)
		place.Address, _ = entry["place_name"].(string)
		place.PlaceID, _ = entry["id"].(string)
		place.Lng, place.Lat = centerOf(entry)
		places = append(places, place)
	}
	return places, nil
}

func (a *Adapter) DistanceMatrix(ctx context.Context, origins, destinations []string, mode string) (*adapter.DistanceMatrix, error) {
	profile := "driving"
	switch mode {
	case "walking", "cycling", "driving":
		profile = mode
	}

	coordinates := append(append([]string{}, origins...), destinations...)
	sources := make([]string, 0, len(origins))
	for i := range origins {
		sources = append(sources, strconv.Itoa(i))
	}
	dests := make([]string, 0, len(destinations))
	for i := range destinations {
		dests = append(dests, strconv.Itoa(len(origins)+i))
	}

	params := url.Values{}
	params.Set("sources", strings.Join(sources, ";"))
	params.Set("destinations", strings.Join(dests, ";"))
	params.Set("annotations", "distance,duration")

	raw, err := a.get(ctx, "/directions-matrix/v1/mapbox/"+profile+"/"+url.PathEscape(strings.Join(coordinates, ";")), params, "distance_matrix")
	if err != nil {
		return nil, err
	}

	matrix := &adapter.DistanceMatrix{Raw: raw}
	distances, _ := raw["distances"].([]any)
	durations, _ := raw["durations"].([]any)
	for i, row := range distances {
		cells, _ := row.([]any)
		out := adapter.DistanceRow{}
		var durationCells []any
		if i < len(durations) {
			durationCells, _ = durations[i].([]any)
		}
		for j, cell := range cells {
			item := adapter.DistanceElement{Status: "OK"}
			if meters, ok := cell.(float64); ok {
				item.DistanceMeters = int64(meters)
			} else {
				item.Status = "NOT_FOUND"
			}
			if j < len(durationCells) {
				if seconds, ok := durationCells[j].(float64); ok {
					item.DurationSeconds = int64(seconds)
				}
			}
			out.Elements = append(out.Elements, item)
		}
		matrix.Rows = append(matrix.Rows, out)
	}
	return matrix, nil
}

func (a *Adapter) StaticMapURL(lat, lng float64, zoom, width, height int) string {
	pin := "pin-s+ff0000(" + formatLngLat(lng, lat) + ")"
	return fmt.Sprintf("%s/styles/v1/mapbox/%s/static/%s/%s,%d/%dx%d?access_token=%s",
		a.baseURL, a.style, url.PathEscape(pin), formatLngLat(lng, lat), zoom, width, height, url.QueryEscape(a.accessToken))
}

func featureResult(entry map[string]any) adapter.GeocodeResult {
	result := adapter.GeocodeResult{Raw: entry}
	result.FormattedAddress, _ = entry["place_name"].(string)
	result.PlaceID, _ = entry["id"].(string)
	result.Lng, result.Lat = centerOf(entry)
	return result
}

func centerOf(entry map[string]any) (lng, lat float64) {
	center, _ := entry["center"].([]any)
	if len(center) != 2 {
		return 0, 0
	}
	lng, _ = center[0].(float64)
	lat, _ = center[1].(float64)
	return lng, lat
}

func formatLngLat(lng, lat float64) string {
	return strconv.FormatFloat(lng, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
}
