package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmontero/cambiomap/internal/core/domain"
)

// Nominatim implements ports.Geocoder against a Nominatim-compatible
// endpoint. The public OSM instance is the default; self-hosted instances
// work unchanged.
type Nominatim struct {
	baseURL string
	http    *http.Client
}

// New creates a geocoder client.
func New(baseURL string, timeoutSeconds int) *Nominatim {
	return &Nominatim{
		baseURL: baseURL,
		http:    &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a free-text place name to its best-match coordinate.
func (n *Nominatim) Geocode(ctx context.Context, text string) (domain.Coordinate, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("format", "json")
	params.Set("limit", "1")

	var results []nominatimResult
	if err := n.get(ctx, "/search?"+params.Encode(), &results); err != nil {
		return domain.Coordinate{}, err
	}
	if len(results) == 0 {
		return domain.Coordinate{}, fmt.Errorf("geocode: no match for %q", text)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("geocode: bad latitude %q", results[0].Lat)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("geocode: bad longitude %q", results[0].Lon)
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, nil
}

// ReverseGeocode resolves a coordinate to a display name.
func (n *Nominatim) ReverseGeocode(ctx context.Context, c domain.Coordinate) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))
	params.Set("format", "json")

	var result nominatimResult
	if err := n.get(ctx, "/reverse?"+params.Encode(), &result); err != nil {
		return "", err
	}
	if result.DisplayName == "" {
		return "", fmt.Errorf("reverse geocode: no name for (%f, %f)", c.Lat, c.Lng)
	}
	return result.DisplayName, nil
}

func (n *Nominatim) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("geocode: build request: %w", err)
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", "cambiomap-gateway/1.0")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("geocode: decode: %w", err)
	}
	return nil
}
