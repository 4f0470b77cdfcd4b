// Package geocode resolves a postal code or place name to coordinates for
// the weather specialist's location lookup.
package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/httpclient"
)

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Provider resolves a free-text location query to a Coordinate.
type Provider interface {
	Geocode(ctx context.Context, query string) (Coordinate, error)
}

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim calls OpenStreetMap's free Nominatim search API.
type Nominatim struct {
	client *httpclient.Client
}

// NewNominatim builds a Nominatim provider. userAgent is required by
// Nominatim's usage policy to identify the calling application.
func NewNominatim(userAgent string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		client: httpclient.New(
			httpclient.WithBaseURL(nominatimBaseURL),
			httpclient.WithTimeout(timeout),
			httpclient.WithHeader("User-Agent", userAgent),
		),
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves query (a postal code or place name) to a coordinate.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Coordinate, error) {
	path := fmt.Sprintf("/search?q=%s&format=json&limit=1", url.QueryEscape(query))

	results, err := httpclient.DoJSON[[]nominatimResult](ctx, n.client, "GET", path, nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geocode: nominatim: %w", err)
	}
	if len(results) == 0 {
		return Coordinate{}, fmt.Errorf("geocode: no match for %q", query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geocode: parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geocode: parse lon: %w", err)
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}
