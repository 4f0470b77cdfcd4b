// Package weather fetches hourly forecast data for a coordinate and date
// range. The weather specialist aggregates the hourly series into daily
// summaries; this package only owns the external HTTP round-trip.
package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/httpclient"
)

// HourlyPoint is one hour of forecast data for a single coordinate.
type HourlyPoint struct {
	Time         time.Time
	TempC        float64
	RainfallMM   float64
	HumidityPct  float64
	WindKPH      float64
	WindGustKPH  float64
	SoilMoisture float64
}

// Provider fetches hourly weather data for a coordinate and date range.
type Provider interface {
	Hourly(ctx context.Context, lat, lon float64, start, end time.Time) ([]HourlyPoint, error)
}

const openMeteoBaseURL = "https://api.open-meteo.com"

// OpenMeteo calls the free open-meteo.com forecast API, which needs no API
// key and covers the hourly variables the weather specialist aggregates.
type OpenMeteo struct {
	client *httpclient.Client
}

// NewOpenMeteo builds an OpenMeteo provider with the given request timeout.
func NewOpenMeteo(timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{
		client: httpclient.New(
			httpclient.WithBaseURL(openMeteoBaseURL),
			httpclient.WithTimeout(timeout),
			httpclient.WithRetries(2),
		),
	}
}

type openMeteoResponse struct {
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature2m []float64 `json:"temperature_2m"`
		Precipitation []float64 `json:"precipitation"`
		Humidity      []float64 `json:"relative_humidity_2m"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
		WindGusts     []float64 `json:"wind_gusts_10m"`
		SoilMoisture  []float64 `json:"soil_moisture_0_to_1cm"`
	} `json:"hourly"`
}

// Hourly fetches the hourly forecast for [start, end] (inclusive, UTC
// dates) at the given coordinate.
func (o *OpenMeteo) Hourly(ctx context.Context, lat, lon float64, start, end time.Time) ([]HourlyPoint, error) {
	path := fmt.Sprintf(
		"/v1/forecast?latitude=%.5f&longitude=%.5f&start_date=%s&end_date=%s&"+
			"hourly=temperature_2m,precipitation,relative_humidity_2m,wind_speed_10m,wind_gusts_10m,soil_moisture_0_to_1cm&"+
			"wind_speed_unit=kmh&timezone=UTC",
		lat, lon, start.Format("2006-01-02"), end.Format("2006-01-02"),
	)

	resp, err := httpclient.DoJSON[openMeteoResponse](ctx, o.client, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: open-meteo: %w", err)
	}

	points := make([]HourlyPoint, 0, len(resp.Hourly.Time))
	for i, ts := range resp.Hourly.Time {
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		p := HourlyPoint{Time: t}
		if i < len(resp.Hourly.Temperature2m) {
			p.TempC = resp.Hourly.Temperature2m[i]
		}
		if i < len(resp.Hourly.Precipitation) {
			p.RainfallMM = resp.Hourly.Precipitation[i]
		}
		if i < len(resp.Hourly.Humidity) {
			p.HumidityPct = resp.Hourly.Humidity[i]
		}
		if i < len(resp.Hourly.WindSpeed) {
			p.WindKPH = resp.Hourly.WindSpeed[i]
		}
		if i < len(resp.Hourly.WindGusts) {
			p.WindGustKPH = resp.Hourly.WindGusts[i]
		}
		if i < len(resp.Hourly.SoilMoisture) {
			p.SoilMoisture = resp.Hourly.SoilMoisture[i]
		}
		points = append(points, p)
	}
	return points, nil
}
