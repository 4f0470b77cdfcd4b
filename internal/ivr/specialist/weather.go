package specialist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/Hurricane0017/agri-advisor/config"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/providers/geocode"
	"github.com/Hurricane0017/agri-advisor/internal/providers/weather"
	"github.com/Hurricane0017/agri-advisor/llm"
	"github.com/Hurricane0017/agri-advisor/o11y"
)

// DailySummary aggregates one day's hourly forecast, per spec §4.3.1.
type DailySummary struct {
	Date                time.Time
	TempMeanC           float64
	TempMaxC            float64
	TempMinC            float64
	RainfallSumMM       float64
	HumidityMeanPct     float64
	WindMeanKPH         float64
	WindGustMaxKPH      float64
	SoilMoistureMeanPct float64
}

// WeatherResult is the Weather specialist's structured finding payload.
type WeatherResult struct {
	Location         string
	Daily            []DailySummary
	Alerts           []string
	IrrigationNeed    string
	SafeFieldWorkDays []time.Time
	Season            string `json:"season,omitempty"`
	Stage             string `json:"stage,omitempty"`
}

// WeatherSpecialist answers weather and irrigation questions, per spec
// §4.3.1.
type WeatherSpecialist struct {
	LLM     llm.ChatModel
	Geocode geocode.Provider
	Weather weather.Provider
	Cfg     config.Config
	Logger  *o11y.Logger
}

var _ Specialist = (*WeatherSpecialist)(nil)

func (w *WeatherSpecialist) Tag() query.Agent { return query.Weather }

func (w *WeatherSpecialist) logger() *o11y.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return o11y.NewLogger()
}

type weatherExtraction struct {
	Location  string `json:"location"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (w *WeatherSpecialist) Process(ctx context.Context, queryText string, p profile.FarmerProfile, mode Mode) (finding.AgentFinding, error) {
	if mode == Generic {
		return w.processGeneric(ctx, p)
	}
	return w.processSpecific(ctx, queryText, p)
}

func (w *WeatherSpecialist) processSpecific(ctx context.Context, queryText string, p profile.FarmerProfile) (finding.AgentFinding, error) {
	location, start, end := w.extractRange(ctx, queryText, p)

	coord, err := w.resolveLocation(ctx, location)
	if err != nil {
		w.logger().Warn(ctx, "weather: geocode failed, using configured default", "location", location, "error", err)
		coord = geocode.Coordinate{Lat: w.Cfg.DefaultGeocode.Lat, Lon: w.Cfg.DefaultGeocode.Lon}
	}

	points, err := w.Weather.Hourly(ctx, coord.Lat, coord.Lon, start, end)
	if err != nil {
		f := nowFinding(query.Weather, Specific, finding.Failed)
		f.Err = fmt.Errorf("weather: fetch forecast: %w", err)
		return f, nil
	}
	if len(points) == 0 {
		return nowFinding(query.Weather, Specific, finding.Empty), nil
	}

	daily := aggregateDaily(points)
	result := WeatherResult{
		Location:          location,
		Daily:             daily,
		Alerts:            w.alerts(daily),
		IrrigationNeed:    w.irrigationNeed(daily),
		SafeFieldWorkDays: w.safeFieldWorkDays(daily),
	}

	f := nowFinding(query.Weather, Specific, finding.Ok)
	f.Structured = result
	f.Prose = w.prose(result)
	f.Insights = map[string]any{"alerts": result.Alerts, "irrigation_need": result.IrrigationNeed}
	return f, nil
}

func (w *WeatherSpecialist) processGeneric(ctx context.Context, p profile.FarmerProfile) (finding.AgentFinding, error) {
	now := time.Now().UTC()
	season, stage := seasonAndStage(w.Cfg.Seasons, now)

	location := p.Pincode
	coord, err := w.resolveLocation(ctx, location)
	if err != nil {
		w.logger().Warn(ctx, "weather: geocode failed for generic mode, using configured default", "location", location, "error", err)
		coord = geocode.Coordinate{Lat: w.Cfg.DefaultGeocode.Lat, Lon: w.Cfg.DefaultGeocode.Lon}
	}

	start := now
	end := now.AddDate(0, 0, 7)
	points, err := w.Weather.Hourly(ctx, coord.Lat, coord.Lon, start, end)
	if err != nil {
		f := nowFinding(query.Weather, Generic, finding.Failed)
		f.Err = fmt.Errorf("weather: fetch seasonal forecast: %w", err)
		return f, nil
	}

	daily := aggregateDaily(points)
	result := WeatherResult{
		Location:          location,
		Daily:             daily,
		Alerts:            w.alerts(daily),
		IrrigationNeed:    w.irrigationNeed(daily),
		SafeFieldWorkDays: w.safeFieldWorkDays(daily),
		Season:            season,
		Stage:             stage,
	}

	f := nowFinding(query.Weather, Generic, finding.Ok)
	f.Structured = result
	f.Prose = fmt.Sprintf("Current season: %s, stage: %s. %s", season, stage, w.prose(result))
	f.Insights = map[string]any{
		"season":           season,
		"stage":            stage,
		"seasonal_calendar": w.Cfg.Seasons,
	}
	return f, nil
}

func (w *WeatherSpecialist) extractRange(ctx context.Context, queryText string, p profile.FarmerProfile) (location string, start, end time.Time) {
	now := time.Now().UTC()
	fallbackLocation := p.Pincode
	fallbackStart := now
	fallbackEnd := now.AddDate(0, 0, 7)

	var ext weatherExtraction
	ok := askForJSON(ctx, w.LLM,
		"Extract a location, start_date (YYYY-MM-DD), and end_date (YYYY-MM-DD) from the farmer's query. Reply with a single JSON object with keys location, start_date, end_date.",
		fmt.Sprintf("Query: %s\nFarmer pincode: %s", queryText, p.Pincode),
		&ext)
	if !ok || ext.Location == "" {
		return fallbackLocation, fallbackStart, fallbackEnd
	}

	// The LLM extraction is asked for YYYY-MM-DD but farmers' phrasing
	// ("next Tuesday", "15 July") can leak through as loosely-formatted
	// text; dateparse.ParseIn tolerates that where time.Parse would just
	// fail and silently fall back to the default week-ahead window.
	startT, errS := dateparse.ParseIn(ext.StartDate, time.UTC)
	endT, errE := dateparse.ParseIn(ext.EndDate, time.UTC)
	if errS != nil || errE != nil {
		return ext.Location, fallbackStart, fallbackEnd
	}

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if startT.Before(startOfToday) {
		startT = startOfToday
	}
	horizon := startOfToday.AddDate(0, 0, w.Cfg.ForecastHorizonDays)
	if endT.After(horizon) {
		endT = horizon
	}
	if !endT.After(startT) {
		return ext.Location, fallbackStart, fallbackEnd
	}
	return ext.Location, startT, endT
}

func (w *WeatherSpecialist) resolveLocation(ctx context.Context, location string) (geocode.Coordinate, error) {
	if location == "" {
		return geocode.Coordinate{}, fmt.Errorf("weather: empty location")
	}
	return w.Geocode.Geocode(ctx, location)
}

func aggregateDaily(points []weather.HourlyPoint) []DailySummary {
	byDay := make(map[string][]weather.HourlyPoint)
	var order []string
	for _, pt := range points {
		key := pt.Time.Format("2006-01-02")
		if _, seen := byDay[key]; !seen {
			order = append(order, key)
		}
		byDay[key] = append(byDay[key], pt)
	}
	sort.Strings(order)

	summaries := make([]DailySummary, 0, len(order))
	for _, key := range order {
		pts := byDay[key]
		d, _ := time.Parse("2006-01-02", key)
		s := DailySummary{Date: d, TempMinC: pts[0].TempC, TempMaxC: pts[0].TempC}
		var tempSum, humiditySum, windSum, soilSum float64
		for _, pt := range pts {
			tempSum += pt.TempC
			humiditySum += pt.HumidityPct
			windSum += pt.WindKPH
			soilSum += pt.SoilMoisture
			s.RainfallSumMM += pt.RainfallMM
			if pt.TempC > s.TempMaxC {
				s.TempMaxC = pt.TempC
			}
			if pt.TempC < s.TempMinC {
				s.TempMinC = pt.TempC
			}
			if pt.WindGustKPH > s.WindGustMaxKPH {
				s.WindGustMaxKPH = pt.WindGustKPH
			}
		}
		n := float64(len(pts))
		s.TempMeanC = tempSum / n
		s.HumidityMeanPct = humiditySum / n
		s.WindMeanKPH = windSum / n
		s.SoilMoistureMeanPct = soilSum / n
		summaries = append(summaries, s)
	}
	return summaries
}

func (w *WeatherSpecialist) alerts(daily []DailySummary) []string {
	var alerts []string
	for _, d := range daily {
		day := d.Date.Format("2006-01-02")
		if d.TempMaxC > w.Cfg.HeatWaveMaxC {
			alerts = append(alerts, fmt.Sprintf("heat wave risk on %s (max %.1f°C)", day, d.TempMaxC))
		}
		if d.RainfallSumMM > w.Cfg.HeavyRainMM {
			alerts = append(alerts, fmt.Sprintf("heavy rain risk on %s (%.1f mm)", day, d.RainfallSumMM))
		}
		if d.RainfallSumMM < w.Cfg.DrySpellMM {
			alerts = append(alerts, fmt.Sprintf("dry spell on %s (%.1f mm)", day, d.RainfallSumMM))
		}
		if d.WindGustMaxKPH > w.Cfg.StrongWindKPH {
			alerts = append(alerts, fmt.Sprintf("strong wind risk on %s (gust %.1f kph)", day, d.WindGustMaxKPH))
		}
	}
	return alerts
}

func (w *WeatherSpecialist) irrigationNeed(daily []DailySummary) string {
	var rainTotal, tempSum float64
	for _, d := range daily {
		rainTotal += d.RainfallSumMM
		tempSum += d.TempMeanC
	}
	if len(daily) == 0 {
		return "unknown"
	}
	tempMean := tempSum / float64(len(daily))
	switch {
	case rainTotal < w.Cfg.DrySpellMM && tempMean > w.Cfg.HeatWaveMaxC*0.75:
		return "high"
	case rainTotal < w.Cfg.HeavyRainMM:
		return "medium"
	default:
		return "low"
	}
}

func (w *WeatherSpecialist) safeFieldWorkDays(daily []DailySummary) []time.Time {
	var days []time.Time
	for _, d := range daily {
		if d.RainfallSumMM < 1 && d.WindMeanKPH < w.Cfg.SafeFieldWorkWindKPH {
			days = append(days, d.Date)
		}
	}
	return days
}

func (w *WeatherSpecialist) prose(r WeatherResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Forecast for %s over %d day(s). Irrigation need: %s.", r.Location, len(r.Daily), r.IrrigationNeed)
	if len(r.Alerts) > 0 {
		fmt.Fprintf(&sb, " Alerts: %s.", strings.Join(r.Alerts, "; "))
	}
	if len(r.SafeFieldWorkDays) > 0 {
		days := make([]string, len(r.SafeFieldWorkDays))
		for i, d := range r.SafeFieldWorkDays {
			days[i] = d.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, " Safe field-work days: %s.", strings.Join(days, ", "))
	}
	return sb.String()
}

// seasonAndStage determines the current season and within-season stage
// from month, per spec §4.3.1's Generic mode. Ranges wrap across the year
// boundary when EndMonth < StartMonth.
func seasonAndStage(seasons []config.SeasonConfig, now time.Time) (season, stage string) {
	month := int(now.Month())
	for _, s := range seasons {
		if !monthInRange(month, s.StartMonth, s.EndMonth) {
			continue
		}
		season = s.Name
		for _, st := range s.Stages {
			if monthInRange(month, st.StartMonth, st.EndMonth) {
				stage = st.Name
				break
			}
		}
		return season, stage
	}
	return "unknown", "unknown"
}

func monthInRange(month, start, end int) bool {
	if start <= end {
		return month >= start && month <= end
	}
	// Wraps across the year boundary (e.g. rabi: Nov-Mar).
	return month >= start || month <= end
}
