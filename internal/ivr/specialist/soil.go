package specialist

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/store"
	"github.com/Hurricane0017/agri-advisor/llm"
)

// soilClasses is the closed vocabulary spec §4.3.2 classifies against.
var soilClasses = []string{"alluvial", "black", "desert", "forest", "laterite", "mountain", "peaty", "red", "saline"}

const defaultSoilClass = "alluvial"

// pincodeZoneSoil maps an Indian postal-code zone (the PIN's leading
// digit) to the dominant soil class of that zone, used as the
// state-to-soil fallback table when neither the profile nor the LLM
// yields a class.
var pincodeZoneSoil = map[byte]string{
	'1': "alluvial", // Delhi/Haryana/Punjab/HP/J&K
	'2': "alluvial", // UP/Uttarakhand
	'3': "desert",   // Rajasthan/Gujarat
	'4': "black",    // Maharashtra/MP/Chhattisgarh/Goa
	'5': "red",      // AP/Telangana/Karnataka
	'6': "laterite", // TN/Kerala/Puducherry
	'7': "alluvial", // West Bengal/Odisha/NE states
	'8': "red",      // Bihar/Jharkhand
	'9': "alluvial", // Army Postal Service
}

// SoilResult is the Soil specialist's structured finding payload.
type SoilResult struct {
	SoilClass string
	Record    store.SoilRecord `json:"record,omitempty"`

	// Generic-mode structured profile.
	PHStatus          string   `json:"ph_status,omitempty"`
	WaterRetention     string   `json:"water_retention,omitempty"`
	FertilityClass     string   `json:"fertility_class,omitempty"`
	HazardProfile      string   `json:"hazard_profile,omitempty"`
	PriorityActions    []string `json:"priority_actions,omitempty"`
}

// SoilSpecialist answers soil suitability and amendment questions, per
// spec §4.3.2.
type SoilSpecialist struct {
	LLM   llm.ChatModel
	Store store.SoilStore
}

var _ Specialist = (*SoilSpecialist)(nil)

func (s *SoilSpecialist) Tag() query.Agent { return query.Soil }

func (s *SoilSpecialist) Process(ctx context.Context, queryText string, p profile.FarmerProfile, mode Mode) (finding.AgentFinding, error) {
	class := s.determineClass(ctx, queryText, p)

	record, ok, err := s.Store.Get(ctx, class)
	if err != nil {
		f := nowFinding(query.Soil, mode, finding.Failed)
		f.Err = fmt.Errorf("soil: lookup %s: %w", class, err)
		return f, nil
	}
	if !ok {
		return nowFinding(query.Soil, mode, finding.Empty), nil
	}

	if mode == Generic {
		return s.processGeneric(class, record), nil
	}
	return s.processSpecific(ctx, queryText, class, record), nil
}

func (s *SoilSpecialist) determineClass(ctx context.Context, queryText string, p profile.FarmerProfile) string {
	if p.Soil != "" && isSoilClass(p.Soil) {
		return strings.ToLower(p.Soil)
	}

	var ext struct {
		SoilClass string `json:"soil_class"`
	}
	prompt := fmt.Sprintf("Classify the farmer's soil into exactly one of: %s. Reply with a JSON object {\"soil_class\": \"...\"}.", strings.Join(soilClasses, ", "))
	if askForJSON(ctx, s.LLM, prompt, fmt.Sprintf("Query: %s\nLocation: %s", queryText, p.Pincode), &ext) && isSoilClass(ext.SoilClass) {
		return strings.ToLower(ext.SoilClass)
	}

	if zone, ok := zoneFromPincode(p.Pincode); ok {
		if soil, ok := pincodeZoneSoil[zone]; ok {
			return soil
		}
	}
	return defaultSoilClass
}

func isSoilClass(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range soilClasses {
		if c == s {
			return true
		}
	}
	return false
}

func zoneFromPincode(pincode string) (byte, bool) {
	pincode = strings.TrimSpace(pincode)
	if len(pincode) == 0 {
		return 0, false
	}
	if _, err := strconv.Atoi(pincode[:1]); err != nil {
		return 0, false
	}
	return pincode[0], true
}

func (s *SoilSpecialist) processSpecific(ctx context.Context, queryText, class string, rec store.SoilRecord) finding.AgentFinding {
	prompt := fmt.Sprintf("Soil class: %s. pH range: %.1f-%.1f. Water holding: %.1f%%. Deficient nutrients: %s. Crop fit: %s. Hazards: %s.",
		class, rec.PHMin, rec.PHMax, rec.WaterHoldingPct, strings.Join(rec.DeficientNutrients, ", "), strings.Join(rec.CropFit, ", "), rec.HazardNotes)
	prose, ok := askForText(ctx, s.LLM,
		"Given the farmer's question and soil record, give concise fertilisation, crop-fit, irrigation-strategy, and hazard-mitigation recommendations.",
		fmt.Sprintf("Query: %s\n%s", queryText, prompt))
	if !ok {
		prose = fmt.Sprintf("Soil class %s. Suitable crops: %s. Watch for: %s.", class, strings.Join(rec.CropFit, ", "), rec.HazardNotes)
	}

	f := nowFinding(query.Soil, Specific, finding.Ok)
	f.Structured = SoilResult{SoilClass: class, Record: rec}
	f.Prose = prose
	return f
}

func (s *SoilSpecialist) processGeneric(class string, rec store.SoilRecord) finding.AgentFinding {
	result := SoilResult{
		SoilClass:       class,
		Record:          rec,
		PHStatus:        phStatus(rec.PHMin, rec.PHMax),
		WaterRetention:  waterRetentionClass(rec.WaterHoldingPct),
		FertilityClass:  fertilityClass(len(rec.DeficientNutrients)),
		HazardProfile:   rec.HazardNotes,
		PriorityActions: priorityActions(rec),
	}

	f := nowFinding(query.Soil, Generic, finding.Ok)
	f.Structured = result
	f.Prose = fmt.Sprintf("%s soil, pH %s, %s water retention, %s fertility.", class, result.PHStatus, result.WaterRetention, result.FertilityClass)
	f.Insights = map[string]any{"priority_actions": result.PriorityActions}
	return f
}

func phStatus(min, max float64) string {
	mid := (min + max) / 2
	switch {
	case mid < 6.0:
		return "acidic"
	case mid > 7.5:
		return "alkaline"
	default:
		return "neutral"
	}
}

func waterRetentionClass(pct float64) string {
	switch {
	case pct >= 45:
		return "high"
	case pct >= 25:
		return "moderate"
	default:
		return "low"
	}
}

func fertilityClass(deficientCount int) string {
	switch {
	case deficientCount == 0:
		return "good"
	case deficientCount <= 2:
		return "moderate"
	default:
		return "poor"
	}
}

func priorityActions(rec store.SoilRecord) []string {
	var actions []string
	for _, nutrient := range rec.DeficientNutrients {
		actions = append(actions, fmt.Sprintf("correct %s deficiency", nutrient))
	}
	if rec.HazardNotes != "" {
		actions = append(actions, fmt.Sprintf("mitigate: %s", rec.HazardNotes))
	}
	return actions
}
