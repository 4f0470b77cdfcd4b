package specialist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/store"
	"github.com/Hurricane0017/agri-advisor/llm"
)

const (
	pestTopKSpecific = 3
	pestTopKGeneric  = 5
)

// PestFindingEntry is one pest candidate's management recommendation.
type PestFindingEntry struct {
	Name              string
	CulturalControl   string
	BiologicalControl string
	ChemicalControl   string
	MaxCropLossPct    float64
	CostMin, CostMax  float64
}

// PestResult is the Pest specialist's structured finding payload.
type PestResult struct {
	Candidates []PestFindingEntry
	Priority   string // name of the candidate with the highest expected crop loss
}

// PestSpecialist identifies likely pests and their management, per spec
// §4.3.3.
type PestSpecialist struct {
	LLM   llm.ChatModel
	Store store.PestStore
}

var _ Specialist = (*PestSpecialist)(nil)

func (s *PestSpecialist) Tag() query.Agent { return query.Pest }

func (s *PestSpecialist) Process(ctx context.Context, queryText string, p profile.FarmerProfile, mode Mode) (finding.AgentFinding, error) {
	k := pestTopKSpecific
	if mode == Generic {
		k = pestTopKGeneric
	}

	records, err := s.identify(ctx, queryText, p, k)
	if err != nil {
		f := nowFinding(query.Pest, mode, finding.Failed)
		f.Err = err
		return f, nil
	}
	if len(records) == 0 {
		return nowFinding(query.Pest, mode, finding.Empty), nil
	}

	sort.Slice(records, func(i, j int) bool { return records[i].MaxCropLossPct > records[j].MaxCropLossPct })

	entries := make([]PestFindingEntry, len(records))
	for i, r := range records {
		entries[i] = PestFindingEntry{
			Name:              r.Name,
			CulturalControl:   r.CulturalControl,
			BiologicalControl: r.BiologicalControl,
			ChemicalControl:   r.ChemicalControl,
			MaxCropLossPct:    r.MaxCropLossPct,
			CostMin:           r.CostMin,
			CostMax:           r.CostMax,
		}
	}

	result := PestResult{Candidates: entries, Priority: entries[0].Name}
	f := nowFinding(query.Pest, mode, finding.Ok)
	f.Structured = result
	f.Prose = s.prose(result)
	f.Insights = map[string]any{"priority_pest": result.Priority}
	return f, nil
}

type pestCandidates struct {
	Names []string `json:"candidate_pests"`
}

func (s *PestSpecialist) identify(ctx context.Context, queryText string, p profile.FarmerProfile, k int) ([]store.PestRecord, error) {
	var ext pestCandidates
	if askForJSON(ctx, s.LLM,
		"List up to five candidate pest names matching the farmer's described symptoms. Reply with a JSON object {\"candidate_pests\": [\"...\"]}.",
		fmt.Sprintf("Query: %s\nCrops: %s\nSoil: %s", queryText, strings.Join(p.Crops, ", "), p.Soil),
		&ext) && len(ext.Names) > 0 {
		records, err := s.Store.TopByNames(ctx, ext.Names, k)
		if err != nil {
			return nil, fmt.Errorf("pest: lookup by LLM candidates: %w", err)
		}
		if len(records) > 0 {
			return records, nil
		}
	}

	records, err := s.Store.MatchKeyword(ctx, queryText, k)
	if err != nil {
		return nil, fmt.Errorf("pest: keyword match: %w", err)
	}
	if len(records) > 0 {
		return records, nil
	}

	records, err = s.Store.ByCropAndSoil(ctx, p.Crops, p.Soil, k)
	if err != nil {
		return nil, fmt.Errorf("pest: crop/soil fallback: %w", err)
	}
	return records, nil
}

func (s *PestSpecialist) prose(r PestResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Likely pest: %s.", r.Priority)
	for _, c := range r.Candidates {
		fmt.Fprintf(&sb, " %s: cultural=%s, biological=%s, chemical=%s, est. cost ₹%.0f-%.0f.",
			c.Name, c.CulturalControl, c.BiologicalControl, c.ChemicalControl, c.CostMin, c.CostMax)
	}
	return sb.String()
}
