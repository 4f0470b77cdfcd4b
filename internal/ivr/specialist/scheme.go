package specialist

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Hurricane0017/agri-advisor/config"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/store"
	"github.com/Hurricane0017/agri-advisor/llm"
)

const eligibilityThreshold = 0.6

// SchemeEligibility is one scheme's scored eligibility result.
type SchemeEligibility struct {
	Name            string
	Eligible        bool
	MatchRatio      float64
	HeadlineBenefit string
	ApplicationMode string
	Contact         string
	Documents       []string
	WindowClosesAt  *time.Time
}

// SchemeResult is the Scheme specialist's structured finding payload.
type SchemeResult struct {
	Schemes []SchemeEligibility

	// Generic-mode orchestrator insights.
	PrioritySchemes []string `json:"priority_schemes,omitempty"`
	Urgency         string   `json:"urgency,omitempty"`
	RequiredActions []string `json:"required_actions,omitempty"`
}

// SchemeSpecialist identifies and scores government scheme eligibility,
// per spec §4.3.4.
type SchemeSpecialist struct {
	LLM   llm.ChatModel
	Store store.SchemeStore
	Cfg   config.Config
}

var _ Specialist = (*SchemeSpecialist)(nil)

func (s *SchemeSpecialist) Tag() query.Agent { return query.Scheme }

type schemeCandidates struct {
	Names []string `json:"candidate_schemes"`
}

func (s *SchemeSpecialist) Process(ctx context.Context, queryText string, p profile.FarmerProfile, mode Mode) (finding.AgentFinding, error) {
	all, err := s.Store.All(ctx)
	if err != nil {
		f := nowFinding(query.Scheme, mode, finding.Failed)
		f.Err = fmt.Errorf("scheme: load catalogue: %w", err)
		return f, nil
	}

	candidates := s.identify(ctx, queryText, p, all)
	if len(candidates) == 0 {
		return nowFinding(query.Scheme, mode, finding.Empty), nil
	}

	scored := make([]SchemeEligibility, 0, len(candidates))
	for _, rec := range candidates {
		scored = append(scored, scoreEligibility(rec, p))
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].MatchRatio > scored[j].MatchRatio })

	result := SchemeResult{Schemes: scored}
	if mode == Generic {
		result.PrioritySchemes, result.Urgency, result.RequiredActions = s.insights(scored)
	}

	f := nowFinding(query.Scheme, mode, finding.Ok)
	f.Structured = result
	f.Prose = s.prose(result)
	if mode == Generic {
		f.Insights = map[string]any{
			"priority_schemes": result.PrioritySchemes,
			"urgency":          result.Urgency,
			"required_actions": result.RequiredActions,
		}
	}
	return f, nil
}

func (s *SchemeSpecialist) identify(ctx context.Context, queryText string, p profile.FarmerProfile, all []store.SchemeRecord) []store.SchemeRecord {
	var ext schemeCandidates
	if askForJSON(ctx, s.LLM,
		"List up to five government scheme names potentially relevant to the farmer's query and profile. Reply with a JSON object {\"candidate_schemes\": [\"...\"]}.",
		fmt.Sprintf("Query: %s\nCrops: %s\nLand: %s", queryText, strings.Join(p.Crops, ", "), p.Land),
		&ext) && len(ext.Names) > 0 {
		var matched []store.SchemeRecord
		for _, rec := range all {
			for _, name := range ext.Names {
				if strings.EqualFold(rec.Name, name) {
					matched = append(matched, rec)
					break
				}
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}

	keywords := strings.Fields(queryText)
	matched, err := s.Store.MatchKeyword(ctx, keywords)
	if err != nil {
		return nil
	}
	return matched
}

var landAcresPattern = regexp.MustCompile(`[\d.]+`)

func parseAcres(land string) (float64, bool) {
	m := landAcresPattern.FindString(land)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// scoreEligibility checks each applicable criterion (land ceiling, crop
// coverage; age bracket and farmer segment are skipped when the profile
// carries no such data, per spec §4.3.4's "applicable criteria" scoping)
// and marks eligible when the match ratio is at least eligibilityThreshold.
func scoreEligibility(rec store.SchemeRecord, p profile.FarmerProfile) SchemeEligibility {
	var applicable, matched int

	if rec.LandCeilingAcres > 0 {
		if acres, ok := parseAcres(p.Land); ok {
			applicable++
			if acres <= rec.LandCeilingAcres {
				matched++
			}
		}
	}

	if len(rec.Crops) > 0 && !containsCI(rec.Crops, "any") {
		if len(p.Crops) > 0 {
			applicable++
			if anyMatchCI(rec.Crops, p.Crops) {
				matched++
			}
		}
	}

	ratio := 1.0
	if applicable > 0 {
		ratio = float64(matched) / float64(applicable)
	}

	return SchemeEligibility{
		Name:            rec.Name,
		Eligible:        ratio >= eligibilityThreshold,
		MatchRatio:      ratio,
		HeadlineBenefit: rec.HeadlineBenefit,
		ApplicationMode: rec.ApplicationMode,
		Contact:         rec.Contact,
		Documents:       rec.Documents,
		WindowClosesAt:  rec.WindowClosesAt,
	}
}

func containsCI(list []string, target string) bool {
	for _, v := range list {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func anyMatchCI(list, candidates []string) bool {
	for _, c := range candidates {
		if containsCI(list, c) {
			return true
		}
	}
	return false
}

func (s *SchemeSpecialist) insights(scored []SchemeEligibility) (priority []string, urgency string, actions []string) {
	urgency = "normal"
	now := time.Now().UTC()
	horizon := now.AddDate(0, 0, s.Cfg.SchemeUrgencyHorizonDays)

	for _, sch := range scored {
		if !sch.Eligible {
			continue
		}
		priority = append(priority, sch.Name)
		if sch.WindowClosesAt != nil && sch.WindowClosesAt.Before(horizon) {
			urgency = "high"
			actions = append(actions, fmt.Sprintf("apply for %s before %s", sch.Name, sch.WindowClosesAt.Format("2006-01-02")))
		} else {
			actions = append(actions, fmt.Sprintf("gather documents for %s: %s", sch.Name, strings.Join(sch.Documents, ", ")))
		}
	}
	return priority, urgency, actions
}

func (s *SchemeSpecialist) prose(r SchemeResult) string {
	var sb strings.Builder
	for _, sch := range r.Schemes {
		status := "not eligible"
		if sch.Eligible {
			status = "eligible"
		}
		fmt.Fprintf(&sb, "%s (%s): %s. Apply via %s, contact %s. ", sch.Name, status, sch.HeadlineBenefit, sch.ApplicationMode, sch.Contact)
	}
	return strings.TrimSpace(sb.String())
}
