package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/specialist"
	"github.com/Hurricane0017/agri-advisor/schema"
)

// Roadmap is the Generic-mode actionable plan, per spec §4.4 Step 5.
type Roadmap struct {
	ImmediateActions []string
	ShortTermPlan    []string
	LongTermStrategy []string
	MonthlyCalendar  [12]string
}

// Hyperlocal is the Generic-mode locally-grounded guidance, per spec §4.4
// Step 5.
type Hyperlocal struct {
	VarietySuggestions []string
	LocalSuppliers     []string
	MarketLinkages     []string
	ExtensionServices  []string
}

// synthesizeSpecific implements spec §4.4 Step 5's Specific branch: an LLM
// merge of the findings into one farmer-facing answer, falling back to a
// basic concatenation of prose on LLM failure.
func (o *Orchestrator) synthesizeSpecific(ctx context.Context, q query.Query, findings []finding.AgentFinding) string {
	oks := okFindings(findings)

	if o.LLM != nil {
		var sb strings.Builder
		for _, f := range oks {
			fmt.Fprintf(&sb, "[%s] %s\n", f.Agent, f.Prose)
		}
		resp, err := o.LLM.Generate(ctx, []schema.Message{
			schema.NewSystemMessage("Merge these specialist findings into one farmer-facing answer with sections: direct answer, key recommendations, timing, notes."),
			schema.NewHumanMessage(fmt.Sprintf("Question: %s\n\nFindings:\n%s", q.ExtractedQuestion, sb.String())),
		})
		if err == nil {
			if text := strings.TrimSpace(resp.Text()); text != "" {
				return text
			}
		}
	}

	var parts []string
	for _, f := range oks {
		parts = append(parts, f.Prose)
	}
	return strings.Join(parts, " ")
}

// synthesizeGeneric implements spec §4.4 Step 5's Generic branch: three
// artifacts built from the union of specialists' insights and prose.
func (o *Orchestrator) synthesizeGeneric(ctx context.Context, findings []finding.AgentFinding) (string, *Roadmap, *Hyperlocal) {
	oks := okFindings(findings)

	strategy := o.comprehensiveStrategy(ctx, oks)
	roadmap := buildRoadmap(oks)
	hyperlocal := buildHyperlocal(oks)
	return strategy, roadmap, hyperlocal
}

func (o *Orchestrator) comprehensiveStrategy(ctx context.Context, oks []finding.AgentFinding) string {
	var sb strings.Builder
	for _, f := range oks {
		fmt.Fprintf(&sb, "[%s] %s\n", f.Agent, f.Prose)
	}

	if o.LLM != nil {
		resp, err := o.LLM.Generate(ctx, []schema.Message{
			schema.NewSystemMessage("Write a comprehensive season-wide farming strategy drawing on every specialist finding below."),
			schema.NewHumanMessage(sb.String()),
		})
		if err == nil {
			if text := strings.TrimSpace(resp.Text()); text != "" {
				return text
			}
		}
	}
	return sb.String()
}

func buildRoadmap(oks []finding.AgentFinding) *Roadmap {
	r := &Roadmap{}
	for _, f := range oks {
		if actions, ok := f.Insights["required_actions"].([]string); ok {
			r.ImmediateActions = append(r.ImmediateActions, actions...)
		}
		if alerts, ok := f.Insights["alerts"].([]string); ok {
			r.ShortTermPlan = append(r.ShortTermPlan, alerts...)
		}
		if f.Prose != "" {
			r.LongTermStrategy = append(r.LongTermStrategy, fmt.Sprintf("[%s] %s", f.Agent, f.Prose))
		}
	}
	now := time.Now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := range r.MonthlyCalendar {
		r.MonthlyCalendar[i] = first.AddDate(0, i, 0).Format("2006-01")
	}
	return r
}

func buildHyperlocal(oks []finding.AgentFinding) *Hyperlocal {
	h := &Hyperlocal{}
	for _, f := range oks {
		switch f.Agent {
		case string(query.Soil):
			if sr, ok := f.Structured.(specialist.SoilResult); ok {
				h.VarietySuggestions = append(h.VarietySuggestions, sr.Record.CropFit...)
			}
		case string(query.Scheme):
			if priority, ok := f.Insights["priority_schemes"].([]string); ok {
				h.ExtensionServices = append(h.ExtensionServices, priority...)
			}
		}
	}
	return h
}

// finalRewrite implements spec §4.4 Step 6.
func (o *Orchestrator) finalRewrite(ctx context.Context, r OrchestrationResult) string {
	source := r.Answer
	if r.Query.PipelineKind == query.Generic {
		source = r.Strategy
	}
	if source == "" {
		return source
	}

	if o.LLM == nil {
		return source
	}

	addressee := "the farmer"
	if r.Profile.Name != "" {
		addressee = r.Profile.Name
	}
	resp, err := o.LLM.Generate(ctx, []schema.Message{
		schema.NewSystemMessage(fmt.Sprintf("Rewrite this as a coherent, plain-language message addressed to %s.", addressee)),
		schema.NewHumanMessage(source),
	})
	if err != nil {
		return source
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text
	}
	return source
}

func okFindings(findings []finding.AgentFinding) []finding.AgentFinding {
	var oks []finding.AgentFinding
	for _, f := range findings {
		if f.Status == finding.Ok {
			oks = append(oks, f)
		}
	}
	return oks
}
