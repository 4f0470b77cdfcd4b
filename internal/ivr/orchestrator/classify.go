package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/transcript"
	"github.com/Hurricane0017/agri-advisor/internal/jsonutil"
	"github.com/Hurricane0017/agri-advisor/schema"
)

const rawTextFallbackChars = 200

// keywordAgents maps tokens that commonly signal one specialist to its
// agent tag, for the classification fallback when LLM parsing fails.
var keywordAgents = map[string]query.Agent{
	"weather": query.Weather, "rain": query.Weather, "irrigation": query.Weather,
	"forecast": query.Weather, "humidity": query.Weather, "storm": query.Weather,
	"soil": query.Soil, "fertiliser": query.Soil, "fertilizer": query.Soil, "ph": query.Soil,
	"pest": query.Pest, "insect": query.Pest, "worm": query.Pest, "disease": query.Pest, "bug": query.Pest,
	"scheme": query.Scheme, "subsidy": query.Scheme, "loan": query.Scheme, "yojana": query.Scheme, "kisan": query.Scheme,
}

// extractQuery implements spec §4.4 Step 2.
func (o *Orchestrator) extractQuery(ctx context.Context, t transcript.Transcript, p profile.FarmerProfile) query.Query {
	raw := t.SourceText()
	q := query.Query{RawText: raw, ExtractedQuestion: truncate(raw, rawTextFallbackChars)}

	if o.LLM != nil {
		resp, err := o.LLM.Generate(ctx, []schema.Message{
			schema.NewSystemMessage("Reduce the farmer's call to a single focused question. If multiple concerns are present, keep the most urgent one. Reply with plain text, no preamble."),
			schema.NewHumanMessage(raw),
		})
		if err == nil {
			if text := strings.TrimSpace(resp.Text()); text != "" {
				q.ExtractedQuestion = text
			}
		}
	}

	kind, agents, confidence, urgency, complexity := o.classify(ctx, q.ExtractedQuestion)
	q.PipelineKind = kind
	q.RequiredAgents = agents
	q.Confidence = confidence
	q.Urgency = urgency
	q.Complexity = complexity
	return q
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type classification struct {
	PipelineKind   string   `json:"pipeline_kind"`
	Reasoning      string   `json:"reasoning"`
	Confidence     float64  `json:"confidence"`
	RequiredAgents []string `json:"required_agents"`
	Urgency        string   `json:"urgency"`
	Complexity     string   `json:"complexity"`
}

// classify implements spec §4.4 Step 3: LLM classification with a
// balanced-JSON parse, falling back to keyword matching on any failure.
func (o *Orchestrator) classify(ctx context.Context, question string) (query.PipelineKind, []query.Agent, float64, string, string) {
	if o.LLM != nil {
		resp, err := o.LLM.Generate(ctx, []schema.Message{
			schema.NewSystemMessage("Classify the farmer's question as \"specific\" (one or two specialists suffice) or \"generic\" (comprehensive guidance needed). Reply with a JSON object: {\"pipeline_kind\": \"specific\"|\"generic\", \"reasoning\": \"...\", \"confidence\": 0.0-1.0, \"required_agents\": [\"weather\"|\"soil\"|\"pest\"|\"scheme\", ...], \"urgency\": \"...\", \"complexity\": \"...\"}."),
			schema.NewHumanMessage(question),
		})
		if err == nil {
			if obj, ok := jsonutil.ExtractBalancedObject(resp.Text()); ok {
				var c classification
				if json.Unmarshal([]byte(obj), &c) == nil && c.PipelineKind != "" {
					agents := toAgents(c.RequiredAgents)
					if len(agents) == 0 {
						agents = query.AllAgents
					}
					return query.PipelineKind(c.PipelineKind), agents, c.Confidence, c.Urgency, c.Complexity
				}
			}
		}
	}

	return keywordClassify(question)
}

func toAgents(names []string) []query.Agent {
	var agents []query.Agent
	for _, n := range names {
		switch strings.ToLower(n) {
		case string(query.Weather):
			agents = append(agents, query.Weather)
		case string(query.Soil):
			agents = append(agents, query.Soil)
		case string(query.Pest):
			agents = append(agents, query.Pest)
		case string(query.Scheme):
			agents = append(agents, query.Scheme)
		}
	}
	return agents
}

func keywordClassify(question string) (query.PipelineKind, []query.Agent, float64, string, string) {
	lower := strings.ToLower(question)
	seen := make(map[query.Agent]bool)
	var agents []query.Agent
	for token, agent := range keywordAgents {
		if strings.Contains(lower, token) && !seen[agent] {
			seen[agent] = true
			agents = append(agents, agent)
		}
	}
	if len(agents) == 0 {
		return query.Generic, query.AllAgents, 0.3, "normal", "comprehensive"
	}
	return query.Specific, agents, 0.5, "normal", "focused"
}
