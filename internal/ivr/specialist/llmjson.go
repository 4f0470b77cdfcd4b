package specialist

import (
	"context"
	"encoding/json"

	"github.com/Hurricane0017/agri-advisor/internal/jsonutil"
	"github.com/Hurricane0017/agri-advisor/llm"
	"github.com/Hurricane0017/agri-advisor/schema"
)

// askForJSON sends systemPrompt/userPrompt to model and decodes the first
// balanced JSON object in the reply into out. It reports false (leaving out
// untouched) on any LLM or parse failure, so callers can fall back to a
// deterministic path per spec §4.3's graceful-degradation requirement.
func askForJSON(ctx context.Context, model llm.ChatModel, systemPrompt, userPrompt string, out any) bool {
	if model == nil {
		return false
	}
	resp, err := model.Generate(ctx, []schema.Message{
		schema.NewSystemMessage(systemPrompt),
		schema.NewHumanMessage(userPrompt),
	})
	if err != nil {
		return false
	}
	obj, ok := jsonutil.ExtractBalancedObject(resp.Text())
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return false
	}
	return true
}

// askForText sends systemPrompt/userPrompt to model and returns its raw
// text reply, for the free-form reasoning/synthesis prompts (no JSON
// decoding needed).
func askForText(ctx context.Context, model llm.ChatModel, systemPrompt, userPrompt string) (string, bool) {
	if model == nil {
		return "", false
	}
	resp, err := model.Generate(ctx, []schema.Message{
		schema.NewSystemMessage(systemPrompt),
		schema.NewHumanMessage(userPrompt),
	})
	if err != nil {
		return "", false
	}
	return resp.Text(), true
}
