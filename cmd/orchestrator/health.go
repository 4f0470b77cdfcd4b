package main

import (
	"context"

	"github.com/Hurricane0017/agri-advisor/internal/store"
	"github.com/Hurricane0017/agri-advisor/llm"
	"github.com/Hurricane0017/agri-advisor/o11y"
)

// dbHealthChecker reports the soil/pest/scheme/profile store's reachability.
type dbHealthChecker struct{ db *store.DB }

func (c dbHealthChecker) HealthCheck(ctx context.Context) o11y.HealthResult {
	if err := c.db.PingContext(ctx); err != nil {
		return o11y.HealthResult{Status: o11y.Unhealthy, Message: err.Error()}
	}
	return o11y.HealthResult{Status: o11y.Healthy}
}

// llmHealthChecker reports whether a chat model was wired at all; it never
// issues a live request (that would spend tokens on every health poll), so
// a degraded LLM backend is not visible here — only catalogued here by a
// model/configured check.
type llmHealthChecker struct{ model llm.ChatModel }

func (c llmHealthChecker) HealthCheck(ctx context.Context) o11y.HealthResult {
	if c.model == nil {
		return o11y.HealthResult{Status: o11y.Unhealthy, Message: "no LLM provider configured"}
	}
	return o11y.HealthResult{Status: o11y.Healthy, Message: c.model.ModelID()}
}
