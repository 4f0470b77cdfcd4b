// Package finding models AgentFinding, one specialist's output, opaque to
// the orchestrator beyond its prose, status, and cross-agent insights.
package finding

import "time"

// Status is the outcome of one specialist invocation.
type Status string

const (
	Ok     Status = "ok"
	Empty  Status = "empty"
	Failed Status = "failed"
)

// AgentFinding is one specialist's output for one query.
type AgentFinding struct {
	Agent      string
	Pipeline   string
	Status     Status
	Structured any
	Prose      string
	Insights   map[string]any
	Timestamp  time.Time
	Err        error
}
