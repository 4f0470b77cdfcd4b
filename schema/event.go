package schema

import "time"

// Usage reports token accounting for a single model call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CachedTokens int
}

// StreamChunk is one increment of a streamed model response.
type StreamChunk struct {
	Delta        string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        *Usage
	ModelID      string
}

// AgentEvent is a single step emitted while an orchestration mechanism runs,
// consumed by hooks/middleware for tracing and logging.
type AgentEvent struct {
	Type      string
	AgentID   string
	Payload   any
	Timestamp time.Time
}
