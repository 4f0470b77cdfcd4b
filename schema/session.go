package schema

import "time"

// Turn is one input/output exchange within a Session.
type Turn struct {
	Input     Message
	Output    Message
	Timestamp time.Time
	Metadata  map[string]any
}

// Session is a sequence of turns plus arbitrary carried-forward state.
type Session struct {
	ID        string
	Turns     []Turn
	State     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
