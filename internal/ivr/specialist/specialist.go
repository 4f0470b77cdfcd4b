// Package specialist defines the uniform contract every domain specialist
// (weather, soil, pest, scheme) implements, and the registry the
// orchestrator dispatches through. Per spec §9's design note, the
// orchestrator holds specialists by tag through this interface and never
// imports a concrete specialist package directly.
package specialist

import (
	"context"
	"time"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
)

// Mode selects how deep a specialist reasons: a focused answer to one
// question, or comprehensive season-wide guidance.
type Mode string

const (
	Specific Mode = "specific"
	Generic  Mode = "generic"
)

// ModeFor maps a query.PipelineKind to the Mode specialists receive.
func ModeFor(kind query.PipelineKind) Mode {
	if kind == query.Generic {
		return Generic
	}
	return Specific
}

// Specialist answers one agricultural domain per spec §4.3's uniform
// contract.
type Specialist interface {
	// Tag identifies this specialist (matches a query.Agent value).
	Tag() query.Agent

	// Process answers queryText given farmerProfile, in the given mode.
	// It must never return an error for a recoverable condition — recover
	// internally and return a finding.Failed/Empty status instead; an
	// error return is reserved for a caller bug (e.g. nil profile).
	Process(ctx context.Context, queryText string, farmerProfile profile.FarmerProfile, mode Mode) (finding.AgentFinding, error)
}

// Registry maps agent tags to their Specialist implementation.
type Registry struct {
	specialists map[query.Agent]Specialist
}

// NewRegistry builds a Registry from the given specialists, keyed by Tag().
func NewRegistry(specialists ...Specialist) *Registry {
	r := &Registry{specialists: make(map[query.Agent]Specialist, len(specialists))}
	for _, s := range specialists {
		r.specialists[s.Tag()] = s
	}
	return r
}

// Get returns the specialist registered for tag, or ok=false if none is
// registered.
func (r *Registry) Get(tag query.Agent) (Specialist, bool) {
	s, ok := r.specialists[tag]
	return s, ok
}

// nowFinding builds a finding with Timestamp set to now, reducing
// boilerplate across the four concrete specialists.
func nowFinding(agent query.Agent, mode Mode, status finding.Status) finding.AgentFinding {
	return finding.AgentFinding{
		Agent:     string(agent),
		Pipeline:  string(mode),
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}
