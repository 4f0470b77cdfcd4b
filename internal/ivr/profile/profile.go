// Package profile models FarmerProfile and the store interface the core
// reads and writes through; the soil/pest/scheme/farmer-profile databases
// themselves are external collaborators per spec.
package profile

import "context"

// FarmerProfile is looked up or created from transcript content. All
// attributes beyond Phone are optional; callers must not assume any field
// is present.
type FarmerProfile struct {
	Phone  string `json:"phone"` // digits-only primary key; empty for ephemeral profiles.
	Name   string `json:"name,omitempty"`
	Pincode string `json:"pincode,omitempty"`
	Land    string `json:"land,omitempty"`
	Crops   []string `json:"crops,omitempty"`
	Soil    string `json:"soil,omitempty"`
	Budget  string `json:"budget,omitempty"`

	// Ephemeral is true when no phone number was present and a synthetic id
	// was assigned for the duration of one call; such profiles are never
	// persisted.
	Ephemeral bool `json:"-"`

	// EphemeralID is a per-call synthetic identifier, set only when
	// Ephemeral is true. A process-local counter would collide across the
	// pipeline's worker goroutines, so callers assign this with
	// google/uuid.
	EphemeralID string `json:"-"`
}

// IsZero reports whether the profile carries no farmer-supplied information.
func (p FarmerProfile) IsZero() bool {
	return p.Phone == "" && p.Name == "" && p.Pincode == "" && p.Land == "" &&
		len(p.Crops) == 0 && p.Soil == "" && p.Budget == ""
}

// Store persists and retrieves FarmerProfiles keyed by phone number.
type Store interface {
	// Get returns the profile for phone, or ok=false if none exists.
	Get(ctx context.Context, phone string) (FarmerProfile, bool, error)

	// Put persists or updates a profile. Profiles with an empty Phone are
	// never written (ephemeral).
	Put(ctx context.Context, p FarmerProfile) error
}
