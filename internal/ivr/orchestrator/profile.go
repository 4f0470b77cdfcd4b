package orchestrator

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/google/uuid"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/transcript"
	"github.com/Hurricane0017/agri-advisor/internal/jsonutil"
	"github.com/Hurricane0017/agri-advisor/schema"
)

// phonePattern matches a bare 10-digit Indian mobile number, with or
// without a leading country code or separators.
var phonePattern = regexp.MustCompile(`(?:\+?91[-\s]?)?([6-9]\d{9})`)

// resolveProfile implements spec §4.4 Step 1: use the stored profile when a
// phone number is present in the transcript, else LLM-extract one from raw
// text, persisting it only when a phone number was extracted.
func (o *Orchestrator) resolveProfile(ctx context.Context, t transcript.Transcript) profile.FarmerProfile {
	raw := t.SourceText()

	if phone := extractPhone(raw); phone != "" && o.ProfileStore != nil {
		if p, ok, err := o.ProfileStore.Get(ctx, phone); err == nil && ok {
			return p
		}
	}

	p := o.extractProfile(ctx, raw)
	if p.Phone == "" {
		p.Ephemeral = true
		p.EphemeralID = uuid.NewString()
		return p
	}
	if o.ProfileStore != nil {
		_ = o.ProfileStore.Put(ctx, p)
	}
	return p
}

func extractPhone(text string) string {
	m := phonePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// extractProfile asks the LLM to pull farmer attributes from raw text,
// degrading gracefully: an unparsable field is omitted, not fabricated.
func (o *Orchestrator) extractProfile(ctx context.Context, raw string) profile.FarmerProfile {
	if o.LLM == nil {
		return profile.FarmerProfile{}
	}

	resp, err := o.LLM.Generate(ctx, []schema.Message{
		schema.NewSystemMessage("Extract a farmer profile from the call transcript: name, phone, pincode, land, crops (list), soil, budget. Omit any field you cannot confidently determine. Reply with a single JSON object."),
		schema.NewHumanMessage(raw),
	})
	if err != nil {
		return profile.FarmerProfile{}
	}

	obj, ok := jsonutil.ExtractBalancedObject(resp.Text())
	if !ok {
		return profile.FarmerProfile{}
	}

	var extracted struct {
		Name    string   `json:"name"`
		Phone   string   `json:"phone"`
		Pincode string   `json:"pincode"`
		Land    string   `json:"land"`
		Crops   []string `json:"crops"`
		Soil    string   `json:"soil"`
		Budget  string   `json:"budget"`
	}
	if err := json.Unmarshal([]byte(obj), &extracted); err != nil {
		return profile.FarmerProfile{}
	}

	return profile.FarmerProfile{
		Name:    extracted.Name,
		Phone:   extracted.Phone,
		Pincode: extracted.Pincode,
		Land:    extracted.Land,
		Crops:   extracted.Crops,
		Soil:    extracted.Soil,
		Budget:  extracted.Budget,
	}
}
