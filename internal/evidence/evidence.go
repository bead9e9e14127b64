// Package evidence merges product identity signals from ticket facts and
// tool observations into a single resolution. The resolver is pure: it
// recomputes the bundle from the full item sequence on every call and keeps
// no state between calls.
package evidence

import "strings"

// Tier ranks evidence by provenance. A higher tier always outranks a lower
// one regardless of confidence values.
type Tier int

const (
	// TierCatalogConfirmed is an authoritative catalog match.
	TierCatalogConfirmed Tier = iota + 1
	// TierVerifiedFacts is a model the semantic verifier confirmed.
	TierVerifiedFacts
	// TierRawFacts is a model the deterministic extractor found.
	TierRawFacts
	// TierVisualHigh is a visual or heuristic match above the high threshold.
	TierVisualHigh
	// TierWeak is any weaker fuzzy match.
	TierWeak
)

func (t Tier) String() string {
	switch t {
	case TierCatalogConfirmed:
		return "catalog_confirmed"
	case TierVerifiedFacts:
		return "verified_facts"
	case TierRawFacts:
		return "raw_facts"
	case TierVisualHigh:
		return "visual_high"
	case TierWeak:
		return "weak"
	default:
		return "unknown"
	}
}

// Action is the resolver's recommendation to the pipeline.
type Action string

const (
	ActionProceed     Action = "proceed"
	ActionRequestInfo Action = "request_info"
	ActionEscalate    Action = "escalate"
)

// Item is one immutable piece of identity evidence. Items are appended to an
// ordered per-ticket sequence; insertion order is the tie-breaker.
type Item struct {
	Tier       Tier    `json:"tier"`
	Source     string  `json:"source"`
	Model      string  `json:"model"`
	Name       string  `json:"name,omitempty"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
	ExactMatch bool    `json:"exact_match"`
}

// NormalizedModel returns the model in canonical comparison form.
func (i Item) NormalizedModel() string {
	return NormalizeModel(i.Model)
}

// NormalizeModel uppercases and maps separator variants to periods so
// DKM_2420, dkm-2420 and DKM.2420 compare equal.
func NormalizeModel(model string) string {
	m := strings.ToUpper(strings.TrimSpace(model))
	m = strings.ReplaceAll(m, "_", ".")
	m = strings.ReplaceAll(m, "-", ".")
	return m
}

// Identification is the resolved primary product.
type Identification struct {
	Model      string  `json:"model"`
	Name       string  `json:"name,omitempty"`
	Category   string  `json:"category,omitempty"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Bundle is the resolver output. Recomputed in full on every call.
type Bundle struct {
	Items           []Item          `json:"items"`
	Primary         *Identification `json:"primary,omitempty"`
	Action          Action          `json:"action"`
	FinalConfidence float64         `json:"final_confidence"`
	ConflictReason  string          `json:"conflict_reason,omitempty"`
	Summary         string          `json:"summary"`
}
