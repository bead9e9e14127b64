package evidence

import (
	"fmt"

	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

// DefaultEpsilon is the confidence gap under which two disagreeing items in
// the same tier are considered a genuine conflict.
const DefaultEpsilon = 0.05

// Default confidences for fact-derived items, matching the trust the
// pipeline places in each extraction tier.
const (
	verifiedFactConfidence = 0.85
	rawFactConfidence      = 0.75
)

// Resolver holds the conflict policy knobs.
type Resolver struct {
	// Epsilon is the same-tier conflict window. Zero means DefaultEpsilon.
	Epsilon float64

	// AutoResolve picks the higher-confidence item instead of escalating a
	// same-tier conflict. Off by default: conflicting top-tier evidence goes
	// to a human.
	AutoResolve bool
}

// Resolve merges an ordered evidence sequence into a bundle. Deterministic
// and idempotent: the same sequence always yields the same bundle.
func (r Resolver) Resolve(items []Item) *Bundle {
	eps := r.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}

	bundle := &Bundle{
		Items:  append([]Item(nil), items...),
		Action: ActionRequestInfo,
	}

	if len(items) == 0 {
		bundle.Summary = "no identity evidence gathered"
		return bundle
	}

	// First non-empty tier wins, scanning highest to lowest.
	var tierItems []Item
	var tier Tier
	for t := TierCatalogConfirmed; t <= TierWeak; t++ {
		for _, it := range items {
			if it.Tier == t && it.Model != "" {
				tierItems = append(tierItems, it)
			}
		}
		if len(tierItems) > 0 {
			tier = t
			break
		}
	}
	if len(tierItems) == 0 {
		bundle.Summary = "evidence items carry no model identifiers"
		return bundle
	}

	// Max confidence, earliest insertion wins ties.
	best := tierItems[0]
	for _, it := range tierItems[1:] {
		if it.Confidence > best.Confidence {
			best = it
		}
	}

	// Same-tier disagreement within epsilon is a conflict.
	if conflict, reason := r.findConflict(tierItems, best, eps); conflict {
		if !r.AutoResolve {
			bundle.Action = ActionEscalate
			bundle.ConflictReason = reason
			bundle.FinalConfidence = best.Confidence
			bundle.Summary = fmt.Sprintf("conflicting %s evidence: %s", tier, reason)
			logging.Evidence("escalating: %s", reason)
			return bundle
		}
		bundle.ConflictReason = reason + " (auto-resolved to higher confidence)"
	}

	conf := best.Confidence
	if tier == TierCatalogConfirmed {
		conf = 1.0
	}

	bundle.Primary = &Identification{
		Model:      best.Model,
		Name:       best.Name,
		Category:   best.Category,
		Source:     best.Source,
		Confidence: conf,
	}
	bundle.FinalConfidence = conf

	if tier == TierWeak {
		bundle.Action = ActionRequestInfo
		bundle.Summary = fmt.Sprintf("only weak evidence for %s (%.0f%%), more information needed", best.Model, conf*100)
		return bundle
	}

	bundle.Action = ActionProceed
	bundle.Summary = fmt.Sprintf("%s identified %s (%.0f%%)", tier, best.Model, conf*100)
	return bundle
}

// findConflict reports whether another item in the winning tier names a
// different product with confidence within epsilon of the best item.
func (r Resolver) findConflict(tierItems []Item, best Item, eps float64) (bool, string) {
	bestModel := best.NormalizedModel()
	for _, it := range tierItems {
		if it.NormalizedModel() == bestModel {
			continue
		}
		diff := best.Confidence - it.Confidence
		if diff < 0 {
			diff = -diff
		}
		if diff <= eps {
			return true, fmt.Sprintf("%s (%.2f from %s) vs %s (%.2f from %s)",
				best.Model, best.Confidence, best.Source,
				it.Model, it.Confidence, it.Source)
		}
	}
	return false, ""
}

// ItemsFromFacts converts the fact tiers into evidence items, strongest tier
// first. Appended ahead of tool observations so catalog confirmations from
// earlier iterations keep their priority.
func ItemsFromFacts(facts *ticket.Facts) []Item {
	if facts == nil {
		return nil
	}
	var items []Item

	if facts.ConfirmedModel != "" {
		items = append(items, Item{
			Tier:       TierCatalogConfirmed,
			Source:     facts.ConfirmedModelSource,
			Model:      facts.ConfirmedModel,
			Confidence: facts.ConfirmedModelConfidence,
			ExactMatch: true,
		})
	}
	for _, m := range facts.VerifiedModels {
		items = append(items, Item{
			Tier:       TierVerifiedFacts,
			Source:     "verified_facts",
			Model:      m,
			Confidence: verifiedFactConfidence,
			ExactMatch: true,
		})
	}
	for _, pc := range facts.RawProductCodes {
		items = append(items, Item{
			Tier:       TierRawFacts,
			Source:     "ticket_text",
			Model:      pc.Model,
			Confidence: rawFactConfidence,
			ExactMatch: true,
		})
	}
	return items
}
