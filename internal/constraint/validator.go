package constraint

import (
	"fmt"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

// Citation is one policy citation the reply must include.
type Citation struct {
	PolicyID string `json:"policy_id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Citation string `json:"citation"`
}

// ConditionalNote flags a field that might be needed given the ticket
// context, without making it a hard requirement.
type ConditionalNote struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Result is the full constraint set computed for one ticket. MissingFields
// and PresentFields are disjoint; CanProceed is true exactly when
// BlockingMissing is empty.
type Result struct {
	OriginalCategory string `json:"original_category"`
	ResolvedCategory string `json:"resolved_category"`

	MissingFields []string `json:"missing_fields"`
	PresentFields []string `json:"present_fields"`

	// RequiredAsks holds one customer-ready prompt per missing field, in
	// the order the fields are declared for the category.
	RequiredAsks []string `json:"required_asks"`

	// MustNotAsk lists information the reply must not request, with the
	// already-known value where available.
	MustNotAsk []string `json:"must_not_ask"`

	Conditional []ConditionalNote `json:"conditional_fields"`

	ApplicablePolicies []string   `json:"applicable_policies"`
	Citations          []Citation `json:"policy_citations"`

	// RequiredCitations holds the citation texts in policy declaration
	// order, deduplicated.
	RequiredCitations []string `json:"required_citations"`

	BlockingMissing []string `json:"blocking_missing"`
	CanProceed      bool     `json:"can_proceed"`

	// Skipped is true for categories outside the strict validation list.
	Skipped bool     `json:"skipped"`
	Notes   []string `json:"validation_notes"`
}

// claimFollowupCategories are the categories where a claimed-but-missing
// attachment turns into an explicit re-send request.
var claimFollowupCategories = map[string]bool{
	"product_issue":     true,
	"warranty_claim":    true,
	"replacement_parts": true,
	"return_refund":     true,
}

var claimFollowupAsks = map[string]string{
	"video": "Thank you for sending over the video. If the file is larger than 20MB or if the file was sent through a Google Drive link, " +
		"we may not be able to access it. One option you have is sending it through wetransfer.com and sharing the download link with us.",
	"photos": "We noticed you mentioned attaching photos/images, but they don't appear to have come through. " +
		"Could you please re-attach the photos showing the issue?",
	"documents": "We noticed you mentioned attaching a document, but it doesn't appear to have come through. " +
		"Could you please re-attach the document?",
}

// Validate computes the constraint set for a ticket: which required fields
// are missing, what to ask for, what not to ask for, and which policies the
// reply must cite. productText is optional free text (product description,
// ticket body) scanned for product-specific policy triggers.
func Validate(facts *ticket.Facts, category, productText string) (*Result, error) {
	if facts == nil {
		return nil, ErrNilFacts
	}

	original := category
	if original == "" {
		original = "unknown"
	}
	resolved := CanonicalCategory(category)
	logging.Constraint("validating category %q (resolved %q)", original, resolved)

	result := &Result{
		OriginalCategory: original,
		ResolvedCategory: resolved,
	}

	if !IsStrict(category) {
		result.Skipped = true
		result.CanProceed = true
		result.Notes = append(result.Notes,
			fmt.Sprintf("Category %q is not in strict validation list - processing flexibly", resolved))
		logging.Constraint("skipped: category %q processed without field enforcement", resolved)
		return result, nil
	}

	spec := Matrix[resolved]

	for _, field := range spec.Required {
		if fieldPresent(facts, field) {
			result.PresentFields = append(result.PresentFields, field)
		} else {
			result.MissingFields = append(result.MissingFields, field)
			result.RequiredAsks = append(result.RequiredAsks, askFor(field))
		}
	}

	result.MustNotAsk = mustNotAsk(result.PresentFields, facts)
	result.Conditional = evaluateConditional(spec.Conditional, facts, resolved)

	applyClaimFollowups(result, facts, resolved)

	result.ApplicablePolicies = applicablePolicies(spec, facts, productText)
	result.Citations, result.RequiredCitations = citationsFor(result.ApplicablePolicies)

	for _, field := range blockingRules[resolved] {
		if contains(result.MissingFields, field) {
			result.BlockingMissing = append(result.BlockingMissing, field)
		}
	}
	result.CanProceed = len(result.BlockingMissing) == 0

	if len(result.MissingFields) > 0 {
		result.Notes = append(result.Notes,
			fmt.Sprintf("Missing required fields: %s", strings.Join(result.MissingFields, ", ")))
	}
	if len(result.RequiredCitations) > 0 {
		result.Notes = append(result.Notes,
			fmt.Sprintf("Must cite %d policy(ies)", len(result.RequiredCitations)))
	}
	if !result.CanProceed {
		result.Notes = append(result.Notes,
			fmt.Sprintf("Blocking missing: %s", strings.Join(result.BlockingMissing, ", ")))
	}

	logging.Constraint("validated %q: missing=%v present=%v policies=%v can_proceed=%v",
		resolved, result.MissingFields, result.PresentFields, result.ApplicablePolicies, result.CanProceed)
	return result, nil
}

func fieldPresent(facts *ticket.Facts, field string) bool {
	switch field {
	case "receipt":
		return facts.HasReceipt
	case "address":
		return facts.HasAddress
	case "photos":
		return facts.HasPhotos
	case "video":
		return facts.HasVideo
	case "po":
		return facts.HasPONumber
	case "model":
		return facts.HasModelNumber
	case "finish":
		return len(facts.RawFinishMentions) > 0
	case "part_number":
		return len(facts.RawPartNumbers) > 0
	}
	return false
}

func askFor(field string) string {
	if template, ok := FieldAskTemplates[field]; ok {
		return template
	}
	name, ok := FieldNames[field]
	if !ok {
		name = strings.ReplaceAll(field, "_", " ")
	}
	return fmt.Sprintf("Could you please provide the %s?", name)
}

func mustNotAsk(present []string, facts *ticket.Facts) []string {
	var items []string
	for _, field := range present {
		if name, ok := FieldNames[field]; ok {
			items = append(items, name)
		} else {
			items = append(items, strings.ReplaceAll(field, "_", " "))
		}
	}

	joined := strings.ToLower(strings.Join(items, " | "))

	if len(facts.RawProductCodes) > 0 {
		models := make([]string, 0, 2)
		for _, code := range facts.RawProductCodes {
			models = append(models, code.Model)
			if len(models) == 2 {
				break
			}
		}
		if !strings.Contains(joined, "model") {
			items = append(items, fmt.Sprintf("product model (already provided: %s)", strings.Join(models, ", ")))
		}
	}

	if facts.ExtractedAddress != "" && !strings.Contains(joined, "address") {
		addr := facts.ExtractedAddress
		if len(addr) > 30 {
			addr = addr[:30]
		}
		items = append(items, fmt.Sprintf("shipping address (already provided: %s...)", addr))
	}

	if facts.HasPhotos && !strings.Contains(joined, "photo") {
		items = append(items, "photos (already attached)")
	}

	if len(facts.RawFinishMentions) > 0 && !strings.Contains(joined, "finish") {
		mentions := facts.RawFinishMentions
		if len(mentions) > 2 {
			mentions = mentions[:2]
		}
		items = append(items, fmt.Sprintf("finish/color (mentioned: %s)", strings.Join(mentions, ", ")))
	}

	return items
}

func evaluateConditional(fields []ConditionalField, facts *ticket.Facts, category string) []ConditionalNote {
	var notes []ConditionalNote
	for _, cf := range fields {
		triggered := false
		switch cf.Condition {
		case "always_for_defect":
			triggered = category == "warranty_claim" || category == "product_issue"
		case "warranty_check_needed":
			triggered = category == "product_issue" || category == "replacement_parts"
		case "replacement_offered":
			triggered = true
		case "intermittent_issue":
			// No direct signal; suggest a video when no visual evidence
			// was attached at all.
			triggered = !facts.HasPhotos && !facts.HasVideo
		}
		if triggered && !fieldPresent(facts, cf.Field) {
			notes = append(notes, ConditionalNote{Field: cf.Field, Reason: cf.Reason})
		}
	}
	return notes
}

func applyClaimFollowups(result *Result, facts *ticket.Facts, category string) {
	if len(facts.ClaimedButMissing) == 0 || !claimFollowupCategories[category] {
		return
	}
	for _, kind := range facts.ClaimedButMissing {
		ask, ok := claimFollowupAsks[kind]
		if !ok || contains(result.MissingFields, kind) {
			continue
		}
		result.MissingFields = append(result.MissingFields, kind)
		result.RequiredAsks = append(result.RequiredAsks, ask)
		result.Notes = append(result.Notes,
			fmt.Sprintf("Customer claimed to attach %s but it was not received", kind))
	}
	logging.Warn(logging.CategoryConstraint,
		"attachment discrepancy: customer claimed %v but nothing was received", facts.ClaimedButMissing)
}

// applicablePolicies merges the category's standing policies with
// product-triggered ones, preserving first-seen order.
func applicablePolicies(spec Spec, facts *ticket.Facts, productText string) []string {
	policies := append([]string(nil), spec.Policies...)

	add := func(key string) {
		if key != "" && !contains(policies, key) {
			policies = append(policies, key)
		}
	}

	if productText != "" {
		for _, key := range MatchProductPolicies(productText) {
			add(key)
		}
	}

	lowerText := strings.ToLower(productText)
	for keyword, key := range spec.ProductPolicies {
		if strings.Contains(lowerText, keyword) {
			add(key)
			continue
		}
		for _, code := range facts.RawProductCodes {
			if strings.Contains(strings.ToLower(code.Model), keyword) {
				add(key)
				break
			}
		}
	}

	return policies
}

// citationsFor resolves policy keys to citations, deduplicated and ordered
// by policy declaration order.
func citationsFor(keys []string) ([]Citation, []string) {
	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}

	var citations []Citation
	var texts []string
	seen := make(map[string]bool)
	for _, p := range Policies {
		if !wanted[p.Key] || seen[p.Citation] {
			continue
		}
		seen[p.Citation] = true
		citations = append(citations, Citation{
			PolicyID: p.ID,
			Key:      p.Key,
			Name:     p.Name,
			Citation: p.Citation,
		})
		texts = append(texts, p.Citation)
	}
	return citations, texts
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
