package ticket

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProductCode is a parsed product SKU. Model is the SKU with any finish
// suffix stripped; FinishCode and FinishName are set when a suffix matched
// the finish table.
type ProductCode struct {
	FullSKU    string `json:"full_sku"`
	Model      string `json:"model"`
	FinishCode string `json:"finish_code,omitempty"`
	FinishName string `json:"finish_name,omitempty"`
}

// AuditEntry records one field mutation. Seq is monotonic per Facts value.
type AuditEntry struct {
	Seq      int       `json:"seq"`
	Field    string    `json:"field"`
	Old      any       `json:"old"`
	New      any       `json:"new"`
	Writer   string    `json:"writer"`
	Override bool      `json:"override,omitempty"`
	Time     time.Time `json:"time"`
}

// Facts is the tiered fact store for one ticket.
//
// Tier 1 holds deterministic extraction output, tier 2 holds LLM-verified
// refinements, tier 3 holds catalog-confirmed identification. Evidence
// strength rises with the tier; later stages must never silently erase what
// an earlier stage found. All writes go through Apply or ApplyOverride so
// the audit trail stays complete.
type Facts struct {
	// Tier 1: deterministic extraction.
	HasModelNumber    bool          `json:"has_model_number"`
	HasAddress        bool          `json:"has_address"`
	HasReceipt        bool          `json:"has_receipt"`
	HasPONumber       bool          `json:"has_po_number"`
	HasPhotos         bool          `json:"has_photos"`
	HasVideo          bool          `json:"has_video"`
	HasDocuments      bool          `json:"has_documents"`
	ExtractedAddress  string        `json:"extracted_address,omitempty"`
	AddressConfidence float64       `json:"address_confidence,omitempty"`
	RawProductCodes   []ProductCode `json:"raw_product_codes,omitempty"`
	RawPartNumbers    []string      `json:"raw_part_numbers,omitempty"`
	RawFinishMentions []string      `json:"raw_finish_mentions,omitempty"`
	ClaimedButMissing []string      `json:"claimed_but_missing,omitempty"`

	// Tier 2: LLM verification of tier 1. Runs at most once per ticket.
	Verified         bool              `json:"verified"`
	VerifiedModels   []string          `json:"verified_models,omitempty"`
	VerifiedFinishes []string          `json:"verified_finishes,omitempty"`
	Corrections      map[string]string `json:"corrections,omitempty"`

	// Tier 3: catalog-confirmed identification.
	ConfirmedModel           string  `json:"confirmed_model,omitempty"`
	ConfirmedModelSource     string  `json:"confirmed_model_source,omitempty"`
	ConfirmedModelConfidence float64 `json:"confirmed_model_confidence,omitempty"`
	ConfirmedFinish          string  `json:"confirmed_finish,omitempty"`

	Audit []AuditEntry `json:"audit,omitempty"`
	seq   int
}

// NewFacts returns an empty fact store.
func NewFacts() *Facts {
	return &Facts{}
}

// Apply writes the given fields under the writer's name, appending one audit
// entry per changed field. Updates are applied in sorted key order so audit
// sequences are deterministic. An update that would clear an already
// populated field is rejected with ErrClearWithoutOverride; use
// ApplyOverride when an erase is intentional.
func (f *Facts) Apply(writer string, updates map[string]any) error {
	return f.apply(writer, updates, false)
}

// ApplyOverride is Apply without the clear protection. Audit entries are
// marked as overrides.
func (f *Facts) ApplyOverride(writer string, updates map[string]any) error {
	return f.apply(writer, updates, true)
}

func (f *Facts) apply(writer string, updates map[string]any, override bool) error {
	if writer == "" {
		return ErrWriterEmpty
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		if err := f.setField(writer, field, updates[field], override); err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
	}
	return nil
}

func (f *Facts) record(writer, field string, old, new any, override bool) {
	f.seq++
	f.Audit = append(f.Audit, AuditEntry{
		Seq:      f.seq,
		Field:    field,
		Old:      old,
		New:      new,
		Writer:   writer,
		Override: override,
		Time:     time.Now().UTC(),
	})
}

func (f *Facts) setBool(writer, field string, dst *bool, v any, override bool) error {
	val, ok := v.(bool)
	if !ok {
		return ErrInvalidFieldValue
	}
	if *dst == val {
		return nil
	}
	if *dst && !val && !override {
		return ErrClearWithoutOverride
	}
	f.record(writer, field, *dst, val, override)
	*dst = val
	return nil
}

func (f *Facts) setString(writer, field string, dst *string, v any, override bool) error {
	val, ok := v.(string)
	if !ok {
		return ErrInvalidFieldValue
	}
	if *dst == val {
		return nil
	}
	if *dst != "" && val == "" && !override {
		return ErrClearWithoutOverride
	}
	f.record(writer, field, *dst, val, override)
	*dst = val
	return nil
}

func (f *Facts) setFloat(writer, field string, dst *float64, v any, override bool) error {
	var val float64
	switch n := v.(type) {
	case float64:
		val = n
	case float32:
		val = float64(n)
	case int:
		val = float64(n)
	default:
		return ErrInvalidFieldValue
	}
	if *dst == val {
		return nil
	}
	if *dst != 0 && val == 0 && !override {
		return ErrClearWithoutOverride
	}
	f.record(writer, field, *dst, val, override)
	*dst = val
	return nil
}

func (f *Facts) setStrings(writer, field string, dst *[]string, v any, override bool) error {
	val, ok := v.([]string)
	if !ok {
		return ErrInvalidFieldValue
	}
	if len(*dst) > 0 && len(val) == 0 && !override {
		return ErrClearWithoutOverride
	}
	f.record(writer, field, append([]string(nil), *dst...), append([]string(nil), val...), override)
	*dst = append([]string(nil), val...)
	return nil
}

func (f *Facts) setField(writer, field string, v any, override bool) error {
	switch field {
	case "has_model_number":
		return f.setBool(writer, field, &f.HasModelNumber, v, override)
	case "has_address":
		return f.setBool(writer, field, &f.HasAddress, v, override)
	case "has_receipt":
		return f.setBool(writer, field, &f.HasReceipt, v, override)
	case "has_po_number":
		return f.setBool(writer, field, &f.HasPONumber, v, override)
	case "has_photos":
		return f.setBool(writer, field, &f.HasPhotos, v, override)
	case "has_video":
		return f.setBool(writer, field, &f.HasVideo, v, override)
	case "has_documents":
		return f.setBool(writer, field, &f.HasDocuments, v, override)
	case "extracted_address":
		return f.setString(writer, field, &f.ExtractedAddress, v, override)
	case "address_confidence":
		return f.setFloat(writer, field, &f.AddressConfidence, v, override)
	case "raw_product_codes":
		val, ok := v.([]ProductCode)
		if !ok {
			return ErrInvalidFieldValue
		}
		if len(f.RawProductCodes) > 0 && len(val) == 0 && !override {
			return ErrClearWithoutOverride
		}
		f.record(writer, field, append([]ProductCode(nil), f.RawProductCodes...), append([]ProductCode(nil), val...), override)
		f.RawProductCodes = append([]ProductCode(nil), val...)
		return nil
	case "raw_part_numbers":
		return f.setStrings(writer, field, &f.RawPartNumbers, v, override)
	case "raw_finish_mentions":
		return f.setStrings(writer, field, &f.RawFinishMentions, v, override)
	case "claimed_but_missing":
		return f.setStrings(writer, field, &f.ClaimedButMissing, v, override)
	case "verified":
		return f.setBool(writer, field, &f.Verified, v, override)
	case "verified_models":
		return f.setStrings(writer, field, &f.VerifiedModels, v, override)
	case "verified_finishes":
		return f.setStrings(writer, field, &f.VerifiedFinishes, v, override)
	case "corrections":
		val, ok := v.(map[string]string)
		if !ok {
			return ErrInvalidFieldValue
		}
		if len(f.Corrections) > 0 && len(val) == 0 && !override {
			return ErrClearWithoutOverride
		}
		f.record(writer, field, f.Corrections, val, override)
		f.Corrections = val
		return nil
	case "confirmed_model":
		return f.setString(writer, field, &f.ConfirmedModel, v, override)
	case "confirmed_model_source":
		return f.setString(writer, field, &f.ConfirmedModelSource, v, override)
	case "confirmed_model_confidence":
		return f.setFloat(writer, field, &f.ConfirmedModelConfidence, v, override)
	case "confirmed_finish":
		return f.setString(writer, field, &f.ConfirmedFinish, v, override)
	default:
		return ErrUnknownField
	}
}

// BestModels returns the strongest model identification available, walking
// tiers from confirmed down to raw.
func (f *Facts) BestModels() []string {
	if f.ConfirmedModel != "" {
		return []string{f.ConfirmedModel}
	}
	if len(f.VerifiedModels) > 0 {
		return append([]string(nil), f.VerifiedModels...)
	}
	models := make([]string, 0, len(f.RawProductCodes))
	seen := make(map[string]bool)
	for _, pc := range f.RawProductCodes {
		if pc.Model != "" && !seen[pc.Model] {
			seen[pc.Model] = true
			models = append(models, pc.Model)
		}
	}
	return models
}

// Summary renders the facts for inclusion in a decision prompt.
func (f *Facts) Summary() string {
	var b strings.Builder

	b.WriteString("Extracted facts:\n")
	fmt.Fprintf(&b, "- model number present: %v\n", f.HasModelNumber)
	fmt.Fprintf(&b, "- address present: %v\n", f.HasAddress)
	fmt.Fprintf(&b, "- receipt present: %v\n", f.HasReceipt)
	fmt.Fprintf(&b, "- po number present: %v\n", f.HasPONumber)
	fmt.Fprintf(&b, "- attachments: photos=%v video=%v documents=%v\n", f.HasPhotos, f.HasVideo, f.HasDocuments)
	if len(f.RawProductCodes) > 0 {
		skus := make([]string, 0, len(f.RawProductCodes))
		for _, pc := range f.RawProductCodes {
			skus = append(skus, pc.FullSKU)
		}
		fmt.Fprintf(&b, "- product codes: %s\n", strings.Join(skus, ", "))
	}
	if len(f.RawPartNumbers) > 0 {
		fmt.Fprintf(&b, "- part numbers: %s\n", strings.Join(f.RawPartNumbers, ", "))
	}
	if len(f.RawFinishMentions) > 0 {
		fmt.Fprintf(&b, "- finish mentions: %s\n", strings.Join(f.RawFinishMentions, ", "))
	}
	if len(f.ClaimedButMissing) > 0 {
		fmt.Fprintf(&b, "- claimed but not attached: %s\n", strings.Join(f.ClaimedButMissing, ", "))
	}
	if f.Verified {
		fmt.Fprintf(&b, "Verified models: %s\n", strings.Join(f.VerifiedModels, ", "))
		if len(f.VerifiedFinishes) > 0 {
			fmt.Fprintf(&b, "Verified finishes: %s\n", strings.Join(f.VerifiedFinishes, ", "))
		}
	}
	if f.ConfirmedModel != "" {
		fmt.Fprintf(&b, "Catalog confirmed: %s (source=%s, confidence=%.2f)\n",
			f.ConfirmedModel, f.ConfirmedModelSource, f.ConfirmedModelConfidence)
	}
	return b.String()
}
