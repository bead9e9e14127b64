// Package constraint derives what a reply must ask for and which policy text
// it must cite, from per-category requirement rules and the current ticket
// facts. Validation is pure: the same inputs always produce the same result.
package constraint

import "strings"

// FieldNames maps field keys to customer-facing descriptions.
var FieldNames = map[string]string{
	"receipt":     "proof of purchase (receipt, invoice, or order confirmation)",
	"address":     "shipping address for replacement delivery",
	"photos":      "photo(s) showing the issue or defect",
	"video":       "video showing the issue (especially helpful for intermittent problems)",
	"po":          "PO number or order number",
	"model":       "product model number",
	"finish":      "product finish/color preference",
	"part_number": "specific part number needed",
}

// FieldAskTemplates holds the canned request sentence per missing field.
var FieldAskTemplates = map[string]string{
	"receipt":     "Could you please provide your proof of purchase (receipt, invoice, or order confirmation)? This helps us verify your warranty coverage.",
	"address":     "What address should we send the replacement to?",
	"photos":      "Could you please send a photo showing the issue with your product? This helps us assess the problem accurately.",
	"video":       "If possible, could you send a short video showing the issue? This is especially helpful for intermittent problems.",
	"po":          "Could you please provide your PO number or order confirmation number?",
	"model":       "Could you please provide the product model number? You can usually find this on the product label or in your order confirmation.",
	"finish":      "What finish/color would you prefer for the replacement? (e.g., Chrome, Matte Black, Brushed Nickel)",
	"part_number": "Could you please specify which part(s) you need? If you're unsure, a photo of the product or parts diagram would help.",
}

// ConditionalField is a field that may be needed depending on context.
type ConditionalField struct {
	Field     string
	Condition string
	Reason    string
}

// Spec is the static requirement rule set for one category.
type Spec struct {
	// Required fields, in ask order.
	Required []string

	// Conditional fields with trigger predicates, in declaration order.
	Conditional []ConditionalField

	// Policies always applicable to the category.
	Policies []string

	// ProductPolicies maps a product keyword to an extra policy key.
	ProductPolicies map[string]string

	Description string
}

// Matrix is the requirement spec per canonical category.
var Matrix = map[string]Spec{
	"warranty_claim": {
		Required: []string{"receipt", "address"},
		Conditional: []ConditionalField{
			{Field: "photos", Condition: "always_for_defect", Reason: "To verify and document the defect"},
			{Field: "video", Condition: "intermittent_issue", Reason: "To show the intermittent problem occurring"},
		},
		Policies: []string{"warranty_standard"},
		ProductPolicies: map[string]string{
			"hose":        "hose_warranty",
			"supply_line": "hose_warranty",
			"supply line": "hose_warranty",
			"braided":     "hose_warranty",
		},
		Description: "Customer claiming warranty for defective product",
	},
	"product_issue": {
		Required: []string{"model"},
		Conditional: []ConditionalField{
			{Field: "photos", Condition: "always_for_defect", Reason: "To identify and document the issue"},
			{Field: "receipt", Condition: "warranty_check_needed", Reason: "To verify warranty status if replacement needed"},
			{Field: "address", Condition: "replacement_offered", Reason: "For shipping replacement parts"},
		},
		Policies: []string{"warranty_standard"},
		ProductPolicies: map[string]string{
			"hose":        "hose_warranty",
			"supply_line": "hose_warranty",
		},
		Description: "Customer reporting product defect or malfunction",
	},
	"missing_parts": {
		Required: []string{"po", "address"},
		Conditional: []ConditionalField{
			{Field: "photos", Condition: "unclear_what_missing", Reason: "To identify exactly which parts are missing"},
		},
		Policies:    []string{"missing_parts_window"},
		Description: "Customer reporting missing parts from order",
	},
	"replacement_parts": {
		Required: []string{"model", "address"},
		Conditional: []ConditionalField{
			{Field: "receipt", Condition: "warranty_replacement", Reason: "To verify warranty coverage for free replacement"},
			{Field: "part_number", Condition: "specific_part_needed", Reason: "To identify the exact part required"},
			{Field: "photos", Condition: "part_identification_needed", Reason: "To identify the correct replacement part"},
		},
		Policies:    []string{"warranty_standard"},
		Description: "Customer requesting replacement parts",
	},
	"return_refund": {
		Required: []string{"receipt", "address"},
		Conditional: []ConditionalField{
			{Field: "photos", Condition: "damaged_product", Reason: "To document the product condition"},
		},
		Policies:    []string{"return_policy"},
		Description: "Customer requesting return or refund",
	},
	"product_inquiry": {
		Required: []string{"model"},
		Conditional: []ConditionalField{
			{Field: "finish", Condition: "finish_specific_question", Reason: "To identify the exact product variant"},
		},
		Description: "Customer asking about product specs or compatibility",
	},
	"finish_color": {
		Required:    []string{"model"},
		Description: "Customer asking about finish/color options",
	},
	"installation_help": {
		Required: []string{"model"},
		Conditional: []ConditionalField{
			{Field: "photos", Condition: "installation_problem", Reason: "To see the current installation setup"},
		},
		Description: "Customer needing installation assistance",
	},
	"pricing_request": {
		Conditional: []ConditionalField{
			{Field: "model", Condition: "specific_product_pricing", Reason: "To provide accurate pricing for the specific product"},
			{Field: "part_number", Condition: "part_pricing", Reason: "To look up the part price"},
		},
		Description: "Customer asking about pricing",
	},
	"dealer_inquiry": {
		Policies:    []string{"dealer_program"},
		Description: "Dealer/partnership inquiry",
	},
	"shipping_tracking": {
		Required:    []string{"po"},
		Description: "Customer asking about order status",
	},
	"feedback_suggestion": {
		Description: "Customer providing feedback or suggestions",
	},
	"general": {
		Description: "General inquiry not fitting other categories",
	},
}

// CategoryAliases maps helpdesk labels and keywords to canonical categories.
var CategoryAliases = map[string]string{
	"warranty":    "warranty_claim",
	"defect":      "warranty_claim",
	"defective":   "warranty_claim",
	"broken":      "product_issue",
	"malfunction": "product_issue",
	"not_working": "product_issue",
	"leaking":     "product_issue",
	"leak":        "product_issue",

	"missing":       "missing_parts",
	"incomplete":    "missing_parts",
	"not_included":  "missing_parts",
	"parts_missing": "missing_parts",

	"return":    "return_refund",
	"refund":    "return_refund",
	"rga":       "return_refund",
	"send_back": "return_refund",

	"replacement": "replacement_parts",
	"spare_part":  "replacement_parts",
	"spare_parts": "replacement_parts",
	"parts":       "replacement_parts",
	"need_part":   "replacement_parts",

	"question":      "product_inquiry",
	"inquiry":       "product_inquiry",
	"compatibility": "product_inquiry",
	"spec":          "product_inquiry",
	"specs":         "product_inquiry",

	"install":      "installation_help",
	"installation": "installation_help",
	"setup":        "installation_help",
	"mounting":     "installation_help",
	"how_to":       "installation_help",

	"finish": "finish_color",
	"color":  "finish_color",
	"colour": "finish_color",

	"pricing": "pricing_request",
	"price":   "pricing_request",
	"msrp":    "pricing_request",
	"cost":    "pricing_request",

	"dealer":      "dealer_inquiry",
	"partnership": "dealer_inquiry",
	"distributor": "dealer_inquiry",
	"wholesale":   "dealer_inquiry",
	"account":     "dealer_inquiry",

	"shipping":     "shipping_tracking",
	"tracking":     "shipping_tracking",
	"delivery":     "shipping_tracking",
	"order_status": "shipping_tracking",
	"where_is":     "shipping_tracking",

	"feedback":   "feedback_suggestion",
	"suggestion": "feedback_suggestion",
	"complaint":  "feedback_suggestion",
}

// StrictCategories are the only categories whose field requirements are
// enforced. Everything else is processed flexibly; over-enforcement on
// ambiguous categories causes false positives (a "return" ticket is often a
// status or credit question).
var StrictCategories = map[string]bool{
	"warranty_claim":    true,
	"missing_parts":     true,
	"shipping_tracking": true,
	"replacement_parts": true,
}

// blockingRules names the missing fields that stop a category from
// proceeding to a final answer.
var blockingRules = map[string][]string{
	"warranty_claim":    {"receipt"},
	"return_refund":     {"receipt"},
	"missing_parts":     {"po"},
	"shipping_tracking": {"po"},
}

// CanonicalCategory normalizes a raw label to a canonical category name.
// Unknown labels map to "general".
func CanonicalCategory(category string) string {
	if category == "" {
		return "general"
	}
	normalized := strings.ToLower(strings.TrimSpace(category))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	if _, ok := Matrix[normalized]; ok {
		return normalized
	}
	if canonical, ok := CategoryAliases[normalized]; ok {
		return canonical
	}
	return "general"
}

// SpecFor returns the requirement spec for a category, falling back to the
// general spec for unknown labels.
func SpecFor(category string) Spec {
	return Matrix[CanonicalCategory(category)]
}

// IsStrict reports whether a category's requirements are enforced.
func IsStrict(category string) bool {
	return StrictCategories[CanonicalCategory(category)]
}
