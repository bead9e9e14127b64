package constraint

import (
	"fmt"
	"strings"
	"time"
)

// PolicyRule is one citable company policy with the exact customer-facing
// citation text and the keywords that trigger it.
type PolicyRule struct {
	ID       string
	Key      string
	Name     string
	Citation string

	// CoverageMonths is the warranty period, 0 when not applicable.
	CoverageMonths int
	Lifetime       bool

	// WindowDays limits time-boxed claims (returns, missing parts).
	WindowDays int

	// RestockingFeePercent applies to returns only.
	RestockingFeePercent int

	// Keywords trigger this policy from product or ticket text.
	Keywords []string
}

// Policies lists every citable rule in declaration order. Citation ordering
// and deduplication follow this order.
var Policies = []PolicyRule{
	{
		ID:             "POL-001",
		Key:            "warranty_standard",
		Name:           "Standard Product Warranty",
		Citation:       "Our products are covered by a 1-year standard warranty against manufacturing defects from the date of purchase.",
		CoverageMonths: 12,
	},
	{
		ID:             "POL-002",
		Key:            "hose_warranty",
		Name:           "Hose and Supply Line Warranty",
		Citation:       "Hoses and supply lines are covered by a 2-year warranty against manufacturing defects from the date of purchase.",
		CoverageMonths: 24,
		Keywords:       []string{"hose", "supply line", "supply_line", "braided", "connector", "water supply"},
	},
	{
		ID:       "POL-003",
		Key:      "lifetime_warranty",
		Name:     "Lifetime Finish Warranty",
		Citation: "Select premium finishes carry a lifetime warranty against tarnishing and corrosion for the original purchaser.",
		Lifetime: true,
	},
	{
		ID:         "POL-004",
		Key:        "missing_parts_window",
		Name:       "Missing Parts Claim Window",
		Citation:   "Missing parts must be reported within 45 days of delivery. We will ship missing parts free of charge within this window.",
		WindowDays: 45,
	},
	{
		ID:                   "POL-005",
		Key:                  "return_policy",
		Name:                 "Return and Refund Policy",
		Citation:             "Unused products in original packaging may be returned within 45 days of delivery. A 15% restocking fee applies to opened items.",
		WindowDays:           45,
		RestockingFeePercent: 15,
	},
	{
		ID:       "POL-006",
		Key:      "dealer_program",
		Name:     "Dealer Program",
		Citation: "Dealer accounts receive trade pricing and dedicated support. New dealer applications are reviewed within 5 business days.",
	},
}

var policyByKey = func() map[string]PolicyRule {
	m := make(map[string]PolicyRule, len(Policies))
	for _, p := range Policies {
		m[p.Key] = p
	}
	return m
}()

// PolicyByKey looks up a policy rule by its short key.
func PolicyByKey(key string) (PolicyRule, bool) {
	p, ok := policyByKey[key]
	return p, ok
}

// MatchProductPolicies returns the policy keys triggered by keywords found in
// the given text, in policy declaration order.
func MatchProductPolicies(text string) []string {
	lower := strings.ToLower(text)
	var keys []string
	for _, p := range Policies {
		for _, kw := range p.Keywords {
			if strings.Contains(lower, kw) {
				keys = append(keys, p.Key)
				break
			}
		}
	}
	return keys
}

// WarrantyStatus describes whether a purchase is still inside a warranty
// period.
type WarrantyStatus struct {
	Covered       bool
	PolicyKey     string
	MonthsElapsed int
	MonthsTotal   int
	Lifetime      bool
}

// CheckWarranty evaluates warranty coverage for a purchase date against a
// policy. Lifetime policies always report covered.
func CheckWarranty(policyKey string, purchased, now time.Time) (WarrantyStatus, error) {
	p, ok := policyByKey[policyKey]
	if !ok {
		return WarrantyStatus{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, policyKey)
	}
	status := WarrantyStatus{PolicyKey: policyKey, MonthsTotal: p.CoverageMonths, Lifetime: p.Lifetime}
	if p.Lifetime {
		status.Covered = true
		return status, nil
	}
	if p.CoverageMonths == 0 {
		return status, fmt.Errorf("%w: %q has no warranty period", ErrUnknownPolicy, policyKey)
	}
	status.MonthsElapsed = monthsBetween(purchased, now)
	status.Covered = status.MonthsElapsed < p.CoverageMonths
	return status, nil
}

// WindowStatus describes a time-boxed claim window check.
type WindowStatus struct {
	Inside               bool
	DaysElapsed          int
	WindowDays           int
	RestockingFeePercent int
}

// CheckWindow evaluates a delivery-dated claim window (returns, missing
// parts) for a policy.
func CheckWindow(policyKey string, delivered, now time.Time) (WindowStatus, error) {
	p, ok := policyByKey[policyKey]
	if !ok || p.WindowDays == 0 {
		return WindowStatus{}, fmt.Errorf("%w: %q has no claim window", ErrUnknownPolicy, policyKey)
	}
	days := int(now.Sub(delivered).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return WindowStatus{
		Inside:               days <= p.WindowDays,
		DaysElapsed:          days,
		WindowDays:           p.WindowDays,
		RestockingFeePercent: p.RestockingFeePercent,
	}, nil
}

func monthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months
}
