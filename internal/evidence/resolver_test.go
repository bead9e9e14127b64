package evidence

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

func TestResolveEmptySequence(t *testing.T) {
	b := Resolver{}.Resolve(nil)
	if b.Action != ActionRequestInfo {
		t.Errorf("action = %v, want request_info", b.Action)
	}
	if b.Primary != nil {
		t.Error("no primary expected without evidence")
	}
}

func TestResolveTopTierWinsRegardlessOfConfidence(t *testing.T) {
	items := []Item{
		{Tier: TierWeak, Source: "vision", Model: "HS6270", Confidence: 0.99},
		{Tier: TierCatalogConfirmed, Source: "catalog", Model: "PBV1005", Confidence: 0.80, ExactMatch: true},
		{Tier: TierRawFacts, Source: "ticket_text", Model: "DKM2420", Confidence: 0.95},
	}

	b := Resolver{}.Resolve(items)

	if b.Action != ActionProceed {
		t.Fatalf("action = %v, want proceed", b.Action)
	}
	if b.Primary.Model != "PBV1005" {
		t.Errorf("primary = %s, want catalog-confirmed PBV1005", b.Primary.Model)
	}
	// Authoritative confirmation forces full confidence.
	if b.FinalConfidence != 1.0 {
		t.Errorf("final confidence = %.2f, want 1.0", b.FinalConfidence)
	}
}

func TestResolveEarliestWinsConfidenceTie(t *testing.T) {
	items := []Item{
		{Tier: TierRawFacts, Source: "ticket_text", Model: "PBV1005", Confidence: 0.75},
		{Tier: TierRawFacts, Source: "ticket_text", Model: "PBV1005", Confidence: 0.75},
	}
	b := Resolver{}.Resolve(items)
	if b.Action != ActionProceed || b.Primary.Model != "PBV1005" {
		t.Fatalf("unexpected resolution: %+v", b)
	}
}

func TestResolveWeakTierConflictEscalates(t *testing.T) {
	items := []Item{
		{Tier: TierWeak, Source: "vision", Model: "HS6270", Confidence: 0.55},
		{Tier: TierWeak, Source: "past_tickets", Model: "DKM2420", Confidence: 0.52},
	}

	b := Resolver{}.Resolve(items)

	if b.Action != ActionEscalate {
		t.Fatalf("action = %v, want escalate", b.Action)
	}
	if b.ConflictReason == "" {
		t.Error("conflict reason missing")
	}
}

func TestResolveConflictOutsideEpsilonProceeds(t *testing.T) {
	items := []Item{
		{Tier: TierVisualHigh, Source: "vision", Model: "HS6270", Confidence: 0.93},
		{Tier: TierVisualHigh, Source: "vision", Model: "DKM2420", Confidence: 0.80},
	}

	b := Resolver{}.Resolve(items)

	if b.Action != ActionProceed {
		t.Fatalf("action = %v, want proceed", b.Action)
	}
	if b.Primary.Model != "HS6270" {
		t.Errorf("primary = %s, want HS6270", b.Primary.Model)
	}
}

func TestResolveAutoResolvePolicy(t *testing.T) {
	items := []Item{
		{Tier: TierWeak, Source: "vision", Model: "HS6270", Confidence: 0.55},
		{Tier: TierWeak, Source: "past_tickets", Model: "DKM2420", Confidence: 0.52},
	}

	b := Resolver{AutoResolve: true}.Resolve(items)

	if b.Action != ActionRequestInfo {
		t.Fatalf("action = %v, want request_info for weak-only evidence", b.Action)
	}
	if b.Primary == nil || b.Primary.Model != "HS6270" {
		t.Errorf("auto-resolve should pick higher confidence item, got %+v", b.Primary)
	}
	if b.ConflictReason == "" {
		t.Error("auto-resolved conflict should still be noted")
	}
}

func TestResolveWeakOnlyRequestsInfo(t *testing.T) {
	items := []Item{
		{Tier: TierWeak, Source: "vision", Model: "HS6270", Confidence: 0.60},
	}
	b := Resolver{}.Resolve(items)
	if b.Action != ActionRequestInfo {
		t.Errorf("action = %v, want request_info", b.Action)
	}
	if b.Primary == nil {
		t.Error("best guess should still be surfaced")
	}
}

func TestResolveSameModelDifferentSeparators(t *testing.T) {
	items := []Item{
		{Tier: TierVerifiedFacts, Source: "verified_facts", Model: "DKM.2420", Confidence: 0.85},
		{Tier: TierVerifiedFacts, Source: "verified_facts", Model: "DKM_2420", Confidence: 0.85},
	}
	b := Resolver{}.Resolve(items)
	if b.Action != ActionProceed {
		t.Errorf("separator variants are the same product, got %v", b.Action)
	}
}

func TestResolveDeterministic(t *testing.T) {
	items := []Item{
		{Tier: TierRawFacts, Source: "ticket_text", Model: "PBV1005", Confidence: 0.75},
		{Tier: TierVisualHigh, Source: "vision", Model: "PBV1005", Confidence: 0.92},
	}

	r := Resolver{}
	first := r.Resolve(items)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, r.Resolve(items)); diff != "" {
			t.Fatalf("resolver not idempotent (-first +again):\n%s", diff)
		}
	}
}

func TestItemsFromFacts(t *testing.T) {
	facts := ticket.NewFacts()
	if err := facts.Apply("extractor", map[string]any{
		"raw_product_codes": []ticket.ProductCode{{FullSKU: "PBV1005-BN", Model: "PBV1005"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := facts.Apply("verifier", map[string]any{
		"verified": true, "verified_models": []string{"PBV1005"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := facts.Apply("agent", map[string]any{
		"confirmed_model": "PBV1005", "confirmed_model_source": "catalog", "confirmed_model_confidence": 0.95,
	}); err != nil {
		t.Fatal(err)
	}

	items := ItemsFromFacts(facts)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Tier != TierCatalogConfirmed || items[1].Tier != TierVerifiedFacts || items[2].Tier != TierRawFacts {
		t.Errorf("tier ordering wrong: %+v", items)
	}

	b := Resolver{}.Resolve(items)
	if b.FinalConfidence != 1.0 || b.Primary.Model != "PBV1005" {
		t.Errorf("catalog confirmation should dominate: %+v", b)
	}
}
