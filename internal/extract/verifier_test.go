package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abhijyotiba/Flusso-Automation/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

func ticketWithRawCodes(t *testing.T) (*ticket.Ticket, *ticket.Facts) {
	t.Helper()
	tk := &ticket.Ticket{
		ID:      "T-2001",
		Subject: "Cartridge question",
		Text:    "Can I upgrade my PBV1005 with the PBV2105 cartridge? Finish is brushed nickel.",
	}
	return tk, Extract(tk)
}

func TestVerifyAppliesTierTwo(t *testing.T) {
	tk, facts := ticketWithRawCodes(t)

	client := llm.NewFake(`{
		"confirmed_models": ["PBV1005", "PBV2105"],
		"corrected_models": {},
		"additional_models": [],
		"confirmed_finishes": ["Brushed Nickel PVD"]
	}`)

	NewVerifier(client).Verify(context.Background(), tk, facts)

	if !facts.Verified {
		t.Fatal("verified flag not set")
	}
	if diff := cmp.Diff([]string{"PBV1005", "PBV2105"}, facts.VerifiedModels); diff != "" {
		t.Errorf("verified models mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Brushed Nickel PVD"}, facts.VerifiedFinishes); diff != "" {
		t.Errorf("verified finishes mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyMergesCorrections(t *testing.T) {
	tk, facts := ticketWithRawCodes(t)

	client := llm.NewFake(`{
		"confirmed_models": ["PBV2105"],
		"corrected_models": {"PBV1005": "PBV.1005"},
		"additional_models": ["HS6270"],
		"confirmed_finishes": []
	}`)

	NewVerifier(client).Verify(context.Background(), tk, facts)

	if diff := cmp.Diff([]string{"PBV2105", "PBV.1005", "HS6270"}, facts.VerifiedModels); diff != "" {
		t.Errorf("merged models mismatch (-want +got):\n%s", diff)
	}
	if facts.Corrections["PBV1005"] != "PBV.1005" {
		t.Errorf("corrections not stored: %v", facts.Corrections)
	}
}

func TestVerifyRunsOnce(t *testing.T) {
	tk, facts := ticketWithRawCodes(t)

	client := llm.NewFake(`{"confirmed_models": ["PBV1005"], "corrected_models": {}, "additional_models": [], "confirmed_finishes": []}`)
	v := NewVerifier(client)

	v.Verify(context.Background(), tk, facts)
	v.Verify(context.Background(), tk, facts)

	if client.CallCount() != 1 {
		t.Errorf("expected exactly 1 delegate call, got %d", client.CallCount())
	}
}

func TestVerifyDelegateFailureKeepsTierOne(t *testing.T) {
	tk, facts := ticketWithRawCodes(t)

	client := llm.NewFake("")
	client.Errs = []error{errors.New("timeout")}
	v := NewVerifier(client)

	v.Verify(context.Background(), tk, facts)

	if !facts.Verified {
		t.Error("failed pass must still mark verification done")
	}
	if len(facts.VerifiedModels) != 0 {
		t.Error("tier 2 must stay empty on delegate failure")
	}
	// Tier 1 is untouched.
	if len(facts.RawProductCodes) != 2 {
		t.Errorf("tier 1 candidates lost: %+v", facts.RawProductCodes)
	}

	// The failure consumed the single attempt; a second call must not
	// reach the delegate again.
	v.Verify(context.Background(), tk, facts)
	if client.CallCount() != 1 {
		t.Errorf("expected exactly 1 delegate call, got %d", client.CallCount())
	}
}

func TestVerifyMalformedOutputKeepsTierOne(t *testing.T) {
	tk, facts := ticketWithRawCodes(t)

	client := llm.NewFake("sorry, I cannot help")
	v := NewVerifier(client)

	v.Verify(context.Background(), tk, facts)

	if !facts.Verified || len(facts.VerifiedModels) != 0 {
		t.Error("malformed output must mark the pass done with tier 2 empty")
	}

	v.Verify(context.Background(), tk, facts)
	if client.CallCount() != 1 {
		t.Errorf("expected exactly 1 delegate call, got %d", client.CallCount())
	}
}

func TestVerifyNothingToVerify(t *testing.T) {
	tk := &ticket.Ticket{ID: "T-2002", Text: "Where is my order?"}
	facts := Extract(tk)

	client := llm.NewFake("unused")
	NewVerifier(client).Verify(context.Background(), tk, facts)

	if !facts.Verified {
		t.Error("empty candidate set should mark verification done")
	}
	if client.CallCount() != 0 {
		t.Error("no delegate call expected without candidates")
	}
}
