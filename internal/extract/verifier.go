package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

// VerifierWriter tags tier-2 mutations in the facts audit trail.
const VerifierWriter = "verifier"

const verifierSystemPrompt = `You are a product identification validator for a plumbing fixtures support desk.
You are given a customer ticket and product codes found by a regex pass.
Confirm codes that really refer to products, correct codes the regex mis-split,
and add codes the regex missed. Answer with JSON only:
{"confirmed_models": [...], "corrected_models": {"wrong": "right"}, "additional_models": [...], "confirmed_finishes": [...]}`

// verifierResponse is the JSON the model must return.
type verifierResponse struct {
	ConfirmedModels   []string          `json:"confirmed_models"`
	CorrectedModels   map[string]string `json:"corrected_models"`
	AdditionalModels  []string          `json:"additional_models"`
	ConfirmedFinishes []string          `json:"confirmed_finishes"`
}

// Verifier runs the one-shot tier-2 semantic pass over tier-1 facts.
type Verifier struct {
	client llm.Client
}

// NewVerifier builds a verifier on a reasoning client.
func NewVerifier(client llm.Client) *Verifier {
	return &Verifier{client: client}
}

// Verify confirms and corrects the tier-1 candidates. It runs at most once
// per ticket; a second call is a no-op even after a delegate failure, which
// marks the pass done with tier 2 empty so downstream consumers fall back to
// tier 1 instead of retrying the delegate.
func (v *Verifier) Verify(ctx context.Context, t *ticket.Ticket, facts *ticket.Facts) {
	if facts.Verified {
		return
	}

	if len(facts.RawProductCodes) == 0 && len(facts.RawFinishMentions) == 0 {
		// Nothing to verify; mark done so the loop does not retrigger.
		if err := facts.Apply(VerifierWriter, map[string]any{"verified": true}); err != nil {
			logging.Error(logging.CategoryVerify, "verified flag apply rejected: %v", err)
		}
		return
	}

	raw, err := v.client.CompleteWithSystem(ctx, verifierSystemPrompt, v.buildPrompt(t, facts))
	if err != nil {
		logging.Warn(logging.CategoryVerify, "ticket %s: verification delegate failed, keeping tier 1 only: %v", t.ID, err)
		v.markDone(t, facts)
		return
	}

	var resp verifierResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		logging.Warn(logging.CategoryVerify, "ticket %s: malformed verification output, keeping tier 1 only: %v", t.ID, err)
		v.markDone(t, facts)
		return
	}

	models := mergeVerifiedModels(facts, resp)

	updates := map[string]any{"verified": true}
	if len(models) > 0 {
		updates["verified_models"] = models
	}
	if len(resp.ConfirmedFinishes) > 0 {
		updates["verified_finishes"] = resp.ConfirmedFinishes
	}
	if len(resp.CorrectedModels) > 0 {
		updates["corrections"] = resp.CorrectedModels
	}

	if err := facts.Apply(VerifierWriter, updates); err != nil {
		logging.Error(logging.CategoryVerify, "ticket %s: tier-2 apply rejected: %v", t.ID, err)
		return
	}

	logging.Verify("ticket %s: verified %d model(s), %d correction(s)", t.ID, len(models), len(resp.CorrectedModels))
}

// markDone records an empty tier-2 pass so a later call cannot retrigger the
// delegate for the same ticket.
func (v *Verifier) markDone(t *ticket.Ticket, facts *ticket.Facts) {
	if err := facts.Apply(VerifierWriter, map[string]any{"verified": true}); err != nil {
		logging.Error(logging.CategoryVerify, "ticket %s: verified flag apply rejected: %v", t.ID, err)
	}
}

func (v *Verifier) buildPrompt(t *ticket.Ticket, facts *ticket.Facts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket subject: %s\n\nTicket text:\n%s\n\n", t.Subject, t.Text)

	b.WriteString("Regex candidates:\n")
	for _, pc := range facts.RawProductCodes {
		if pc.FinishCode != "" {
			fmt.Fprintf(&b, "- %s (model %s, finish %s %s)\n", pc.FullSKU, pc.Model, pc.FinishCode, pc.FinishName)
		} else {
			fmt.Fprintf(&b, "- %s\n", pc.FullSKU)
		}
	}
	if len(facts.RawFinishMentions) > 0 {
		fmt.Fprintf(&b, "\nFinish mentions in text: %s\n", strings.Join(facts.RawFinishMentions, ", "))
	}
	return b.String()
}

// mergeVerifiedModels combines confirmations, corrections and additions into
// one ordered, deduplicated list.
func mergeVerifiedModels(facts *ticket.Facts, resp verifierResponse) []string {
	var models []string
	seen := make(map[string]bool)
	add := func(m string) {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !seen[m] {
			seen[m] = true
			models = append(models, m)
		}
	}

	for _, m := range resp.ConfirmedModels {
		add(m)
	}
	// A correction replaces its raw form when the raw candidate exists.
	for _, pc := range facts.RawProductCodes {
		if fixed, ok := resp.CorrectedModels[pc.Model]; ok {
			add(fixed)
		} else if fixed, ok := resp.CorrectedModels[pc.FullSKU]; ok {
			add(fixed)
		}
	}
	for _, m := range resp.AdditionalModels {
		add(m)
	}
	return models
}
