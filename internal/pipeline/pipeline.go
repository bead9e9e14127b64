// Package pipeline wires the full ticket flow together: deterministic
// extraction, LLM verification, the identification agent, evidence
// resolution, constraint validation, reply drafting, and enforcement.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation/internal/agent"
	"github.com/abhijyotiba/Flusso-Automation/internal/catalog"
	"github.com/abhijyotiba/Flusso-Automation/internal/config"
	"github.com/abhijyotiba/Flusso-Automation/internal/constraint"
	"github.com/abhijyotiba/Flusso-Automation/internal/enforce"
	"github.com/abhijyotiba/Flusso-Automation/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation/internal/extract"
	"github.com/abhijyotiba/Flusso-Automation/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
	"github.com/abhijyotiba/Flusso-Automation/internal/tools"
)

// Drafter produces the customer-facing reply text.
type Drafter interface {
	Draft(ctx context.Context, t *ticket.Ticket, facts *ticket.Facts, bundle *evidence.Bundle, constraints *constraint.Result) (string, error)
}

// Outcome is everything one ticket run produced.
type Outcome struct {
	Ticket      *ticket.Ticket     `json:"ticket"`
	Facts       *ticket.Facts      `json:"facts"`
	Agent       *agent.Result      `json:"agent,omitempty"`
	Bundle      *evidence.Bundle   `json:"evidence"`
	Constraints *constraint.Result `json:"constraints"`

	// Draft is the reply as drafted; FinalText is the reply after
	// enforcement. Draft is always a prefix of FinalText.
	Draft     string          `json:"draft,omitempty"`
	FinalText string          `json:"final_text,omitempty"`
	Report    *enforce.Report `json:"enforcement,omitempty"`
}

// Option customizes a Processor.
type Option func(*Processor)

// WithDrafter replaces the default LLM drafter.
func WithDrafter(d Drafter) Option {
	return func(p *Processor) { p.drafter = d }
}

// WithVision enables the vision search tool.
func WithVision(v tools.VisionSearcher) Option {
	return func(p *Processor) { p.vision = v }
}

// WithHistory enables the past tickets tool.
func WithHistory(h tools.HistorySearcher) Option {
	return func(p *Processor) { p.history = h }
}

// WithDocuments replaces the catalog-backed document search.
func WithDocuments(d tools.DocumentSearcher) Option {
	return func(p *Processor) { p.documents = d }
}

// Processor runs tickets through the pipeline. Safe for concurrent use; each
// ticket gets its own tool registry and findings collector.
type Processor struct {
	cfg      *config.Config
	client   llm.Client
	catalog  *catalog.Catalog
	verifier *extract.Verifier
	resolver evidence.Resolver
	drafter  Drafter

	vision    tools.VisionSearcher
	history   tools.HistorySearcher
	documents tools.DocumentSearcher
}

// NewProcessor builds a processor. client may be nil, which disables
// verification and the agent loop; extraction, resolution, and validation
// still run and the reply falls back to the deterministic skeleton.
func NewProcessor(cfg *config.Config, client llm.Client, cat *catalog.Catalog, opts ...Option) *Processor {
	p := &Processor{
		cfg:     cfg,
		client:  client,
		catalog: cat,
		resolver: evidence.Resolver{
			Epsilon:     cfg.Evidence.ConflictEpsilon,
			AutoResolve: cfg.Evidence.AutoResolveConflicts,
		},
	}
	if client != nil {
		p.verifier = extract.NewVerifier(client)
		p.drafter = &llmDrafter{client: client}
	} else {
		p.drafter = SkeletonDrafter{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one ticket end to end. Stage failures downgrade the outcome
// rather than abort it: whatever was computed by then is returned.
func (p *Processor) Process(ctx context.Context, t *ticket.Ticket) (*Outcome, error) {
	if t == nil {
		return nil, fmt.Errorf("ticket is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.GetTicketTimeout())
	defer cancel()

	logging.Pipeline("processing ticket %s (category=%q, %d attachments)", t.ID, t.Category, len(t.Attachments))

	outcome := &Outcome{Ticket: t}

	// Tier 1: deterministic extraction.
	facts := extract.Extract(t)
	outcome.Facts = facts

	// Tier 2: LLM verification.
	if p.verifier != nil && p.cfg.Pipeline.VerifyFacts {
		p.verifier.Verify(ctx, t, facts)
	}

	// Tier 3: agent investigation.
	findings := &tools.Findings{}
	var agentResult *agent.Result
	if p.client != nil {
		registry := tools.NewRegistry()
		err := tools.RegisterBuiltins(registry, tools.Builtins{
			Catalog:   p.catalog,
			Findings:  findings,
			Documents: p.documents,
			Vision:    p.vision,
			History:   p.history,
			Ticket:    t,
		})
		if err != nil {
			return outcome, fmt.Errorf("registering tools: %w", err)
		}

		a := agent.New(p.client, registry, findings)
		a.MaxIterations = p.cfg.Agent.MaxIterations
		a.DecisionTimeout = p.cfg.GetDecisionTimeout()
		agentResult, err = a.Run(ctx, t, facts)
		outcome.Agent = agentResult
		if err != nil {
			// Context cancellation. Resolution and validation are pure,
			// so the partial outcome still carries both.
			outcome.Bundle = p.resolver.Resolve(p.collectEvidence(facts, agentResult))
			if constraints, verr := constraint.Validate(facts, t.Category, t.FullText()); verr == nil {
				outcome.Constraints = constraints
			}
			return outcome, err
		}
	}

	// Evidence resolution over facts plus everything the tools found.
	outcome.Bundle = p.resolver.Resolve(p.collectEvidence(facts, agentResult))

	// Constraint validation.
	constraints, err := constraint.Validate(facts, t.Category, t.FullText())
	if err != nil {
		return outcome, fmt.Errorf("validating constraints: %w", err)
	}
	outcome.Constraints = constraints
	logging.Pipeline("ticket %s: action=%s constraints: %s", t.ID, outcome.Bundle.Action, constraints.Summary())

	// Draft and enforce the reply.
	if p.drafter != nil {
		draft, err := p.drafter.Draft(ctx, t, facts, outcome.Bundle, constraints)
		if err != nil {
			logging.Warn(logging.CategoryPipeline, "ticket %s: drafting failed: %v", t.ID, err)
			return outcome, nil
		}
		outcome.Draft = draft
		outcome.FinalText, outcome.Report = enforce.Enforce(draft, constraints)
	}

	return outcome, nil
}

// collectEvidence merges fact-derived items with tool findings. Fact items
// come first so catalog confirmations recorded in the facts dominate.
func (p *Processor) collectEvidence(facts *ticket.Facts, agentResult *agent.Result) []evidence.Item {
	items := evidence.ItemsFromFacts(facts)
	if agentResult != nil {
		for _, item := range agentResult.Evidence {
			if item.Tier == evidence.TierCatalogConfirmed && facts.ConfirmedModel != "" &&
				evidence.NormalizeModel(item.Model) == evidence.NormalizeModel(facts.ConfirmedModel) {
				// Already represented by the tier-3 facts.
				continue
			}
			items = append(items, item)
		}
	}
	return items
}

// SkeletonDrafter composes a reply without an LLM. It only writes the
// acknowledgment; the enforcer appends every required citation and ask, so
// the final text is still complete.
type SkeletonDrafter struct{}

func (SkeletonDrafter) Draft(ctx context.Context, t *ticket.Ticket, facts *ticket.Facts, bundle *evidence.Bundle, constraints *constraint.Result) (string, error) {
	var b strings.Builder

	if name := strings.TrimSpace(t.RequesterName); name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", name)
	} else {
		b.WriteString("Hello,\n\n")
	}

	b.WriteString("Thank you for reaching out")
	if t.Subject != "" {
		fmt.Fprintf(&b, " about %q", t.Subject)
	}
	b.WriteString(".")

	if bundle != nil && bundle.Primary != nil {
		fmt.Fprintf(&b, " We have identified your product as %s", bundle.Primary.Model)
		if bundle.Primary.Name != "" {
			fmt.Fprintf(&b, " (%s)", bundle.Primary.Name)
		}
		b.WriteString(".")
	}

	b.WriteString(" Our team is reviewing your request and will follow up shortly.")
	return b.String(), nil
}

const draftSystemPrompt = `You are a customer support agent for a plumbing fixture company.
Write a warm, concise reply to the customer's ticket. Follow every constraint block exactly:
cite the required policies, ask for all missing information, and never ask for anything already provided.
Reply with the message text only, no preamble and no JSON.`

// llmDrafter drafts the reply with the decision model.
type llmDrafter struct {
	client llm.Client
}

func (d *llmDrafter) Draft(ctx context.Context, t *ticket.Ticket, facts *ticket.Facts, bundle *evidence.Bundle, constraints *constraint.Result) (string, error) {
	var prompt string
	prompt += fmt.Sprintf("## Ticket from %s\nSubject: %s\n\n%s\n", t.RequesterName, t.Subject, t.Text)
	prompt += "\n## What we know\n" + facts.Summary()
	if models := facts.BestModels(); len(models) > 0 {
		prompt += "Best model candidates: " + strings.Join(models, ", ") + "\n"
	}
	if bundle != nil {
		prompt += fmt.Sprintf("\n## Product identification\naction: %s\n%s\n", bundle.Action, bundle.Summary)
	}
	prompt += constraints.PromptBlock()

	reply, err := d.client.CompleteWithSystem(ctx, draftSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("drafting reply: %w", err)
	}
	return reply, nil
}
