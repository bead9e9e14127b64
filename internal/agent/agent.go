// Package agent runs the bounded investigation loop that identifies which
// product a ticket is about. Each iteration asks the model for one decision,
// either a tool call or a finish, and every tool observation is fed back into
// the next decision. The loop always terminates: iteration cap, repeated
// malformed decisions, and context cancellation all end it, and whatever was
// learned so far is returned.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhijyotiba/Flusso-Automation/internal/evidence"
	"github.com/abhijyotiba/Flusso-Automation/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
	"github.com/abhijyotiba/Flusso-Automation/internal/tools"
)

// WriterName tags tier-3 mutations in the facts audit trail.
const WriterName = "agent"

// DefaultMaxIterations bounds the loop when the caller does not.
const DefaultMaxIterations = 15

// maxConsecutiveMalformed ends the run when the model keeps producing
// undecodable or invalid decisions.
const maxConsecutiveMalformed = 2

// Status describes how a run ended.
type Status string

const (
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusExhausted Status = "exhausted"
	StatusFailed    Status = "failed"
)

// Decision is the JSON shape the model must answer with.
type Decision struct {
	Action string         `json:"action"`
	Tool   string         `json:"tool,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Finish *Finish        `json:"finish,omitempty"`
}

// Finish is the terminal decision payload.
type Finish struct {
	Identified bool    `json:"identified"`
	Model      string  `json:"model,omitempty"`
	Name       string  `json:"name,omitempty"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Step records one loop iteration.
type Step struct {
	Iteration int            `json:"iteration"`
	Action    string         `json:"action"`
	Tool      string         `json:"tool,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Output    string         `json:"output,omitempty"`
	Err       string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"-"`
}

// Result is what a run produced, complete or not.
type Result struct {
	Status     Status         `json:"status"`
	Finish     *Finish        `json:"finish,omitempty"`
	Steps      []Step         `json:"steps"`
	Iterations int            `json:"iterations"`
	Evidence   []evidence.Item `json:"evidence,omitempty"`
	FailReason string         `json:"fail_reason,omitempty"`
}

// Agent drives the loop.
type Agent struct {
	client   llm.Client
	registry *tools.Registry
	findings *tools.Findings

	// MaxIterations caps the loop; DefaultMaxIterations when zero.
	MaxIterations int

	// DecisionTimeout bounds each decision-selection call. Zero means the
	// run context alone bounds it.
	DecisionTimeout time.Duration
}

// New builds an agent over a decision model, a tool registry, and the
// findings collector shared with the registered tools.
func New(client llm.Client, registry *tools.Registry, findings *tools.Findings) *Agent {
	return &Agent{
		client:        client,
		registry:      registry,
		findings:      findings,
		MaxIterations: DefaultMaxIterations,
	}
}

const decisionSystemPrompt = `You are a support investigation agent for a plumbing fixture company.
Your job is to identify the exact product a customer ticket is about, using the available tools.

Respond with a single JSON object and nothing else. Two forms are allowed:

To call a tool:
{"action": "tool", "tool": "<tool name>", "args": {<arguments per the tool schema>}}

To stop investigating:
{"action": "finish", "finish": {"identified": true|false, "model": "<model number>", "name": "<product name>", "category": "<product category>", "confidence": 0.0-1.0, "reasoning": "<one sentence>"}}

Rules:
- Prefer product_lookup when any model number candidate is known.
- Finish with identified=false when the ticket does not name or show a specific product.
- Never invent model numbers that no tool returned.`

// Run executes the loop for one ticket. The returned result is always
// populated; the error is non-nil only for context cancellation.
func (a *Agent) Run(ctx context.Context, t *ticket.Ticket, facts *ticket.Facts) (*Result, error) {
	maxIterations := a.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	result := &Result{Status: StatusRunning}
	malformed := 0

	logging.Agent("run start: ticket=%s max_iterations=%d tools=%d", t.ID, maxIterations, a.registry.Count())

	for i := 1; i <= maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			result.Status = StatusFailed
			result.FailReason = fmt.Sprintf("context canceled: %v", err)
			a.settle(result, facts)
			return result, err
		}

		result.Iterations = i
		raw, err := a.requestDecision(ctx, t, facts, result.Steps, maxIterations-i)
		if err != nil {
			if ctx.Err() != nil {
				result.Status = StatusFailed
				result.FailReason = fmt.Sprintf("context canceled: %v", ctx.Err())
				a.settle(result, facts)
				return result, ctx.Err()
			}
			// A timed-out or failed selection call is a failed
			// observation, not a run failure; the next iteration may
			// choose differently. Bounded like malformed decisions.
			malformed++
			logging.Warn(logging.CategoryAgent, "iteration %d: decision request failed (%d consecutive): %v", i, malformed, err)
			result.Steps = append(result.Steps, Step{
				Iteration: i, Action: "decision_error",
				Err: err.Error(),
			})
			if malformed >= maxConsecutiveMalformed {
				result.Status = StatusFailed
				result.FailReason = fmt.Sprintf("%d consecutive decision faults: %v", malformed, err)
				a.settle(result, facts)
				return result, nil
			}
			continue
		}

		decision, derr := decodeDecision(raw)
		if derr != nil {
			malformed++
			logging.Warn(logging.CategoryAgent, "iteration %d: malformed decision (%d consecutive): %v", i, malformed, derr)
			result.Steps = append(result.Steps, Step{
				Iteration: i, Action: "malformed",
				Err: derr.Error(),
			})
			if malformed >= maxConsecutiveMalformed {
				result.Status = StatusFailed
				result.FailReason = fmt.Sprintf("%d consecutive malformed decisions: %v", malformed, derr)
				a.settle(result, facts)
				return result, nil
			}
			continue
		}

		if decision.Action == "finish" {
			result.Status = StatusFinished
			result.Finish = decision.Finish
			result.Steps = append(result.Steps, Step{Iteration: i, Action: "finish"})
			logging.Agent("iteration %d: finish identified=%v model=%q confidence=%.2f",
				i, decision.Finish.Identified, decision.Finish.Model, decision.Finish.Confidence)
			a.settle(result, facts)
			return result, nil
		}

		step := Step{Iteration: i, Action: "tool", Tool: decision.Tool, Args: decision.Args}
		start := time.Now()
		toolResult, terr := a.registry.Execute(ctx, decision.Tool, decision.Args)
		step.Duration = time.Since(start)

		if terr != nil {
			// Unknown tools and bad arguments count as malformed
			// decisions; a genuine tool failure is a well-formed choice
			// and clears the streak.
			step.Err = terr.Error()
			if isDecisionFault(terr) {
				malformed++
				if malformed >= maxConsecutiveMalformed {
					result.Steps = append(result.Steps, step)
					result.Status = StatusFailed
					result.FailReason = fmt.Sprintf("%d consecutive malformed decisions: %v", malformed, terr)
					a.settle(result, facts)
					return result, nil
				}
			} else {
				malformed = 0
			}
			logging.Warn(logging.CategoryAgent, "iteration %d: tool %s failed: %v", i, decision.Tool, terr)
		} else {
			malformed = 0
			step.Output = toolResult.Output
			logging.AgentDebug("iteration %d: %s -> %d bytes in %dms", i, decision.Tool, len(toolResult.Output), toolResult.DurationMs)
		}
		result.Steps = append(result.Steps, step)
	}

	result.Status = StatusExhausted
	result.FailReason = fmt.Sprintf("iteration cap %d reached without a finish decision", maxIterations)
	logging.Agent("run exhausted after %d iterations: ticket=%s", maxIterations, t.ID)
	a.settle(result, facts)
	return result, nil
}

// requestDecision runs one decision-selection call under its own timeout
// when one is configured.
func (a *Agent) requestDecision(ctx context.Context, t *ticket.Ticket, facts *ticket.Facts, steps []Step, remaining int) (string, error) {
	if a.DecisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.DecisionTimeout)
		defer cancel()
	}
	return a.client.CompleteWithSystem(ctx, decisionSystemPrompt, a.decisionPrompt(t, facts, steps, remaining))
}

// settle copies collected evidence into the result and commits any catalog
// confirmation to the tier-3 facts. Runs on every exit path so partial runs
// keep what they learned.
func (a *Agent) settle(result *Result, facts *ticket.Facts) {
	if a.findings == nil {
		return
	}
	result.Evidence = a.findings.Items()

	for _, item := range result.Evidence {
		if item.Tier != evidence.TierCatalogConfirmed {
			continue
		}
		updates := map[string]any{
			"confirmed_model":            item.Model,
			"confirmed_model_source":     item.Source,
			"confirmed_model_confidence": item.Confidence,
		}
		if err := facts.Apply(WriterName, updates); err != nil {
			logging.Warn(logging.CategoryAgent, "recording catalog confirmation: %v", err)
		}
		break
	}
}

// decisionPrompt assembles the per-iteration user prompt: ticket, facts,
// tool catalog, then the history so far.
func (a *Agent) decisionPrompt(t *ticket.Ticket, facts *ticket.Facts, steps []Step, remaining int) string {
	var b strings.Builder

	b.WriteString("## Ticket\n")
	fmt.Fprintf(&b, "Subject: %s\n", t.Subject)
	fmt.Fprintf(&b, "Category: %s\n", t.Category)
	fmt.Fprintf(&b, "Body:\n%s\n\n", t.Text)

	b.WriteString("## Known facts\n")
	b.WriteString(facts.Summary())
	b.WriteString("\n## Available tools\n")
	b.WriteString(a.registry.PromptCatalog())

	if len(steps) > 0 {
		b.WriteString("\n## Investigation so far\n")
		for _, s := range steps {
			switch {
			case s.Err != "":
				fmt.Fprintf(&b, "%d. %s %s -> ERROR: %s\n", s.Iteration, s.Action, s.Tool, s.Err)
			case s.Action == "tool":
				args, _ := json.Marshal(s.Args)
				fmt.Fprintf(&b, "%d. %s(%s) -> %s\n", s.Iteration, s.Tool, args, s.Output)
			default:
				fmt.Fprintf(&b, "%d. %s\n", s.Iteration, s.Action)
			}
		}
	}

	if remaining <= 2 {
		fmt.Fprintf(&b, "\nOnly %d iteration(s) remain after this one. Finish with your best conclusion rather than starting a new line of investigation.\n", remaining)
	}

	b.WriteString("\nDecide the next step. Reply with one JSON object only.\n")
	return b.String()
}

func decodeDecision(raw string) (*Decision, error) {
	var d Decision
	if err := llm.DecodeJSON(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}
	switch d.Action {
	case "tool":
		if strings.TrimSpace(d.Tool) == "" {
			return nil, fmt.Errorf("%w: tool action without tool name", ErrMalformedDecision)
		}
		if d.Args == nil {
			d.Args = map[string]any{}
		}
	case "finish":
		if d.Finish == nil {
			return nil, fmt.Errorf("%w: finish action without finish payload", ErrMalformedDecision)
		}
		if d.Finish.Identified && strings.TrimSpace(d.Finish.Model) == "" {
			return nil, fmt.Errorf("%w: identified finish without a model", ErrMalformedDecision)
		}
		if d.Finish.Confidence < 0 || d.Finish.Confidence > 1 {
			return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedDecision, d.Finish.Confidence)
		}
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedDecision, d.Action)
	}
	return &d, nil
}

// isDecisionFault reports whether a tool error was the model's fault rather
// than the tool's.
func isDecisionFault(err error) bool {
	return errorsIsAny(err, tools.ErrToolNotFound, tools.ErrMissingRequiredArg, tools.ErrInvalidArgType)
}
