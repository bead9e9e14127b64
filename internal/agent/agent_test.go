package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation/internal/catalog"
	"github.com/abhijyotiba/Flusso-Automation/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
	"github.com/abhijyotiba/Flusso-Automation/internal/tools"
)

func agentFixture(t *testing.T, fake *llm.Fake) (*Agent, *ticket.Ticket, *ticket.Facts) {
	t.Helper()

	c := catalog.FromProducts([]*catalog.Product{
		{
			ModelNo:     "PBV1005ACP",
			GroupNumber: "PBV1005A",
			Title:       "Serie 100 Pressure Balance Valve Trim",
			Category:    "Shower",
			FinishCode:  "CP",
			FinishName:  "Chrome",
		},
	})

	findings := &tools.Findings{}
	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterBuiltins(registry, tools.Builtins{Catalog: c, Findings: findings}))

	tk := &ticket.Ticket{
		ID:      "501",
		Subject: "Valve trim leaking",
		Text:    "My PBV1005ACP started leaking last week.",
	}
	return New(fake, registry, findings), tk, ticket.NewFacts()
}

func TestRunFinishesWithIdentification(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`{"action": "tool", "tool": "product_lookup", "args": {"model": "PBV1005ACP"}}`,
		`{"action": "finish", "finish": {"identified": true, "model": "PBV1005ACP", "name": "Serie 100 Pressure Balance Valve Trim", "category": "Shower", "confidence": 0.95, "reasoning": "exact catalog match"}}`,
	}}
	a, tk, facts := agentFixture(t, fake)

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)

	require.Equal(t, StatusFinished, result.Status)
	require.NotNil(t, result.Finish)
	require.Equal(t, "PBV1005ACP", result.Finish.Model)
	require.Equal(t, 2, result.Iterations)
	require.NotEmpty(t, result.Evidence)

	// The catalog confirmation landed in the tier-3 facts.
	require.Equal(t, "PBV1005ACP", facts.ConfirmedModel)
	require.Equal(t, "product_lookup", facts.ConfirmedModelSource)
	require.Equal(t, 1.0, facts.ConfirmedModelConfidence)
}

func TestRunFailsAfterConsecutiveMalformed(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`I think we should look this up in the catalog.`,
		`{"action": "interpretive_dance"}`,
	}}
	a, tk, facts := agentFixture(t, fake)

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)

	require.Equal(t, StatusFailed, result.Status)
	require.Equal(t, 2, result.Iterations)
	require.Contains(t, result.FailReason, "consecutive malformed")
	require.Len(t, result.Steps, 2)
}

func TestMalformedCounterResetsOnSuccess(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`garbage`,
		`{"action": "tool", "tool": "product_lookup", "args": {"model": "PBV1005ACP"}}`,
		`more garbage`,
		`{"action": "finish", "finish": {"identified": true, "model": "PBV1005ACP", "confidence": 0.9}}`,
	}}
	a, tk, facts := agentFixture(t, fake)

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)
	require.Equal(t, StatusFinished, result.Status)
	require.Equal(t, 4, result.Iterations)
}

func TestRunExhaustsIterationCap(t *testing.T) {
	// The model keeps investigating and never finishes.
	fake := &llm.Fake{Responses: []string{
		`{"action": "tool", "tool": "product_lookup", "args": {"model": "PBV1005ACP"}}`,
	}}
	a, tk, facts := agentFixture(t, fake)
	a.MaxIterations = 3

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)

	require.Equal(t, StatusExhausted, result.Status)
	require.Equal(t, 3, result.Iterations)
	require.Len(t, result.Steps, 3)
	require.Contains(t, result.FailReason, "iteration cap 3")

	// Partial results survive: the lookups still confirmed the model.
	require.NotEmpty(t, result.Evidence)
	require.Equal(t, "PBV1005ACP", facts.ConfirmedModel)
}

func TestRunContextCancellation(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`{"action": "tool", "tool": "product_lookup", "args": {"model": "PBV1005ACP"}}`,
	}}
	a, tk, facts := agentFixture(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := a.Run(ctx, tk, facts)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusFailed, result.Status)
	require.Empty(t, result.Steps)
}

func TestRunUnknownToolCountsAsMalformed(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`{"action": "tool", "tool": "crystal_ball", "args": {}}`,
		`{"action": "tool", "tool": "crystal_ball", "args": {}}`,
	}}
	a, tk, facts := agentFixture(t, fake)

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.Contains(t, result.FailReason, "consecutive malformed")
}

func TestDecisionRequestFailureIsRetried(t *testing.T) {
	// One transient delegate failure must not end the run.
	fake := &llm.Fake{
		Responses: []string{
			``,
			`{"action": "finish", "finish": {"identified": false, "confidence": 0.1, "reasoning": "nothing concrete"}}`,
		},
		Errs: []error{errors.New("upstream deadline exceeded"), nil},
	}
	a, tk, facts := agentFixture(t, fake)

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)

	require.Equal(t, StatusFinished, result.Status)
	require.Equal(t, 2, result.Iterations)
	require.Len(t, result.Steps, 2)
	require.Equal(t, "decision_error", result.Steps[0].Action)
}

func TestRunFailsAfterConsecutiveDecisionFaults(t *testing.T) {
	fake := &llm.Fake{
		Responses: []string{``, ``},
		Errs:      []error{errors.New("upstream 500"), errors.New("upstream 500")},
	}
	a, tk, facts := agentFixture(t, fake)

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)

	require.Equal(t, StatusFailed, result.Status)
	require.Contains(t, result.FailReason, "consecutive decision faults")
	require.Len(t, result.Steps, 2)
}

// blockingClient never answers; only its context ends the call.
type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestDecisionTimeoutBoundsEachCall(t *testing.T) {
	_, tk, facts := agentFixture(t, &llm.Fake{})
	registry := tools.NewRegistry()
	findings := &tools.Findings{}

	a := New(blockingClient{}, registry, findings)
	a.DecisionTimeout = 5 * time.Millisecond

	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)

	// The run context stays alive, so each timed-out call is a bounded
	// loop-level fault.
	require.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Steps, 2)
	require.Equal(t, "decision_error", result.Steps[0].Action)
	require.Contains(t, result.Steps[0].Err, context.DeadlineExceeded.Error())
}

func TestMalformedCounterResetsOnToolFailure(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`garbage`,
		`{"action": "tool", "tool": "flaky_search", "args": {}}`,
		`more garbage`,
		`{"action": "finish", "finish": {"identified": false, "confidence": 0}}`,
	}}

	_, tk, facts := agentFixture(t, fake)
	registry := tools.NewRegistry()
	registry.MustRegister(&tools.Tool{
		Name:        "flaky_search",
		Description: "always fails with a transient error",
		Category:    tools.CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("upstream timeout")
		},
	})

	a := New(fake, registry, &tools.Findings{})
	result, err := a.Run(context.Background(), tk, facts)
	require.NoError(t, err)

	// The failing tool call was a well-formed decision, so the malformed
	// streak restarts after it.
	require.Equal(t, StatusFinished, result.Status)
	require.Equal(t, 4, result.Iterations)
}

func TestDecodeDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"tool call", `{"action": "tool", "tool": "product_lookup", "args": {"model": "X"}}`, false},
		{"finish not identified", `{"action": "finish", "finish": {"identified": false, "confidence": 0.2}}`, false},
		{"fenced json", "```json\n{\"action\": \"finish\", \"finish\": {\"identified\": false, \"confidence\": 0}}\n```", false},
		{"no json", `let me think about that`, true},
		{"unknown action", `{"action": "ponder"}`, true},
		{"tool without name", `{"action": "tool"}`, true},
		{"identified without model", `{"action": "finish", "finish": {"identified": true, "confidence": 0.9}}`, true},
		{"confidence out of range", `{"action": "finish", "finish": {"identified": false, "confidence": 1.7}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeDecision(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedDecision)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
