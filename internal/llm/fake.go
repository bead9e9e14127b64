package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Client for tests and for offline dry runs. Responses
// are returned in order; when the script runs out, the last response
// repeats. A nil error script means every call succeeds.
type Fake struct {
	mu        sync.Mutex
	Responses []string
	Errs      []error
	Calls     []FakeCall
	next      int
}

// FakeCall records one completion request.
type FakeCall struct {
	System string
	User   string
}

// NewFake builds a fake client from a response script.
func NewFake(responses ...string) *Fake {
	return &Fake{Responses: responses}
}

func (f *Fake) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *Fake) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, FakeCall{System: systemPrompt, User: userPrompt})

	idx := f.next
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	f.next++

	if idx < len(f.Errs) && f.Errs[idx] != nil {
		return "", f.Errs[idx]
	}
	if idx < 0 {
		return "", ErrEmptyCompletion
	}
	return f.Responses[idx], nil
}

// CallCount returns how many completions were requested.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
