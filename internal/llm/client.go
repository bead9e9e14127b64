// Package llm provides the text-reasoning capability used by the fact
// verifier and the agent loop's action selection, plus helpers for pulling
// structured JSON out of model output.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Client is the minimal completion interface every provider implements.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Provider errors.
var (
	// ErrNoAPIKey is returned when a provider client is built without credentials.
	ErrNoAPIKey = errors.New("API key not configured")

	// ErrEmptyCompletion is returned when the provider returns no candidates.
	ErrEmptyCompletion = errors.New("no completion returned")

	// ErrNoJSON is returned when no JSON object can be found in model output.
	ErrNoJSON = errors.New("no JSON object in model output")
)

// ExtractJSON pulls the first JSON object out of model output, tolerating
// markdown code fences and prose around the object.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], nil
				}
			}
		}
	}
	return "", ErrNoJSON
}

// DecodeJSON extracts and unmarshals the first JSON object in model output.
func DecodeJSON(raw string, v any) error {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(obj), v)
}
