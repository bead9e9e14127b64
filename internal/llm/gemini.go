package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
}

// DefaultGeminiConfig returns settings tuned for structured decision output.
// Near-zero temperature keeps action selection reproducible across runs.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:      apiKey,
		Model:       "gemini-2.0-flash",
		Temperature: 0.1,
		MaxRetries:  3,
	}
}

// GeminiClient implements Client on the Google GenAI API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxRetries  int
}

// NewGeminiClient creates a Gemini-backed completion client.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
	}, nil
}

// Complete sends a prompt without a system message.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction. Transient
// failures are retried with exponential backoff: 1s, 2s, 4s.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			lastErr = err
			logging.LLM("gemini call failed (attempt %d/%d): %v", i+1, c.maxRetries+1, err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			lastErr = ErrEmptyCompletion
			continue
		}

		logging.LLM("gemini completion in %v (%d chars)", time.Since(start), len(text))
		return text, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}
