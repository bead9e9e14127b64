// Package config holds the YAML configuration for the ticket resolution
// pipeline, with environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Flusso configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Agent loop configuration
	Agent AgentConfig `yaml:"agent"`

	// Evidence resolution configuration
	Evidence EvidenceConfig `yaml:"evidence"`

	// Product catalog configuration
	Catalog CatalogConfig `yaml:"catalog"`

	// Pipeline configuration
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the decision and verification model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
	Timeout     string  `yaml:"timeout"`
}

// AgentConfig configures the investigation loop.
type AgentConfig struct {
	// MaxIterations caps the loop.
	MaxIterations int `yaml:"max_iterations"`

	// DecisionTimeout bounds a single decision request.
	DecisionTimeout string `yaml:"decision_timeout"`
}

// EvidenceConfig configures evidence resolution.
type EvidenceConfig struct {
	// ConflictEpsilon is the same-tier confidence margin that counts as
	// a conflict.
	ConflictEpsilon float64 `yaml:"conflict_epsilon"`

	// AutoResolveConflicts picks the higher-confidence candidate instead
	// of escalating on a conflict.
	AutoResolveConflicts bool `yaml:"auto_resolve_conflicts"`
}

// CatalogConfig configures the product catalog.
type CatalogConfig struct {
	// ManifestPath is the JSON product manifest to load.
	ManifestPath string `yaml:"manifest_path"`
}

// PipelineConfig configures ticket processing.
type PipelineConfig struct {
	// MaxConcurrent bounds parallel ticket processing.
	MaxConcurrent int `yaml:"max_concurrent"`

	// VerifyFacts enables the LLM verification pass over extracted facts.
	VerifyFacts bool `yaml:"verify_facts"`

	// TicketTimeout bounds end-to-end processing of one ticket.
	TicketTimeout string `yaml:"ticket_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "flusso",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Temperature: 0.1,
			MaxRetries:  3,
			Timeout:     "120s",
		},

		Agent: AgentConfig{
			MaxIterations:   15,
			DecisionTimeout: "60s",
		},

		Evidence: EvidenceConfig{
			ConflictEpsilon:      0.05,
			AutoResolveConflicts: false,
		},

		Catalog: CatalogConfig{
			ManifestPath: "data/catalog_manifest.json",
		},

		Pipeline: PipelineConfig{
			MaxConcurrent: 4,
			VerifyFacts:   true,
			TicketTimeout: "300s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if path := os.Getenv("FLUSSO_CATALOG"); path != "" {
		c.Catalog.ManifestPath = path
	}
	if level := os.Getenv("FLUSSO_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetDecisionTimeout returns the per-decision timeout as a duration.
func (c *Config) GetDecisionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Agent.DecisionTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetTicketTimeout returns the per-ticket timeout as a duration.
func (c *Config) GetTicketTimeout() time.Duration {
	d, err := time.ParseDuration(c.Pipeline.TicketTimeout)
	if err != nil {
		return 300 * time.Second
	}
	return d
}
