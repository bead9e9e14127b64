package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Agent.MaxIterations != 15 {
		t.Errorf("default max iterations = %d, want 15", cfg.Agent.MaxIterations)
	}
	if cfg.Evidence.ConflictEpsilon != 0.05 {
		t.Errorf("default conflict epsilon = %v, want 0.05", cfg.Evidence.ConflictEpsilon)
	}
	if cfg.Evidence.AutoResolveConflicts {
		t.Error("conflicts should escalate by default")
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("default model = %q", cfg.LLM.Model)
	}
	if !cfg.Pipeline.VerifyFacts {
		t.Error("fact verification should be on by default")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Agent.MaxIterations != 15 {
		t.Errorf("expected defaults, got max_iterations=%d", cfg.Agent.MaxIterations)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
agent:
  max_iterations: 5
  decision_timeout: 10s
evidence:
  auto_resolve_conflicts: true
logging:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("max_iterations = %d, want 5", cfg.Agent.MaxIterations)
	}
	if !cfg.Evidence.AutoResolveConflicts {
		t.Error("auto_resolve_conflicts should be true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("llm model = %q, want default", cfg.LLM.Model)
	}
	if got := cfg.GetDecisionTimeout(); got != 10*time.Second {
		t.Errorf("decision timeout = %v, want 10s", got)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("agent: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key-123")
	t.Setenv("FLUSSO_CATALOG", "/tmp/manifest.json")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIKey != "test-key-123" {
		t.Errorf("api key = %q, want env value", cfg.LLM.APIKey)
	}
	if cfg.Catalog.ManifestPath != "/tmp/manifest.json" {
		t.Errorf("manifest path = %q, want env value", cfg.Catalog.ManifestPath)
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "not-a-duration"
	cfg.Pipeline.TicketTimeout = ""

	if got := cfg.GetLLMTimeout(); got != 120*time.Second {
		t.Errorf("llm timeout fallback = %v, want 120s", got)
	}
	if got := cfg.GetTicketTimeout(); got != 300*time.Second {
		t.Errorf("ticket timeout fallback = %v, want 300s", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Agent.MaxIterations = 7
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Agent.MaxIterations != 7 {
		t.Errorf("round-tripped max_iterations = %d, want 7", loaded.Agent.MaxIterations)
	}
}
