package logging

import "testing"

func TestInitializeAndDisable(t *testing.T) {
	if err := Initialize("debug", "json"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !enabled {
		t.Error("expected logging to be enabled after Initialize")
	}

	// Category loggers must log without panicking.
	Agent("iteration %d of %d", 1, 15)
	ToolsDebug("executing %s", "catalog_lookup")
	Warn(CategoryEvidence, "conflict within epsilon %.2f", 0.05)

	Disable()
	if enabled {
		t.Error("expected logging to be disabled after Disable")
	}
	Pipeline("should be a no-op")
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	if err := Initialize("shouting", "text"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestForCachesLoggers(t *testing.T) {
	Disable()
	a := For(CategoryAgent)
	b := For(CategoryAgent)
	if a != b {
		t.Error("expected the same logger instance for repeated category lookups")
	}
}
