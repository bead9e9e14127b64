// Package logging provides categorized structured logging for the Flusso
// ticket engine. Each subsystem logs through its own named zap logger so a
// single pipeline run can be filtered by stage.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryPipeline   Category = "pipeline"   // end-to-end run orchestration
	CategoryAgent      Category = "agent"      // decision loop iterations
	CategoryTools      Category = "tools"      // tool registration and execution
	CategoryExtract    Category = "extract"    // deterministic extraction
	CategoryVerify     Category = "verify"     // LLM fact verification
	CategoryEvidence   Category = "evidence"   // evidence resolution
	CategoryConstraint Category = "constraint" // requirement validation
	CategoryEnforce    Category = "enforce"    // response enforcement
	CategoryLLM        Category = "llm"        // provider API calls
	CategoryCatalog    Category = "catalog"    // catalog lookups and cache
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	byCat   = make(map[Category]*zap.SugaredLogger)
	enabled = false
)

// Initialize builds the root logger from a level and format. Format "json"
// selects the zap production encoder, anything else the console encoder.
// Safe to call more than once; the last call wins.
func Initialize(level, format string) error {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil && level != "" {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger
	byCat = make(map[Category]*zap.SugaredLogger)
	enabled = true
	return nil
}

// Disable swaps in a no-op root. Used by tests and by commands that only
// print user-facing output.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	root = zap.NewNop()
	byCat = make(map[Category]*zap.SugaredLogger)
	enabled = false
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// For returns the sugared logger for a category.
func For(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := byCat[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := byCat[cat]; ok {
		return l
	}
	l := root.Named(string(cat)).Sugar()
	byCat[cat] = l
	return l
}

// Category convenience wrappers, mirroring call sites across the codebase.

func Pipeline(format string, args ...any)   { For(CategoryPipeline).Infof(format, args...) }
func Agent(format string, args ...any)      { For(CategoryAgent).Infof(format, args...) }
func AgentDebug(format string, args ...any) { For(CategoryAgent).Debugf(format, args...) }
func Tools(format string, args ...any)      { For(CategoryTools).Infof(format, args...) }
func ToolsDebug(format string, args ...any) { For(CategoryTools).Debugf(format, args...) }
func Extract(format string, args ...any)    { For(CategoryExtract).Debugf(format, args...) }
func Verify(format string, args ...any)     { For(CategoryVerify).Infof(format, args...) }
func Evidence(format string, args ...any)   { For(CategoryEvidence).Infof(format, args...) }
func Constraint(format string, args ...any) { For(CategoryConstraint).Infof(format, args...) }
func Enforce(format string, args ...any)    { For(CategoryEnforce).Infof(format, args...) }
func LLM(format string, args ...any)        { For(CategoryLLM).Debugf(format, args...) }
func Catalog(format string, args ...any)    { For(CategoryCatalog).Debugf(format, args...) }

func Warn(cat Category, format string, args ...any)  { For(cat).Warnf(format, args...) }
func Error(cat Category, format string, args ...any) { For(cat).Errorf(format, args...) }
