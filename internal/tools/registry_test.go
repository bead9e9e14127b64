package tools

import (
	"context"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d tools", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:        "test_tool",
		Description: "A test tool",
		Category:    CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "success", nil
		},
		Schema: Schema{
			Required: []string{},
		},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name, "test_tool")
	}
	if !reg.Has("test_tool") {
		t.Error("Has returned false for registered tool")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "dupe",
		Category: CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", nil
		},
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := reg.Register(tool)
	if err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{
			name:    "empty name",
			tool:    &Tool{Name: "", Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }},
			wantErr: ErrToolNameEmpty,
		},
		{
			name:    "nil execute",
			tool:    &Tool{Name: "test", Execute: nil},
			wantErr: ErrToolExecuteNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.tool)
			if err == nil {
				t.Errorf("expected error %v, got nil", tt.wantErr)
			}
		})
	}
}

func TestGetByCategory(t *testing.T) {
	reg := NewRegistry()

	tools := []*Tool{
		{Name: "lookup", Category: CategoryCatalog, Priority: 80, Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }},
		{Name: "search", Category: CategoryCatalog, Priority: 60, Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }},
		{Name: "docs", Category: CategoryDocument, Priority: 50, Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }},
	}

	for _, tool := range tools {
		reg.MustRegister(tool)
	}

	catalogTools := reg.GetByCategory(CategoryCatalog)
	if len(catalogTools) != 2 {
		t.Errorf("expected 2 catalog tools, got %d", len(catalogTools))
	}

	// Should be sorted by priority (highest first)
	if catalogTools[0].Name != "lookup" {
		t.Errorf("expected lookup first (priority 80), got %s", catalogTools[0].Name)
	}
}

func TestExecute(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "echo",
		Category: CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			msg, _ := args["message"].(string)
			return "Echo: " + msg, nil
		},
		Schema: Schema{
			Required:   []string{"message"},
			Properties: map[string]Property{"message": {Type: "string"}},
		},
	}

	reg.MustRegister(tool)

	// Test successful execution
	result, err := reg.Execute(context.Background(), "echo", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "Echo: hello" {
		t.Errorf("got output %q, want %q", result.Output, "Echo: hello")
	}
	if !result.IsSuccess() {
		t.Error("expected IsSuccess to be true")
	}

	// Test missing required arg
	_, err = reg.Execute(context.Background(), "echo", map[string]any{})
	if err == nil {
		t.Error("expected error for missing required arg")
	}

	// Test tool not found
	_, err = reg.Execute(context.Background(), "nonexistent", map[string]any{})
	if err == nil {
		t.Error("expected error for nonexistent tool")
	}
}

func TestPromptCatalog(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Tool{
		Name:        "product_lookup",
		Description: "Look up a product by model number",
		Category:    CategoryCatalog,
		Execute:     func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
		Schema: Schema{
			Required:   []string{"model"},
			Properties: map[string]Property{"model": {Type: "string", Description: "Model number"}},
		},
	})
	reg.MustRegister(&Tool{
		Name:        "attachment_analyzer",
		Description: "Inspect attachments",
		Category:    CategoryAttachment,
		Priority:    95,
		Execute:     func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	})
	reg.MustRegister(&Tool{
		Name:        "past_tickets",
		Description: "Search resolved tickets",
		Category:    CategoryHistory,
		Priority:    40,
		Execute:     func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	})

	catalog := reg.PromptCatalog()
	if !strings.Contains(catalog, "product_lookup: Look up a product") {
		t.Errorf("catalog missing tool description:\n%s", catalog)
	}
	if !strings.Contains(catalog, `"required":["model"]`) {
		t.Errorf("catalog missing argument schema:\n%s", catalog)
	}
	// Tools are listed by priority, highest first.
	analyzer := strings.Index(catalog, "attachment_analyzer")
	lookup := strings.Index(catalog, "product_lookup")
	past := strings.Index(catalog, "past_tickets")
	if analyzer > lookup || lookup > past {
		t.Errorf("catalog not in priority order:\n%s", catalog)
	}
}
