// Package tools provides the investigation tools the identification agent
// can call: catalog lookup, document search, vision search, past tickets,
// and attachment analysis. Tools are registered in a Registry and described
// to the model as a JSON-schema catalog; every call is validated against the
// schema before execution.
package tools

import (
	"context"
)

// Category classifies tools for selection and logging.
type Category string

const (
	// CategoryCatalog covers product catalog lookups.
	CategoryCatalog Category = "/catalog"

	// CategoryDocument covers spec sheet and manual search.
	CategoryDocument Category = "/document"

	// CategoryVision covers image similarity search.
	CategoryVision Category = "/vision"

	// CategoryHistory covers past ticket search.
	CategoryHistory Category = "/history"

	// CategoryAttachment covers attachment inspection.
	CategoryAttachment Category = "/attachment"

	// CategoryGeneral is for tools usable at any point.
	CategoryGeneral Category = "/general"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// Schema defines the JSON schema for tool arguments.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one callable investigation step.
type Tool struct {
	// Name is the unique identifier the model calls the tool by.
	Name string

	// Description explains what the tool does; it is rendered into the
	// decision prompt.
	Description string

	// Category classifies the tool.
	Category Category

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema Schema

	// Priority orders tools within a category (default 50, higher first).
	Priority int
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// WithPriority returns a copy of the tool with the given priority.
func (t *Tool) WithPriority(priority int) *Tool {
	copy := *t
	copy.Priority = priority
	return &copy
}

// Result wraps one tool execution with metadata.
type Result struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Output is the string output from the tool.
	Output string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *Result) IsSuccess() bool {
	return r.Error == nil
}
