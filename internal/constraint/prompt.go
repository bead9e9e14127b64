package constraint

import (
	"fmt"
	"strings"
)

// PromptBlock renders the constraint set as a block for injection into the
// reply-drafting prompt. Skipped results render as an empty string.
func (r *Result) PromptBlock() string {
	if r == nil || r.Skipped {
		return ""
	}

	divider := strings.Repeat("=", 71)
	lines := []string{
		"",
		divider,
		"MANDATORY CONSTRAINTS - YOU MUST FOLLOW THESE",
		divider,
		"",
	}

	if len(r.MustNotAsk) > 0 {
		lines = append(lines, "DO NOT ask for the following (already provided):")
		for _, item := range r.MustNotAsk {
			lines = append(lines, fmt.Sprintf("   - %s", item))
		}
		lines = append(lines, "")
	}

	if len(r.RequiredAsks) > 0 {
		lines = append(lines, "YOU MUST ask for the following (missing required info):")
		for _, ask := range r.RequiredAsks {
			lines = append(lines, fmt.Sprintf("   - %s", ask))
		}
		lines = append(lines, "")
	}

	if len(r.Conditional) > 0 {
		lines = append(lines, "CONSIDER asking for (depending on context):")
		for _, c := range r.Conditional {
			name := c.Field
			if n, ok := FieldNames[c.Field]; ok {
				name = n
			}
			lines = append(lines, fmt.Sprintf("   - %s: %s", name, c.Reason))
		}
		lines = append(lines, "")
	}

	if len(r.RequiredCitations) > 0 {
		lines = append(lines, "YOU MUST include these policy statements in your response:")
		for _, citation := range r.RequiredCitations {
			lines = append(lines, fmt.Sprintf("   - %q", citation))
		}
		lines = append(lines, "")
	}

	if !r.CanProceed && len(r.BlockingMissing) > 0 {
		lines = append(lines, "BLOCKING: Cannot process request without:")
		for _, field := range r.BlockingMissing {
			name := field
			if n, ok := FieldNames[field]; ok {
				name = n
			}
			lines = append(lines, fmt.Sprintf("   - %s", name))
		}
		lines = append(lines, "   You MUST request this information before proceeding.")
		lines = append(lines, "")
	}

	lines = append(lines, divider, "")
	return strings.Join(lines, "\n")
}

// Summary renders a one-line digest for logs.
func (r *Result) Summary() string {
	if r == nil {
		return "no constraints"
	}
	if r.Skipped {
		return fmt.Sprintf("SKIPPED (%q not in strict list) - processing flexibly", r.ResolvedCategory)
	}

	var parts []string
	if len(r.MissingFields) > 0 {
		parts = append(parts, fmt.Sprintf("Missing: %s", strings.Join(r.MissingFields, ", ")))
	}
	if len(r.MustNotAsk) > 0 {
		fields := make([]string, 0, 3)
		for _, item := range r.MustNotAsk {
			fields = append(fields, strings.SplitN(item, " (", 2)[0])
			if len(fields) == 3 {
				break
			}
		}
		parts = append(parts, fmt.Sprintf("Present: %s", strings.Join(fields, ", ")))
	}
	if len(r.ApplicablePolicies) > 0 {
		parts = append(parts, fmt.Sprintf("Policies: %s", strings.Join(r.ApplicablePolicies, ", ")))
	}
	if !r.CanProceed {
		parts = append(parts, fmt.Sprintf("BLOCKED by: %s", strings.Join(r.BlockingMissing, ", ")))
	}
	if len(parts) == 0 {
		return "no constraints"
	}
	return strings.Join(parts, " | ")
}
