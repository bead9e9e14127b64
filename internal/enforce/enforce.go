// Package enforce checks a drafted customer reply against the constraint set
// and appends whatever the draft failed to include. The drafted text is never
// edited in place; corrections are only ever appended after it.
package enforce

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation/internal/constraint"
	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
)

// Report is the outcome of checking one reply against the constraints.
type Report struct {
	Valid            bool     `json:"valid"`
	Violations       []string `json:"violations"`
	MissingCitations []string `json:"missing_citations"`
	UnnecessaryAsks  []string `json:"unnecessary_asks"`
	Suggestions      []string `json:"suggestions"`
	Warnings         []string `json:"warnings"`
	Skipped          bool     `json:"skipped"`
}

var timePeriodPattern = regexp.MustCompile(`\d+\s*(?:year|month|day)s?`)

var policyWords = []string{"warranty", "return", "missing parts", "restocking"}

// askPatterns detect the reply asking for a field the customer already gave.
var askPatterns = []struct {
	re    *regexp.Regexp
	field string
}{
	{regexp.MustCompile(`provide.*(?:model|model number)`), "model"},
	{regexp.MustCompile(`(?:what|which).*model`), "model"},
	{regexp.MustCompile(`provide.*address`), "address"},
	{regexp.MustCompile(`(?:what|which).*address`), "address"},
	{regexp.MustCompile(`send.*(?:photo|picture|image)`), "photos"},
	{regexp.MustCompile(`provide.*(?:receipt|invoice|proof)`), "receipt"},
	{regexp.MustCompile(`(?:what|which).*finish|color`), "finish"},
}

// askTopics maps an ask's subject to the words that count as having asked.
var askTopics = []struct {
	keyword   string
	responses []string
}{
	{"address", []string{"address", "where", "ship"}},
	{"receipt", []string{"receipt", "invoice", "proof of purchase", "purchase date"}},
	{"photo", []string{"photo", "picture", "image", "send us"}},
	{"model", []string{"model", "product number"}},
	{"po", []string{"order number", "po number", "purchase order", "order confirmation"}},
	{"order", []string{"order number", "po number", "purchase order", "order confirmation"}},
}

// Check verifies a reply against the constraint set: required citations must
// appear (fuzzy key-term match), required asks must be made, and nothing in
// the must-not-ask list may be requested again. Skipped constraint sets pass
// unconditionally.
func Check(responseText string, constraints *constraint.Result) *Report {
	if constraints == nil || constraints.Skipped {
		return &Report{Valid: true, Skipped: constraints != nil && constraints.Skipped}
	}

	report := &Report{}
	lower := strings.ToLower(responseText)

	for _, citation := range constraints.RequiredCitations {
		if !citationPresent(lower, citation) {
			report.MissingCitations = append(report.MissingCitations, citation)
		}
	}

	for _, ap := range askPatterns {
		if !ap.re.MatchString(lower) {
			continue
		}
		for _, mustNot := range constraints.MustNotAsk {
			if strings.Contains(strings.ToLower(mustNot), ap.field) {
				report.UnnecessaryAsks = append(report.UnnecessaryAsks,
					fmt.Sprintf("Asked for %s which was already provided", ap.field))
				break
			}
		}
	}

	for _, ask := range constraints.RequiredAsks {
		if !askCovered(lower, ask) {
			report.Violations = append(report.Violations,
				fmt.Sprintf("Did not ask for required info: %s...", truncate(ask, 50)))
		}
	}

	if len(report.MissingCitations) > 0 {
		report.Suggestions = append(report.Suggestions,
			fmt.Sprintf("Add missing policy citation(s): %d citation(s) not found", len(report.MissingCitations)))
	}
	if len(report.UnnecessaryAsks) > 0 {
		fields := make([]string, len(report.UnnecessaryAsks))
		for i, a := range report.UnnecessaryAsks {
			fields[i] = strings.SplitN(a, " which", 2)[0]
		}
		report.Suggestions = append(report.Suggestions,
			fmt.Sprintf("Remove unnecessary asks: %s", strings.Join(fields, ", ")))
	}

	report.Valid = len(report.Violations) == 0 &&
		len(report.MissingCitations) == 0 &&
		len(report.UnnecessaryAsks) == 0

	report.Warnings = append(report.Warnings, report.Violations...)
	for _, c := range report.MissingCitations {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Missing citation: %s...", truncate(c, 50)))
	}
	report.Warnings = append(report.Warnings, report.UnnecessaryAsks...)

	return report
}

// Enforce appends missing citations and asks to a reply. The input text is
// returned unchanged when the check passes; otherwise it is preserved
// verbatim and a supplement section is appended after it.
func Enforce(responseText string, constraints *constraint.Result) (string, *Report) {
	report := Check(responseText, constraints)
	if report.Valid {
		return responseText, report
	}

	var additions []string

	if len(report.MissingCitations) > 0 {
		additions = append(additions, "\n\n**Policy Information:**")
		for _, citation := range report.MissingCitations {
			additions = append(additions, fmt.Sprintf("• %s", citation))
		}
	}

	missedAsk := false
	for _, v := range report.Violations {
		if strings.Contains(v, "Did not ask for") {
			missedAsk = true
			break
		}
	}
	if missedAsk {
		additions = append(additions, "\n\n**To help us assist you better, please provide:**")
		for _, ask := range constraints.RequiredAsks {
			additions = append(additions, fmt.Sprintf("• %s", ask))
		}
	}

	if len(additions) == 0 {
		// Unnecessary asks alone cannot be fixed by appending text.
		return responseText, report
	}

	logging.Enforce("appending %d correction line(s) to reply", len(additions))
	return responseText + "\n" + strings.Join(additions, "\n"), report
}

// citationPresent does fuzzy matching on a citation: it extracts the time
// periods and policy words as key terms and requires at least half of them
// to appear in the reply.
func citationPresent(responseLower, citation string) bool {
	citationLower := strings.ToLower(citation)

	keyTerms := timePeriodPattern.FindAllString(citationLower, -1)
	for _, word := range policyWords {
		if strings.Contains(citationLower, word) {
			keyTerms = append(keyTerms, word)
		}
	}
	if len(keyTerms) == 0 {
		return true
	}

	found := 0
	for _, term := range keyTerms {
		if strings.Contains(responseLower, term) {
			found++
		}
	}
	return float64(found) >= float64(len(keyTerms))/2
}

func askCovered(responseLower, ask string) bool {
	askLower := strings.ToLower(ask)
	for _, topic := range askTopics {
		if !strings.Contains(askLower, topic.keyword) {
			continue
		}
		for _, w := range topic.responses {
			if strings.Contains(responseLower, w) {
				return true
			}
		}
		return false
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
