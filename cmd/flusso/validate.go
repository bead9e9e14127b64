package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation/internal/constraint"
	"github.com/abhijyotiba/Flusso-Automation/internal/extract"
)

var (
	validateShowPrompt bool
	validatePurchased  string
	validateDelivered  string
)

var validateCmd = &cobra.Command{
	Use:   "validate [ticket-file]",
	Short: "Validate tickets against category requirements without the LLM",
	Long: `Extracts facts from each ticket deterministically and runs constraint
validation: which fields are missing, which policies apply, and whether the
ticket is blocked. No LLM calls are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateShowPrompt, "show-prompt", false, "print the constraint block as it would appear in the drafting prompt")
	validateCmd.Flags().StringVar(&validatePurchased, "purchased", "", "purchase date (YYYY-MM-DD) to check warranty coverage against applicable policies")
	validateCmd.Flags().StringVar(&validateDelivered, "delivered", "", "delivery date (YYYY-MM-DD) to check claim windows against applicable policies")
}

func runValidate(cmd *cobra.Command, args []string) error {
	tickets, err := loadTickets(args[0])
	if err != nil {
		return err
	}

	for _, t := range tickets {
		facts := extract.Extract(t)
		result, err := constraint.Validate(facts, t.Category, t.FullText())
		if err != nil {
			return fmt.Errorf("ticket %s: %w", t.ID, err)
		}

		fmt.Printf("── ticket %s: %s\n", t.ID, result.Summary())
		if len(result.RequiredAsks) > 0 {
			fmt.Println("   would ask:")
			for _, ask := range result.RequiredAsks {
				fmt.Printf("   • %s\n", ask)
			}
		}
		for _, c := range result.Citations {
			fmt.Printf("   cites %s: %s\n", c.PolicyID, c.Citation)
		}
		for _, line := range coverageLines(result.ApplicablePolicies, validatePurchased, validateDelivered, time.Now()) {
			fmt.Printf("   %s\n", line)
		}
		if validateShowPrompt {
			fmt.Println(result.PromptBlock())
		}
	}
	return nil
}

// coverageLines evaluates warranty coverage and claim windows for each
// applicable policy against the optional purchase and delivery dates.
// Policies without a matching period are skipped silently.
func coverageLines(policyKeys []string, purchased, delivered string, now time.Time) []string {
	var lines []string
	if purchased != "" {
		date, err := time.Parse("2006-01-02", purchased)
		if err != nil {
			return []string{fmt.Sprintf("invalid --purchased date %q, want YYYY-MM-DD", purchased)}
		}
		for _, key := range policyKeys {
			status, err := constraint.CheckWarranty(key, date, now)
			if err != nil {
				continue
			}
			switch {
			case status.Lifetime:
				lines = append(lines, fmt.Sprintf("warranty %s: covered (lifetime)", key))
			case status.Covered:
				lines = append(lines, fmt.Sprintf("warranty %s: covered (%d of %d months elapsed)", key, status.MonthsElapsed, status.MonthsTotal))
			default:
				lines = append(lines, fmt.Sprintf("warranty %s: expired (%d of %d months elapsed)", key, status.MonthsElapsed, status.MonthsTotal))
			}
		}
	}
	if delivered != "" {
		date, err := time.Parse("2006-01-02", delivered)
		if err != nil {
			return append(lines, fmt.Sprintf("invalid --delivered date %q, want YYYY-MM-DD", delivered))
		}
		for _, key := range policyKeys {
			status, err := constraint.CheckWindow(key, date, now)
			if err != nil {
				continue
			}
			if status.Inside {
				line := fmt.Sprintf("window %s: open (day %d of %d)", key, status.DaysElapsed, status.WindowDays)
				if status.RestockingFeePercent > 0 {
					line += fmt.Sprintf(", %d%% restocking fee applies", status.RestockingFeePercent)
				}
				lines = append(lines, line)
			} else {
				lines = append(lines, fmt.Sprintf("window %s: closed (day %d, %d-day window)", key, status.DaysElapsed, status.WindowDays))
			}
		}
	}
	return lines
}
