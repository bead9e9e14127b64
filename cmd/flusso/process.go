package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhijyotiba/Flusso-Automation/internal/catalog"
	"github.com/abhijyotiba/Flusso-Automation/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/pipeline"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

var (
	processOut    string
	processDryRun bool
)

var processCmd = &cobra.Command{
	Use:   "process [ticket-file]",
	Short: "Run tickets through the full pipeline",
	Long: `Reads tickets from a JSON file (one ticket object or an array of them)
and processes each one: fact extraction, agent investigation, evidence
resolution, constraint validation, and reply drafting with enforcement.

With --dry-run the LLM stages are skipped; extraction, resolution, and
validation still run, which is useful for checking a catalog and ticket
batch before spending tokens.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOut, "out", "o", "", "write outcomes as JSON to this file (default stdout summary only)")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "skip the LLM stages")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickets, err := loadTickets(args[0])
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Catalog.ManifestPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	var client llm.Client
	if !processDryRun {
		gemini, err := llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
			MaxRetries:  cfg.LLM.MaxRetries,
		})
		if err != nil {
			return fmt.Errorf("creating LLM client: %w", err)
		}
		client = gemini
	}

	runID := uuid.NewString()
	logging.Pipeline("run %s: %d ticket(s), dry_run=%v", runID, len(tickets), processDryRun)

	p := pipeline.NewProcessor(cfg, client, cat)
	runs := p.ProcessBatch(ctx, tickets)

	failed := 0
	for i, run := range runs {
		if run.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "ticket %s: %v\n", tickets[i].ID, run.Err)
			continue
		}
		printOutcomeSummary(run.Outcome)
	}

	if processOut != "" {
		if err := writeOutcomes(processOut, runID, runs); err != nil {
			return err
		}
		fmt.Printf("wrote %d outcome(s) to %s\n", len(runs), processOut)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d ticket(s) failed", failed, len(runs))
	}
	return nil
}

func printOutcomeSummary(o *pipeline.Outcome) {
	fmt.Printf("── ticket %s (%s)\n", o.Ticket.ID, o.Ticket.Subject)
	if o.Bundle != nil {
		fmt.Printf("   identification: %s\n", o.Bundle.Summary)
		fmt.Printf("   action: %s\n", o.Bundle.Action)
	}
	if o.Constraints != nil {
		fmt.Printf("   constraints: %s\n", o.Constraints.Summary())
	}
	if o.Report != nil {
		status := "passed"
		if !o.Report.Valid {
			status = fmt.Sprintf("corrected (%d warning(s))", len(o.Report.Warnings))
		}
		fmt.Printf("   enforcement: %s\n", status)
	}
	if o.FinalText != "" {
		fmt.Printf("   reply:\n%s\n", indent(o.FinalText, "     "))
	}
}

func loadTickets(path string) ([]*ticket.Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tickets: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var tickets []*ticket.Ticket
		if err := json.Unmarshal(data, &tickets); err != nil {
			return nil, fmt.Errorf("parsing ticket array: %w", err)
		}
		return tickets, nil
	}

	var t ticket.Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing ticket: %w", err)
	}
	return []*ticket.Ticket{&t}, nil
}

func writeOutcomes(path, runID string, runs []pipeline.Run) error {
	type outcomeRecord struct {
		RunID   string            `json:"run_id"`
		Outcome *pipeline.Outcome `json:"outcome,omitempty"`
		Error   string            `json:"error,omitempty"`
	}

	records := make([]outcomeRecord, len(runs))
	for i, run := range runs {
		records[i] = outcomeRecord{RunID: runID, Outcome: run.Outcome}
		if run.Err != nil {
			records[i].Error = run.Err.Error()
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outcomes: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing outcomes: %w", err)
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
