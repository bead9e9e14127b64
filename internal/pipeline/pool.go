package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/abhijyotiba/Flusso-Automation/internal/logging"
	"github.com/abhijyotiba/Flusso-Automation/internal/ticket"
)

// Run is one ticket's result from a batch. Err carries the per-ticket
// failure; batch processing never stops on a single bad ticket.
type Run struct {
	Outcome *Outcome
	Err     error
}

// ProcessBatch runs tickets concurrently, bounded by the configured
// pipeline.max_concurrent. Results come back in input order.
func (p *Processor) ProcessBatch(ctx context.Context, tickets []*ticket.Ticket) []Run {
	runs := make([]Run, len(tickets))

	g, ctx := errgroup.WithContext(ctx)
	limit := p.cfg.Pipeline.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, t := range tickets {
		g.Go(func() error {
			outcome, err := p.Process(ctx, t)
			runs[i] = Run{Outcome: outcome, Err: err}
			if err != nil {
				logging.Warn(logging.CategoryPipeline, "batch slot %d failed: %v", i, err)
			}
			// Errors are recorded per slot, not propagated; a failed
			// ticket must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	return runs
}
