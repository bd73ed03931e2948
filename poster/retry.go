package poster

import (
	"context"

	"tweetcaster/pkg/broadcast"
)

// RetryReport summarizes a failure-queue pass.
type RetryReport struct {
	Queued    int // Entries found in the queue
	Attempted int
	Succeeded int
	Skipped   int // Entries whose account has no client
}

// RetryFailed replays the failure queue, one account at a time, with a single
// retry per post. The queue is cleared afterwards whatever the outcome, so
// posts that fail again are dropped. Reports false when the queue was empty.
func (p *Poster) RetryFailed(ctx context.Context, clients ClientSource) (bool, RetryReport) {
	var report RetryReport

	queued, err := p.queue.Load(ctx)
	if err != nil {
		p.logger.Error("Failed to load failure queue", "error", err)
		return false, report
	}
	if len(queued) == 0 {
		p.logger.Info("No failed posts to retry")
		return false, report
	}
	report.Queued = len(queued)

	var order []int
	groups := make(map[int][]broadcast.FailedPost)
	for _, fp := range queued {
		if _, ok := groups[fp.AccountNumber]; !ok {
			order = append(order, fp.AccountNumber)
		}
		groups[fp.AccountNumber] = append(groups[fp.AccountNumber], fp)
	}

	p.logger.Info("Retrying failed posts", "count", len(queued), "accounts", len(order))

	policy := p.cfg.Policy
	policy.MaxRetries = 1

	for _, number := range order {
		group := groups[number]
		c, err := clients.GetOrLoad(number)
		if err != nil {
			report.Skipped += len(group)
			p.logger.Warn("No client for queued posts, skipping", "account", number, "skipped", len(group), "error", err)
			continue
		}

		for i, fp := range group {
			r := p.post(ctx, fp.Text, c, policy)
			report.Attempted++
			if r.Success {
				report.Succeeded++
			}
			if i < len(group)-1 {
				p.sleep(ctx, p.cfg.RetryPassInterval)
			}
		}
	}

	// Entries that failed again were re-queued by post; clearing drops them too.
	if err := p.queue.Clear(ctx); err != nil {
		p.logger.Error("Failed to clear failure queue", "error", err)
	}

	p.logger.Info("Retry pass completed",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Attempted-report.Succeeded,
		"skipped", report.Skipped)
	return true, report
}
