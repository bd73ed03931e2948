// Package poster posts a message across accounts and keeps the failure bookkeeping.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tweetcaster/accounts"
	"tweetcaster/classify"
	"tweetcaster/delay"
	"tweetcaster/pkg/broadcast"
)

// HistoryStore persists posting runs.
type HistoryStore interface {
	Load(ctx context.Context) ([]broadcast.HistoryEntry, error)
	Append(ctx context.Context, entry broadcast.HistoryEntry) ([]broadcast.HistoryEntry, error)
}

// FailureQueue persists posts that failed permanently.
type FailureQueue interface {
	Load(ctx context.Context) ([]broadcast.FailedPost, error)
	Append(ctx context.Context, post broadcast.FailedPost) error
	Clear(ctx context.Context) error
}

// ClientSource resolves clients by account number, loading them on demand.
type ClientSource interface {
	GetOrLoad(number int) (*accounts.Client, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// RetryPolicy bounds the retries of a single post.
type RetryPolicy struct {
	MaxRetries       int           // Retries shared by all retryable causes
	RateLimitBackoff time.Duration // Wait after a rate-limit rejection
	DuplicateBackoff time.Duration // Wait after a duplicate-content rejection
}

// DefaultRetryPolicy returns the policy used for regular posting runs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:       3,
		RateLimitBackoff: 300 * time.Second,
		DuplicateBackoff: 2 * time.Second,
	}
}

// Config holds poster configuration.
type Config struct {
	Policy            RetryPolicy
	MentionToken      string        // Required mention; duplicate markers go right before it
	RetryPassInterval time.Duration // Wait between queued posts of one account
}

// DefaultConfig returns the default poster configuration.
func DefaultConfig() Config {
	return Config{
		Policy:            DefaultRetryPolicy(),
		RetryPassInterval: 30 * time.Second,
	}
}

// Poster drives posting runs one account at a time.
type Poster struct {
	history HistoryStore
	queue   FailureQueue
	logger  *slog.Logger
	sleep   Sleeper
	now     func() time.Time
	cfg     Config
}

// New creates a new poster.
func New(cfg Config, history HistoryStore, queue FailureQueue, logger *slog.Logger) *Poster {
	return &Poster{
		history: history,
		queue:   queue,
		logger:  logger,
		sleep:   Sleep,
		now:     time.Now,
		cfg:     cfg,
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Tally counts successful and failed results.
func Tally(results []broadcast.PostResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// PostToAll posts text to every client in order, flushing history after each
// account and waiting between accounts according to their recent error rate.
func (p *Poster) PostToAll(ctx context.Context, text string, clients []*accounts.Client) []broadcast.PostResult {
	results := []broadcast.PostResult{}
	if len(clients) == 0 {
		p.logger.Warn("No accounts configured, nothing to post")
		return results
	}

	entry := broadcast.HistoryEntry{Timestamp: p.now().UTC(), Text: text}
	p.logger.Info("Starting posting run", "accounts", len(clients), "length", len([]rune(text)))

	for i, c := range clients {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, stopping posting run", "posted", i, "error", ctx.Err())
			p.queueUnreached(context.WithoutCancel(ctx), text, clients[i:])
			return results
		default:
		}

		p.logger.Info("Posting to account", "account", c.Number(), "position", i+1, "of", len(clients))
		r := p.PostOnce(ctx, text, c)
		results = append(results, r)

		entry.Accounts = append(entry.Accounts, r.Outcome())
		history, err := p.history.Append(ctx, entry)
		if err != nil {
			p.logger.Error("Failed to save history", "error", err)
		}

		if i < len(clients)-1 {
			wait := delay.Compute(c.Number(), history)
			p.logger.Info("Waiting before next account", "account", c.Number(), "delay_ms", wait.Milliseconds())
			p.sleep(ctx, wait)
		}
	}

	succeeded, failed := Tally(results)
	p.logger.Info("Posting run completed", "succeeded", succeeded, "failed", failed, "total", len(results))
	return results
}

// PostOnce posts text to one account under the configured retry policy.
// It never fails outward: every fault is reported in the result.
func (p *Poster) PostOnce(ctx context.Context, text string, c *accounts.Client) broadcast.PostResult {
	return p.post(ctx, text, c, p.cfg.Policy)
}

// Validate checks that text can be posted at all.
func Validate(text string) error {
	n := len([]rune(text))
	if n == 0 {
		return fmt.Errorf("%w: text is empty", broadcast.ErrValidation)
	}
	if n > broadcast.MaxTextLength {
		return fmt.Errorf("%w: text is %d characters, limit is %d", broadcast.ErrValidation, n, broadcast.MaxTextLength)
	}
	return nil
}

func (p *Poster) post(ctx context.Context, text string, c *accounts.Client, policy RetryPolicy) broadcast.PostResult {
	result := broadcast.PostResult{AccountNumber: c.Number(), Text: text}

	if err := Validate(text); err != nil {
		p.logger.Warn("Rejected text before posting", "account", c.Number(), "error", err)
		result.Err = &broadcast.ProviderError{Message: err.Error()}
		return result
	}

	retriesLeft := policy.MaxRetries
	for {
		id, err := p.attempt(ctx, c, text)
		if err == nil && id != "" {
			p.logger.Info("Posted", "account", c.Number(), "tweet_id", id)
			result.Success = true
			result.TweetID = id
			result.Text = text
			return result
		}
		if err == nil {
			err = &broadcast.ProviderError{Message: "provider response has no tweet id"}
		}

		p.logger.Warn("Post failed", "account", c.Number(), "error", err, "explanation", classify.Explain(err, c.Number()))

		code, _ := classify.Code(err)
		switch {
		case retriesLeft > 0 && classify.IsRateLimited(code):
			retriesLeft--
			p.logger.Info("Rate limited, backing off", "account", c.Number(), "delay_ms", policy.RateLimitBackoff.Milliseconds(), "retries_left", retriesLeft)
			p.sleep(ctx, policy.RateLimitBackoff)
			continue
		case retriesLeft > 0 && classify.IsDuplicate(code):
			retriesLeft--
			text = withTimeMarker(text, p.cfg.MentionToken, p.now())
			p.logger.Info("Duplicate content, retrying with time marker", "account", c.Number(), "retries_left", retriesLeft)
			p.sleep(ctx, policy.DuplicateBackoff)
			continue
		}

		result.Err = providerError(err)
		result.Text = text
		p.enqueue(ctx, broadcast.FailedPost{Timestamp: p.now().UTC(), Text: text, AccountNumber: c.Number()})
		return result
	}
}

// attempt calls the session once, turning a panic into an error.
func (p *Poster) attempt(ctx context.Context, c *accounts.Client, text string) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session panic: %v", r)
		}
	}()
	return c.Session.Post(ctx, text)
}

// queueUnreached queues the accounts a stopped run never posted to.
func (p *Poster) queueUnreached(ctx context.Context, text string, clients []*accounts.Client) {
	for _, c := range clients {
		p.enqueue(ctx, broadcast.FailedPost{Timestamp: p.now().UTC(), Text: text, AccountNumber: c.Number()})
	}
}

func (p *Poster) enqueue(ctx context.Context, post broadcast.FailedPost) {
	if err := p.queue.Append(ctx, post); err != nil {
		p.logger.Error("Failed to queue failed post", "account", post.AccountNumber, "error", err)
		return
	}
	p.logger.Info("Queued failed post for retry", "account", post.AccountNumber)
}
