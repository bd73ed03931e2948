package storage

import (
	"context"
	"fmt"

	"tweetcaster/pkg/broadcast"
)

// FailureQueueKey is the document holding posts that failed permanently.
const FailureQueueKey = "failed_tweets.json"

// FailureQueue is the durable list of failed posts awaiting a retry pass.
type FailureQueue struct {
	store *Store
}

// NewFailureQueue creates a failure queue repository.
func NewFailureQueue(store *Store) *FailureQueue {
	return &FailureQueue{store: store}
}

// Load returns the queued posts in enqueue order. A missing document is an empty queue.
func (q *FailureQueue) Load(ctx context.Context) ([]broadcast.FailedPost, error) {
	var posts []broadcast.FailedPost
	if err := q.store.Read(ctx, FailureQueueKey, &posts); err != nil {
		if IsNotFound(err) {
			return []broadcast.FailedPost{}, nil
		}
		return nil, fmt.Errorf("load failure queue: %w", err)
	}
	return posts, nil
}

// Append adds a failed post to the end of the queue.
func (q *FailureQueue) Append(ctx context.Context, post broadcast.FailedPost) error {
	posts, err := q.Load(ctx)
	if err != nil {
		q.store.logger.Warn("Discarding unreadable failure queue", "error", err)
		posts = []broadcast.FailedPost{}
	}

	posts = append(posts, post)
	if err := q.store.Write(ctx, FailureQueueKey, posts); err != nil {
		return fmt.Errorf("save failure queue: %w", err)
	}
	return nil
}

// Clear replaces the queue with an empty list.
func (q *FailureQueue) Clear(ctx context.Context) error {
	if err := q.store.Write(ctx, FailureQueueKey, []broadcast.FailedPost{}); err != nil {
		return fmt.Errorf("clear failure queue: %w", err)
	}
	return nil
}
