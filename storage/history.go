package storage

import (
	"context"
	"fmt"

	"tweetcaster/pkg/broadcast"
)

// HistoryKey is the document holding the posting history.
const HistoryKey = "history.json"

// History is the bounded log of posting runs, oldest first.
type History struct {
	store *Store
	limit int
}

// NewHistory creates a history repository keeping at most broadcast.MaxHistoryEntries runs.
func NewHistory(store *Store) *History {
	return &History{store: store, limit: broadcast.MaxHistoryEntries}
}

// Load returns all stored runs. A missing document is an empty history.
func (h *History) Load(ctx context.Context) ([]broadcast.HistoryEntry, error) {
	var entries []broadcast.HistoryEntry
	if err := h.store.Read(ctx, HistoryKey, &entries); err != nil {
		if IsNotFound(err) {
			return []broadcast.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

// Append records a run and returns the updated history. A run whose timestamp
// matches the newest stored entry replaces it, so a run can be flushed after
// every account without producing duplicates. The oldest entries are evicted
// once the limit is exceeded.
func (h *History) Append(ctx context.Context, entry broadcast.HistoryEntry) ([]broadcast.HistoryEntry, error) {
	entries, err := h.Load(ctx)
	if err != nil {
		// Unreadable history is replaced rather than blocking new records.
		h.store.logger.Warn("Discarding unreadable history", "error", err)
		entries = []broadcast.HistoryEntry{}
	}

	if n := len(entries); n > 0 && entries[n-1].Timestamp.Equal(entry.Timestamp) {
		entries[n-1] = entry
	} else {
		entries = append(entries, entry)
	}

	if len(entries) > h.limit {
		entries = entries[len(entries)-h.limit:]
	}

	if err := h.store.Write(ctx, HistoryKey, entries); err != nil {
		return entries, fmt.Errorf("save history: %w", err)
	}
	return entries, nil
}

// Clear removes all stored runs.
func (h *History) Clear(ctx context.Context) error {
	if err := h.store.Write(ctx, HistoryKey, []broadcast.HistoryEntry{}); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
