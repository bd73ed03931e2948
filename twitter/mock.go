package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// MockSession logs posts instead of sending them, for local development.
type MockSession struct {
	logger  *slog.Logger
	account int
	seq     atomic.Int64
}

// NewMockSession creates a new mock session for an account.
func NewMockSession(account int, logger *slog.Logger) *MockSession {
	return &MockSession{
		logger:  logger,
		account: account,
	}
}

// Post logs the text and returns a fabricated id.
func (m *MockSession) Post(ctx context.Context, text string) (string, error) {
	id := fmt.Sprintf("mock-%d-%d", m.account, m.seq.Add(1))
	m.logger.Info("MOCK POST",
		"account", m.account,
		"tweet_id", id,
		"length", len([]rune(text)))
	return id, nil
}
