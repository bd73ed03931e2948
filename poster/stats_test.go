package poster

import (
	"testing"
	"time"

	"tweetcaster/pkg/broadcast"
)

func TestSummarize(t *testing.T) {
	id := "t-1"
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	history := []broadcast.HistoryEntry{
		{Timestamp: base, Accounts: []broadcast.AccountOutcome{
			{AccountNumber: 2, Success: false, Error: &broadcast.ProviderError{Code: 403, Message: "Forbidden"}},
			{AccountNumber: 1, Success: true, TweetID: &id},
		}},
		{Timestamp: base.Add(time.Hour), Accounts: []broadcast.AccountOutcome{
			{AccountNumber: 2, Success: false, Error: &broadcast.ProviderError{Code: 429, Message: "Too Many Requests"}},
		}},
		{Timestamp: base.Add(2 * time.Hour), Accounts: []broadcast.AccountOutcome{
			{AccountNumber: 2, Success: false},
		}},
	}

	stats := Summarize(history)
	if len(stats) != 2 {
		t.Fatalf("Summarize() = %d accounts, want 2", len(stats))
	}

	one, two := stats[0], stats[1]
	if one.AccountNumber != 1 || one.Attempts != 1 || one.Succeeded != 1 || one.LastTweetID != "t-1" {
		t.Errorf("account 1 stats = %+v", one)
	}
	if one.SuccessRate() != 1 {
		t.Errorf("account 1 success rate = %v, want 1", one.SuccessRate())
	}
	if two.AccountNumber != 2 || two.Attempts != 3 || two.Succeeded != 0 {
		t.Errorf("account 2 stats = %+v", two)
	}
	if two.LastError != "provider error 429: Too Many Requests" {
		t.Errorf("account 2 last error = %q", two.LastError)
	}
	if !two.LastPostedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("account 2 last posted = %v", two.LastPostedAt)
	}
	if two.NextDelay != 120*time.Second || one.NextDelay != 30*time.Second {
		t.Errorf("next delays = %v, %v", one.NextDelay, two.NextDelay)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if stats := Summarize(nil); len(stats) != 0 {
		t.Errorf("Summarize(nil) = %v, want empty", stats)
	}
}
