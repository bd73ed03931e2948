package poster

import (
	"slices"
	"time"

	"tweetcaster/delay"
	"tweetcaster/pkg/broadcast"
)

// AccountStats summarizes an account's posting history.
type AccountStats struct {
	LastPostedAt  time.Time     `json:"lastPostedAt"`
	LastTweetID   string        `json:"lastTweetId,omitempty"`
	LastError     string        `json:"lastError,omitempty"`
	NextDelay     time.Duration `json:"nextDelay"`
	AccountNumber int           `json:"accountNumber"`
	Attempts      int           `json:"attempts"`
	Succeeded     int           `json:"succeeded"`
}

// SuccessRate returns the fraction of successful attempts.
func (s AccountStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Attempts)
}

// Summarize aggregates history per account, ordered by account number.
func Summarize(history []broadcast.HistoryEntry) []AccountStats {
	byAccount := make(map[int]*AccountStats)
	for _, e := range history {
		for _, o := range e.Accounts {
			s, ok := byAccount[o.AccountNumber]
			if !ok {
				s = &AccountStats{AccountNumber: o.AccountNumber}
				byAccount[o.AccountNumber] = s
			}
			s.Attempts++
			s.LastPostedAt = e.Timestamp
			if o.Success {
				s.Succeeded++
				if o.TweetID != nil {
					s.LastTweetID = *o.TweetID
				}
				s.LastError = ""
			} else if o.Error != nil {
				s.LastError = o.Error.Error()
			}
		}
	}

	stats := make([]AccountStats, 0, len(byAccount))
	for n, s := range byAccount {
		s.NextDelay = delay.Compute(n, history)
		stats = append(stats, *s)
	}
	slices.SortFunc(stats, func(a, b AccountStats) int { return a.AccountNumber - b.AccountNumber })
	return stats
}
