// Package delay decides how long to wait before posting to the next account.
package delay

import (
	"time"

	"tweetcaster/pkg/broadcast"
)

// Default is the wait used when history is too short or the account is healthy.
const Default = 30 * time.Second

const (
	sampleSize = 10 // Most recent runs considered per account
	minSamples = 3  // Below this the error rate is too noisy to act on
)

// Compute maps an account's recent error rate to a wait duration.
// History is ordered oldest to newest. The scan runs newest first, so the
// result is fully determined by its inputs.
func Compute(accountNumber int, history []broadcast.HistoryEntry) (d time.Duration) {
	defer func() {
		if recover() != nil {
			d = Default
		}
	}()

	if len(history) == 0 {
		return Default
	}

	var sampled, failed int
	for i := len(history) - 1; i >= 0 && sampled < sampleSize; i-- {
		o, ok := history[i].OutcomeFor(accountNumber)
		if !ok {
			continue
		}
		sampled++
		if !o.Success {
			failed++
		}
	}

	if sampled < minSamples {
		return Default
	}

	return forErrorRate(float64(failed) / float64(sampled))
}

func forErrorRate(rate float64) time.Duration {
	switch {
	case rate > 0.5:
		return 120 * time.Second
	case rate > 0.3:
		return 60 * time.Second
	case rate > 0.1:
		return 45 * time.Second
	default:
		return Default
	}
}
