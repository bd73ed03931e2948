// Package broadcast contains the core domain types for the multi-account posting service.
package broadcast

import (
	"errors"
	"fmt"
	"time"
)

const (
	MaxTextLength     = 280 // Provider limit, counted in runes
	MaxHistoryEntries = 100 // History keeps only the most recent runs
)

// ErrValidation marks text that can never be posted (empty or too long).
var ErrValidation = errors.New("validation failed")

// Account holds the OAuth1 credentials of one posting identity.
type Account struct {
	Number       int    // 1-indexed position in the credentials source
	AppKey       string // Consumer key
	AppSecret    string // Consumer secret
	AccessToken  string
	AccessSecret string
}

// ProviderError is a structured failure reported by the messaging provider.
type ProviderError struct {
	Code    int    `json:"code"` // 0 when the provider did not supply one
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// PostResult is the outcome of posting one text to one account.
type PostResult struct {
	Err           *ProviderError
	TweetID       string
	Text          string // Final attempted text, after any duplicate-content mutation
	AccountNumber int
	Success       bool
	Simulated     bool
}

// AccountOutcome is the persisted summary of a PostResult.
type AccountOutcome struct {
	TweetID       *string        `json:"tweetId"`
	Error         *ProviderError `json:"error"`
	AccountNumber int            `json:"accountNumber"`
	Success       bool           `json:"success"`
	Simulated     bool           `json:"simulated"`
}

// Outcome converts a result into its history form.
func (r PostResult) Outcome() AccountOutcome {
	o := AccountOutcome{
		AccountNumber: r.AccountNumber,
		Success:       r.Success,
		Simulated:     r.Simulated,
		Error:         r.Err,
	}
	if r.TweetID != "" {
		id := r.TweetID
		o.TweetID = &id
	}
	return o
}

// HistoryEntry records one posting run across accounts.
type HistoryEntry struct {
	Timestamp time.Time        `json:"timestamp"`
	Text      string           `json:"text"`
	Accounts  []AccountOutcome `json:"accounts"`
}

// OutcomeFor returns the outcome recorded for an account, if any.
func (e *HistoryEntry) OutcomeFor(accountNumber int) (AccountOutcome, bool) {
	for _, o := range e.Accounts {
		if o.AccountNumber == accountNumber {
			return o, true
		}
	}
	return AccountOutcome{}, false
}

// FailedPost is a permanently failed post awaiting a retry pass.
type FailedPost struct {
	Timestamp     time.Time `json:"timestamp"`
	Text          string    `json:"text"`
	AccountNumber int       `json:"accountNumber"`
}
