// Package classify turns provider failures into human-readable explanations.
package classify

import (
	"errors"
	"fmt"
	"strings"

	"tweetcaster/pkg/broadcast"
)

const (
	// CodeRateLimited is the status returned when the provider asks for backoff.
	CodeRateLimited = 429
	// CodeDuplicate is the provider code for a repeated status text.
	CodeDuplicate = 187
)

type explanation struct {
	reason     string
	suggestion string
}

// Provider API error codes plus the HTTP statuses the provider surfaces directly.
var knownCodes = map[int]explanation{
	32:  {"Could not authenticate the account", "Regenerate the app key/secret and access tokens"},
	44:  {"Invalid request parameter", "Check the text for unsupported characters"},
	64:  {"Account is suspended", "Resolve the suspension in the account's settings"},
	88:  {"Rate limit exceeded for this endpoint", "Wait for the rate limit window to reset"},
	89:  {"Access token is invalid or expired", "Regenerate the access token and secret"},
	130: {"Provider is over capacity", "Retry later"},
	131: {"Provider internal error", "Retry later"},
	135: {"Request timestamp is out of bounds", "Synchronize the system clock"},
	139: {"Status already favorited", "No action needed"},
	161: {"Follow limit reached", "Wait before following more accounts"},
	179: {"Not authorized to see this status", "Check the account's permissions"},
	185: {"Daily status update limit reached", "Wait until the daily limit resets"},
	186: {"Tweet is too long", "Shorten the text below 280 characters"},
	187: {"Duplicate content", "Vary the text; identical tweets are rejected"},
	226: {"Request looks automated", "Space out posts and vary the content"},
	261: {"App cannot perform write actions", "Enable read/write permissions for the app"},
	326: {"Account is temporarily locked", "Log in to the account and unlock it"},
	401: {"Unauthorized", "Verify all four credentials for this account"},
	403: {"Forbidden", "Check app permissions and account standing"},
	404: {"Resource not found", "Check the API endpoint configuration"},
	429: {"Too many requests", "Reduce posting frequency"},
	500: {"Provider server error", "Retry later"},
	503: {"Service unavailable", "Retry later"},
}

// Code extracts the provider error code from err, if present.
func Code(err error) (int, bool) {
	var pe *broadcast.ProviderError
	if errors.As(err, &pe) && pe.Code != 0 {
		return pe.Code, true
	}
	return 0, false
}

// IsRateLimited reports whether the code asks the caller to back off and retry.
func IsRateLimited(code int) bool { return code == CodeRateLimited }

// IsDuplicate reports whether the code rejects the text as already posted.
func IsDuplicate(code int) bool { return code == CodeDuplicate }

// Explain returns an explanation and a remediation suggestion for err.
// It is purely informational.
func Explain(err error, accountNumber int) string {
	e := lookup(err)
	return fmt.Sprintf("[account %d] %s. Suggestion: %s", accountNumber, e.reason, e.suggestion)
}

func lookup(err error) explanation {
	if err == nil {
		return explanation{"Unknown error", "Check the logs for details"}
	}

	if code, ok := Code(err); ok {
		if e, ok := knownCodes[code]; ok {
			return e
		}
		return explanation{fmt.Sprintf("error code: %d", code), "Consult the provider's error documentation"}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate"):
		return knownCodes[CodeDuplicate]
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "unauthorized"):
		return knownCodes[32]
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return knownCodes[88]
	}

	return explanation{err.Error(), "Check the logs for details"}
}
