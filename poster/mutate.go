package poster

import (
	"errors"
	"strings"
	"time"

	"tweetcaster/pkg/broadcast"
)

// withTimeMarker makes text unique by inserting "[HH:MM:SS]" right before the
// mention token, or at the end when the token is absent. Text before the
// insertion point is shortened if the result would exceed the length limit.
func withTimeMarker(text, mention string, now time.Time) string {
	marker := "[" + now.Format("15:04:05") + "]"

	head, tail := text, ""
	if mention != "" {
		if i := strings.Index(text, mention); i >= 0 {
			head, tail = text[:i], text[i:]
		}
	}

	var out string
	if tail != "" {
		out = head + marker + " " + tail
	} else {
		out = strings.TrimRight(head, " ") + " " + marker
	}

	if excess := len([]rune(out)) - broadcast.MaxTextLength; excess > 0 {
		r := []rune(head)
		if excess > len(r) {
			excess = len(r)
		}
		head = string(r[:len(r)-excess])
		if tail != "" {
			out = head + marker + " " + tail
		} else {
			out = strings.TrimRight(head, " ") + " " + marker
		}
	}
	// The tail alone can exceed the limit.
	if r := []rune(out); len(r) > broadcast.MaxTextLength {
		out = string(r[:broadcast.MaxTextLength])
	}
	return out
}

func providerError(err error) *broadcast.ProviderError {
	var pe *broadcast.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &broadcast.ProviderError{Message: err.Error()}
}
