package generate

import (
	"context"
	"errors"
	"math/rand/v2"
)

// Templates is the last-resort generator: it uses the theme itself when one
// is given, otherwise a canned message.
type Templates struct {
	messages []string
	pick     func(n int) int
}

// NewTemplates creates a generator over canned messages.
func NewTemplates(messages []string) *Templates {
	return &Templates{messages: messages, pick: rand.IntN}
}

// Name returns the generator identifier.
func (t *Templates) Name() string { return "templates" }

// Generate returns the theme or a randomly chosen canned message.
func (t *Templates) Generate(ctx context.Context, template string) (string, error) {
	if template != "" {
		return template, nil
	}
	if len(t.messages) == 0 {
		return "", errors.New("no templates configured")
	}
	return t.messages[t.pick(len(t.messages))], nil
}
