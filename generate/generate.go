// Package generate produces promotional message bodies.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoText is returned when every generator in a chain failed.
var ErrNoText = errors.New("no generator produced text")

// Generator produces a message body, optionally guided by a thematic template.
type Generator interface {
	Name() string
	Generate(ctx context.Context, template string) (string, error)
}

// Chain tries generators in order and returns the first non-empty body.
type Chain struct {
	logger     *slog.Logger
	generators []Generator
}

// NewChain creates a chain of fallbacks, most preferred first.
func NewChain(logger *slog.Logger, generators ...Generator) *Chain {
	return &Chain{logger: logger, generators: generators}
}

// Name returns the chain identifier.
func (c *Chain) Name() string { return "chain" }

// Generate returns the first body produced by any generator.
func (c *Chain) Generate(ctx context.Context, template string) (string, error) {
	var errs []error
	for _, g := range c.generators {
		text, err := g.Generate(ctx, template)
		if err == nil {
			text = clean(text)
		}
		if err == nil && text != "" {
			c.logger.Info("Text generated", "generator", g.Name(), "length", len([]rune(text)))
			return text, nil
		}
		if err == nil {
			err = errors.New("empty text")
		}
		c.logger.Warn("Generator failed, falling back", "generator", g.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
	}
	return "", fmt.Errorf("%w: %w", ErrNoText, errors.Join(errs...))
}

// Compose appends the required tags to body, truncating body so the result
// fits in maxLen runes with the tags intact.
func Compose(body, tags string, maxLen int) string {
	body = strings.TrimSpace(body)
	tags = strings.TrimSpace(tags)
	if tags == "" {
		return truncate(body, maxLen)
	}

	room := maxLen - len([]rune(tags)) - 1
	if room <= 0 {
		return truncate(tags, maxLen)
	}
	body = strings.TrimSpace(truncate(body, room))
	if body == "" {
		return tags
	}
	return body + " " + tags
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n < 0 {
		n = 0
	}
	return string(r[:n])
}

// clean strips whitespace and wrapping quotes models like to add.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
