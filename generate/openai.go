package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You write short, upbeat promotional social media posts. " +
	"Reply with the post text only: no hashtags, no mentions, no quotes, under 200 characters."

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Empty for api.openai.com; set for OpenRouter or a local server
	Model   string
	Timeout time.Duration
}

// OpenAI generates text with a chat completion model.
type OpenAI struct {
	client  *openai.Client
	logger  *slog.Logger
	model   string
	timeout time.Duration
}

// NewOpenAI creates a generator for one model.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		logger:  logger,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Name returns the generator identifier.
func (o *OpenAI) Name() string { return "openai:" + o.model }

// Generate asks the model for a post, optionally on a theme.
func (o *OpenAI) Generate(ctx context.Context, template string) (string, error) {
	prompt := "Write a new promotional post."
	if template != "" {
		prompt = fmt.Sprintf("Write a new promotional post on this theme: %s", template)
	}

	var text string
	err := retry.Do(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			resp, err := o.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
				Model: o.model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: prompt},
				},
				MaxTokens:   120,
				Temperature: 0.9,
			})
			if err != nil {
				if !transient(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if len(resp.Choices) == 0 {
				return retry.Unrecoverable(errors.New("no choices in response"))
			}
			text = resp.Choices[0].Message.Content
			return nil
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Info("Retrying text generation after error", "model", o.model, "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return text, nil
}

// transient reports whether a completion error is worth retrying.
func transient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}
