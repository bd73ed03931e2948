// Package twitter posts text to the messaging provider on behalf of one account.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"tweetcaster/pkg/broadcast"
)

// DefaultBaseURL is the provider's API root.
const DefaultBaseURL = "https://api.twitter.com"

// Session posts on behalf of a single authenticated account.
type Session interface {
	// Post publishes text and returns the remote id. Failures are *broadcast.ProviderError
	// when the provider answered, or a transport error otherwise.
	Post(ctx context.Context, text string) (string, error)
}

// HTTPSession posts through the provider's REST API with OAuth1 user context.
type HTTPSession struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
	account int
}

// NewHTTPSession creates a session signing requests with the account's credentials.
func NewHTTPSession(acc broadcast.Account, baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSession {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	config := oauth1.NewConfig(acc.AppKey, acc.AppSecret)
	token := oauth1.NewToken(acc.AccessToken, acc.AccessSecret)

	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, &http.Client{Timeout: timeout})
	return &HTTPSession{
		client:  config.Client(ctx, token),
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		account: acc.Number,
	}
}

type createRequest struct {
	Text string `json:"text"`
}

type createResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// errorResponse covers both the legacy {"errors":[{code,message}]} shape and
// the problem-details shape {title, detail, status}.
type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"errors"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Post publishes text.
func (s *HTTPSession) Post(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(createRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug("Provider API request starting", "method", "POST", "endpoint", "/2/tweets", "account", s.account)

	startTime := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	s.logger.Debug("Provider API request completed",
		"account", s.account,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseError(resp.StatusCode, data)
	}

	var out createResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &broadcast.ProviderError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	return out.Data.ID, nil
}

func parseError(status int, data []byte) *broadcast.ProviderError {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil {
		return &broadcast.ProviderError{Code: status, Message: http.StatusText(status)}
	}

	// Legacy API codes are more specific than the HTTP status, except for
	// 429 which always means back off and retry.
	if len(er.Errors) > 0 && er.Errors[0].Code != 0 {
		code := er.Errors[0].Code
		if status == http.StatusTooManyRequests {
			code = status
		}
		return &broadcast.ProviderError{Code: code, Message: er.Errors[0].Message}
	}

	msg := er.Detail
	if msg == "" {
		msg = er.Title
	}
	if msg == "" && len(er.Errors) > 0 {
		msg = er.Errors[0].Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	code := status
	if status != http.StatusTooManyRequests && strings.Contains(strings.ToLower(msg), "duplicate content") {
		code = 187
	}
	return &broadcast.ProviderError{Code: code, Message: msg}
}
