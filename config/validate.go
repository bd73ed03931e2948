package config

import (
	"errors"
	"fmt"
)

// maxLength mirrors the provider's post length limit.
const maxLength = 280

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Accounts.CredentialsFile == "" {
		return errors.New("accounts.credentials_file must be set")
	}
	if c.Accounts.RequestTimeoutSeconds <= 0 {
		return errors.New("accounts.request_timeout_seconds must be positive")
	}
	if c.Posting.MaxRetries < 0 {
		return errors.New("posting.max_retries must not be negative")
	}
	if c.Posting.RateLimitBackoffSeconds < 0 || c.Posting.DuplicateBackoffSeconds < 0 || c.Posting.RetryPassIntervalSeconds < 0 {
		return errors.New("posting backoff and interval values must not be negative")
	}
	if n := len([]rune(c.Posting.RequiredTags)); n >= maxLength {
		return fmt.Errorf("posting.required_tags is %d characters, leaving no room for a message", n)
	}
	if c.Generator.TimeoutSeconds <= 0 {
		return errors.New("generator.timeout_seconds must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	return nil
}
