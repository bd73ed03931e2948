// Package config loads tweetcaster configuration from TOML and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage selects where history and the failure queue live.
type Storage struct {
	LocalPath string `toml:"local_path"` // Used when Bucket is empty
	Bucket    string `toml:"bucket"`     // Cloud Storage bucket
}

// Accounts configures credentials and the provider API.
type Accounts struct {
	CredentialsFile       string `toml:"credentials_file"`
	APIBaseURL            string `toml:"api_base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Posting configures message composition and retry behavior.
type Posting struct {
	RequiredTags             string `toml:"required_tags"` // Appended to every generated body
	MentionToken             string `toml:"mention_token"` // Duplicate markers are inserted before it
	MaxRetries               int    `toml:"max_retries"`
	RateLimitBackoffSeconds  int    `toml:"rate_limit_backoff_seconds"`
	DuplicateBackoffSeconds  int    `toml:"duplicate_backoff_seconds"`
	RetryPassIntervalSeconds int    `toml:"retry_pass_interval_seconds"`
}

// Generator configures text generation. Models are tried in order before
// falling back to the canned templates.
type Generator struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Models         []string `toml:"models"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Theme          string   `toml:"theme"`
	Templates      []string `toml:"templates"`
}

// Server configures the HTTP trigger endpoints.
type Server struct {
	Port string `toml:"port"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// Config encapsulates all configuration values.
type Config struct {
	Storage   Storage   `toml:"storage"`
	Accounts  Accounts  `toml:"accounts"`
	Posting   Posting   `toml:"posting"`
	Generator Generator `toml:"generator"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// Load reads the configuration at path, or the default locations when path is
// empty, then applies environment overrides and validates the result. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()

		if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv("TWEETCASTER_CONFIG")
	}
	if path == "" {
		path = defaultConfigFile
	}

	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return path, true, nil
}

// applyEnv lets deployment environments override the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("STORAGE_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("LOCAL_STORAGE"); v != "" {
		c.Storage.LocalPath = v
	}
	if v := os.Getenv("TWEETCASTER_ACCOUNTS"); v != "" {
		c.Accounts.CredentialsFile = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Generator.APIKey == "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) normalize() {
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.LocalPath = strings.TrimSpace(c.Storage.LocalPath)
	if c.Storage.Bucket == "" && c.Storage.LocalPath == "" {
		c.Storage.LocalPath = defaultLocalPath
	}
	if c.Storage.Bucket != "" {
		// Bucket wins; a leftover default path must not shadow it.
		c.Storage.LocalPath = ""
	}

	c.Posting.RequiredTags = strings.TrimSpace(c.Posting.RequiredTags)
	c.Posting.MentionToken = strings.TrimSpace(c.Posting.MentionToken)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	var models []string
	for _, m := range c.Generator.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	c.Generator.Models = models
}

// DataDir returns the local directory used for the instance lock.
func (c *Config) DataDir() string {
	if c.Storage.LocalPath != "" {
		return c.Storage.LocalPath
	}
	return filepath.Join(os.TempDir(), "tweetcaster")
}

// RequestTimeout returns the provider request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Accounts.RequestTimeoutSeconds) * time.Second
}

// RateLimitBackoff returns the wait after a rate-limit rejection.
func (c *Config) RateLimitBackoff() time.Duration {
	return time.Duration(c.Posting.RateLimitBackoffSeconds) * time.Second
}

// DuplicateBackoff returns the wait after a duplicate-content rejection.
func (c *Config) DuplicateBackoff() time.Duration {
	return time.Duration(c.Posting.DuplicateBackoffSeconds) * time.Second
}

// RetryPassInterval returns the wait between queued posts of one account.
func (c *Config) RetryPassInterval() time.Duration {
	return time.Duration(c.Posting.RetryPassIntervalSeconds) * time.Second
}

// GeneratorTimeout returns the per-request text generation timeout.
func (c *Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutSeconds) * time.Second
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
