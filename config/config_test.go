package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tweetcaster.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.LocalPath != "./data" {
		t.Errorf("LocalPath = %q, want ./data", cfg.Storage.LocalPath)
	}
	if cfg.RateLimitBackoff() != 300*time.Second {
		t.Errorf("RateLimitBackoff() = %v, want 5m", cfg.RateLimitBackoff())
	}
	if cfg.DuplicateBackoff() != 2*time.Second || cfg.RetryPassInterval() != 30*time.Second {
		t.Errorf("backoffs = %v, %v", cfg.DuplicateBackoff(), cfg.RetryPassInterval())
	}
	if cfg.Posting.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Posting.MaxRetries)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[posting]
required_tags = "  @brand $TKN "
mention_token = "@brand"
max_retries = 1

[generator]
models = ["primary", " ", "secondary"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Posting.RequiredTags != "@brand $TKN" {
		t.Errorf("RequiredTags = %q", cfg.Posting.RequiredTags)
	}
	if cfg.Posting.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d, want 1", cfg.Posting.MaxRetries)
	}
	if strings.Join(cfg.Generator.Models, ",") != "primary,secondary" {
		t.Errorf("Models = %v", cfg.Generator.Models)
	}
	if cfg.Accounts.CredentialsFile != "accounts.txt" {
		t.Errorf("defaults not kept: %q", cfg.Accounts.CredentialsFile)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "bucket-a")
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Bucket != "bucket-a" || cfg.Storage.LocalPath != "" {
		t.Errorf("Storage = %+v, want bucket only", cfg.Storage)
	}
	if cfg.Server.Port != "9090" || cfg.Generator.APIKey != "sk-test" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Server, cfg.Generator)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "[posting\n"},
		{"unknown key", "[posting]\nretries = 2\n"},
		{"negative retries", "[posting]\nmax_retries = -1\n"},
		{"tags too long", "[posting]\nrequired_tags = \"" + strings.Repeat("t", 280) + "\"\n"},
		{"bad level", "[logging]\nlevel = \"loud\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample", "tweetcaster.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample() error = %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load(sample) error = %v", err)
	}
}
