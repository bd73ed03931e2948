package generate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeGenerator struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(ctx context.Context, template string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestChainFallsBack(t *testing.T) {
	first := &fakeGenerator{name: "first", err: errors.New("down")}
	second := &fakeGenerator{name: "second", text: "  \n"}
	third := &fakeGenerator{name: "third", text: `"Great deals today"`}
	never := &fakeGenerator{name: "never", text: "unused"}

	c := NewChain(slog.New(slog.DiscardHandler), first, second, third, never)
	got, err := c.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "Great deals today" {
		t.Errorf("Generate() = %q, want unquoted third text", got)
	}
	if never.calls != 0 {
		t.Error("generator after the first success should not be called")
	}
}

func TestChainAllFail(t *testing.T) {
	c := NewChain(slog.New(slog.DiscardHandler),
		&fakeGenerator{name: "a", err: errors.New("boom")},
		&fakeGenerator{name: "b", err: errors.New("bang")})

	_, err := c.Generate(context.Background(), "")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("Generate() error = %v, want ErrNoText", err)
	}
	if !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), "bang") {
		t.Errorf("Generate() error = %v, want both causes", err)
	}
}

func TestCompose(t *testing.T) {
	tags := "@brand $TKN"
	long := strings.Repeat("x", 300)

	tests := []struct {
		name    string
		body    string
		tags    string
		wantLen int
		want    string
	}{
		{"fits", "hello world", tags, 0, "hello world @brand $TKN"},
		{"truncated", long, tags, 280, ""},
		{"no tags", long, "", 280, ""},
		{"empty body", "", tags, 0, tags},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.body, tt.tags, 280)
			if tt.want != "" && got != tt.want {
				t.Errorf("Compose() = %q, want %q", got, tt.want)
			}
			if tt.wantLen != 0 && len([]rune(got)) != tt.wantLen {
				t.Errorf("Compose() length = %d, want %d", len([]rune(got)), tt.wantLen)
			}
			if tt.tags != "" && !strings.HasSuffix(got, tt.tags) {
				t.Errorf("Compose() = %q, tags missing", got)
			}
		})
	}
}

func TestComposeMultibyte(t *testing.T) {
	body := strings.Repeat("é", 300)
	got := Compose(body, "#tag", 280)
	if n := len([]rune(got)); n != 280 {
		t.Errorf("Compose() rune length = %d, want 280", n)
	}
}

func TestTemplates(t *testing.T) {
	g := NewTemplates([]string{"one", "two"})
	g.pick = func(int) int { return 1 }

	got, err := g.Generate(context.Background(), "")
	if err != nil || got != "two" {
		t.Errorf("Generate() = %q, %v; want two", got, err)
	}
	got, err = g.Generate(context.Background(), "summer sale")
	if err != nil || got != "summer sale" {
		t.Errorf("Generate() with theme = %q, %v; want theme", got, err)
	}
	if _, err := NewTemplates(nil).Generate(context.Background(), ""); err == nil {
		t.Error("Generate() with no templates should fail")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Fresh post"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(server.Close)

	g := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1", Model: "test-model", Timeout: 2 * time.Second}, slog.New(slog.DiscardHandler))
	got, err := g.Generate(context.Background(), "launch")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "Fresh post" {
		t.Errorf("Generate() = %q, want Fresh post", got)
	}
}

func TestOpenAIUnrecoverable(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(server.Close)

	g := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1", Model: "m", Timeout: 2 * time.Second}, slog.New(slog.DiscardHandler))
	if _, err := g.Generate(context.Background(), ""); err == nil {
		t.Fatal("Generate() expected error")
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (auth errors are not retried)", calls)
	}
}
