// Package server exposes posting runs and retry passes as HTTP endpoints,
// so a scheduler can trigger them.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tweetcaster/accounts"
	"tweetcaster/pkg/broadcast"
	"tweetcaster/poster"
)

// Poster runs posting and retry passes.
type Poster interface {
	PostToAll(ctx context.Context, text string, clients []*accounts.Client) []broadcast.PostResult
	RetryFailed(ctx context.Context, clients poster.ClientSource) (bool, poster.RetryReport)
}

// Registry provides the clients to post with.
type Registry interface {
	poster.ClientSource
	Clients() []*accounts.Client
}

// HistoryLoader reads the posting history.
type HistoryLoader interface {
	Load(ctx context.Context) ([]broadcast.HistoryEntry, error)
}

// Composer produces the final text of a post, optionally on a theme.
type Composer func(ctx context.Context, theme string) (string, error)

// Server handles HTTP requests.
type Server struct {
	poster   Poster
	registry Registry
	history  HistoryLoader
	compose  Composer
	logger   *slog.Logger
	running  sync.Mutex // Posting and retry passes never overlap
}

// Config holds server configuration.
type Config struct {
	Poster   Poster
	Registry Registry
	History  HistoryLoader
	Compose  Composer
	Logger   *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		poster:   cfg.Poster,
		registry: cfg.Registry,
		history:  cfg.History,
		compose:  cfg.Compose,
		logger:   cfg.Logger,
	}
}

// Handler returns the routes served by s.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/postz", s.handlePost)
	mux.HandleFunc("/retryz", s.handleRetry)
	mux.HandleFunc("/historyz", s.handleHistory)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	// Posting runs sleep between accounts, so writes get a generous timeout.
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Hour,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type postResponse struct {
	Text      string                     `json:"text"`
	Results   []broadcast.AccountOutcome `json:"results"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.running.TryLock() {
		http.Error(w, "A run is already in progress", http.StatusConflict)
		return
	}
	defer s.running.Unlock()

	s.logger.Info("Post endpoint triggered")

	text, err := s.compose(r.Context(), r.URL.Query().Get("theme"))
	if err != nil {
		s.logger.Error("Text generation failed", "error", err)
		http.Error(w, "Text generation failed", http.StatusBadGateway)
		return
	}

	clients := s.registry.Clients()
	if len(clients) == 0 {
		s.logger.Error("No accounts configured")
		http.Error(w, "No accounts configured", http.StatusServiceUnavailable)
		return
	}

	// A started run outlives the triggering request.
	results := s.poster.PostToAll(context.WithoutCancel(r.Context()), text, clients)
	resp := postResponse{Text: text, Results: make([]broadcast.AccountOutcome, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, res.Outcome())
	}
	resp.Succeeded, resp.Failed = poster.Tally(results)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.running.TryLock() {
		http.Error(w, "A run is already in progress", http.StatusConflict)
		return
	}
	defer s.running.Unlock()

	s.logger.Info("Retry endpoint triggered")

	retried, report := s.poster.RetryFailed(context.WithoutCancel(r.Context()), s.registry)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"retried":   retried,
		"queued":    report.Queued,
		"attempted": report.Attempted,
		"succeeded": report.Succeeded,
		"skipped":   report.Skipped,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	history, err := s.history.Load(r.Context())
	if err != nil {
		s.logger.Error("Failed to load history", "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs":     len(history),
		"accounts": poster.Summarize(history),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
