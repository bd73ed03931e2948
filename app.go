package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/gofrs/flock"
	"google.golang.org/api/option"

	"tweetcaster/accounts"
	"tweetcaster/config"
	"tweetcaster/generate"
	"tweetcaster/pkg/broadcast"
	"tweetcaster/poster"
	"tweetcaster/server"
	"tweetcaster/storage"
	"tweetcaster/twitter"
)

// app holds the collaborators of one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	history  *storage.History
	queue    *storage.FailureQueue
	registry *accounts.Registry
	poster   *poster.Poster
	compose  server.Composer
	lock     *flock.Flock
	gcs      *gcs.Client
}

// newLogger builds the process logger. Serve mode always logs JSON for Cloud Logging.
func newLogger(cfg config.Logging, forceJSON bool) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if forceJSON || cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	return slog.New(handler)
}

// newApp loads configuration and wires every collaborator. When locked is
// set the data directory lock is held until close.
func newApp(ctx context.Context, opts *options, serveMode, locked bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Logging, serveMode)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	if locked {
		lock, err := storage.Lock(cfg.DataDir())
		if err != nil {
			return nil, err
		}
		a.lock = lock
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.history = storage.NewHistory(store)
	a.queue = storage.NewFailureQueue(store)

	a.registry = accounts.NewRegistry(cfg.Accounts.CredentialsFile, a.sessionFactory(opts.dryRun), logger)
	accs, err := accounts.LoadFile(cfg.Accounts.CredentialsFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("Credentials file not found", "path", cfg.Accounts.CredentialsFile)
	case err != nil:
		a.close()
		return nil, err
	default:
		a.registry.Build(accs)
	}
	logger.Info("Accounts loaded", "count", a.registry.Len(), "dry_run", opts.dryRun)

	a.poster = poster.New(poster.Config{
		Policy: poster.RetryPolicy{
			MaxRetries:       cfg.Posting.MaxRetries,
			RateLimitBackoff: cfg.RateLimitBackoff(),
			DuplicateBackoff: cfg.DuplicateBackoff(),
		},
		MentionToken:      cfg.Posting.MentionToken,
		RetryPassInterval: cfg.RetryPassInterval(),
	}, a.history, a.queue, logger)
	a.compose = a.composer()

	return a, nil
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	if a.cfg.Storage.Bucket == "" {
		if err := os.MkdirAll(a.cfg.Storage.LocalPath, 0o755); err != nil {
			return nil, fmt.Errorf("create local storage directory: %w", err)
		}
		a.logger.Info("Using local storage", "storage_path", a.cfg.Storage.LocalPath)
		return storage.NewLocal(a.cfg.Storage.LocalPath, a.logger), nil
	}

	var clientOpts []option.ClientOption
	if creds := os.Getenv("GOOGLE_CREDENTIALS_JSON"); creds != "" {
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(creds)))
	}
	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	a.gcs = client
	a.logger.Info("Using Cloud Storage", "bucket", a.cfg.Storage.Bucket)
	return storage.New(client, a.cfg.Storage.Bucket, "", a.logger), nil
}

func (a *app) sessionFactory(dryRun bool) accounts.SessionFactory {
	return func(acc broadcast.Account) (twitter.Session, error) {
		if dryRun {
			return twitter.NewMockSession(acc.Number, a.logger), nil
		}
		return twitter.NewHTTPSession(acc, a.cfg.Accounts.APIBaseURL, a.cfg.RequestTimeout(), a.logger), nil
	}
}

// composer tries each configured model, then the canned templates, and
// appends the required tags.
func (a *app) composer() server.Composer {
	gen := a.cfg.Generator
	var gens []generate.Generator
	if gen.APIKey != "" {
		for _, model := range gen.Models {
			gens = append(gens, generate.NewOpenAI(generate.OpenAIConfig{
				APIKey:  gen.APIKey,
				BaseURL: gen.BaseURL,
				Model:   model,
				Timeout: a.cfg.GeneratorTimeout(),
			}, a.logger))
		}
	} else {
		a.logger.Info("No generator API key, using templates only")
	}
	gens = append(gens, generate.NewTemplates(gen.Templates))
	chain := generate.NewChain(a.logger, gens...)

	return func(ctx context.Context, theme string) (string, error) {
		theme = strings.TrimSpace(theme)
		if theme == "" {
			theme = gen.Theme
		}
		body, err := chain.Generate(ctx, theme)
		if err != nil {
			return "", err
		}
		return generate.Compose(body, a.cfg.Posting.RequiredTags, broadcast.MaxTextLength), nil
	}
}

func (a *app) close() {
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("Failed to close storage client", "error", err)
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("Failed to release lock", "error", err)
		}
	}
}
