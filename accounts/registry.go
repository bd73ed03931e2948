package accounts

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"tweetcaster/pkg/broadcast"
)

// Registry owns the clients for the process lifetime, in insertion order.
type Registry struct {
	newSession SessionFactory
	logger     *slog.Logger
	credsPath  string
	clients    []*Client
}

// NewRegistry creates an empty registry. credsPath is scanned by GetOrLoad for
// accounts that were not loaded up front.
func NewRegistry(credsPath string, newSession SessionFactory, logger *slog.Logger) *Registry {
	return &Registry{
		newSession: newSession,
		logger:     logger,
		credsPath:  credsPath,
	}
}

// Build creates a client for every account and adds it to the registry.
// Accounts whose session cannot be created are logged and skipped.
func (r *Registry) Build(accs []broadcast.Account) {
	for _, acc := range accs {
		c, err := r.client(acc)
		if err != nil {
			r.logger.Warn("Skipping account", "account", acc.Number, "error", err)
			continue
		}
		r.Upsert(c)
	}
}

// Upsert adds a client, replacing any existing client with the same account number.
func (r *Registry) Upsert(c *Client) {
	if i := r.index(c.Number()); i >= 0 {
		r.clients[i] = c
		return
	}
	r.clients = append(r.clients, c)
}

// Get returns the client for an account number.
func (r *Registry) Get(number int) (*Client, bool) {
	if i := r.index(number); i >= 0 {
		return r.clients[i], true
	}
	return nil, false
}

// Clients returns the registered clients in insertion order.
func (r *Registry) Clients() []*Client {
	return slices.Clone(r.clients)
}

// Len returns the number of registered clients.
func (r *Registry) Len() int { return len(r.clients) }

// GetOrLoad returns the client for number, loading it from the credentials
// file and registering it if it is not present yet.
func (r *Registry) GetOrLoad(number int) (*Client, error) {
	if c, ok := r.Get(number); ok {
		return c, nil
	}

	if r.credsPath == "" {
		return nil, fmt.Errorf("account %d: %w", number, ErrNotFound)
	}

	f, err := os.Open(r.credsPath)
	if err != nil {
		return nil, fmt.Errorf("open credentials: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	acc, err := Find(f, number)
	if err != nil {
		return nil, err
	}

	c, err := r.client(acc)
	if err != nil {
		return nil, err
	}
	r.Upsert(c)
	r.logger.Info("Loaded account on demand", "account", number)
	return c, nil
}

func (r *Registry) client(acc broadcast.Account) (*Client, error) {
	session, err := r.newSession(acc)
	if err != nil {
		return nil, fmt.Errorf("create session for account %d: %w", acc.Number, err)
	}
	return &Client{Account: acc, Session: session}, nil
}

func (r *Registry) index(number int) int {
	return slices.IndexFunc(r.clients, func(c *Client) bool { return c.Number() == number })
}
