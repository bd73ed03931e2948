// Package accounts loads posting credentials and keeps the runtime client registry.
package accounts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tweetcaster/pkg/broadcast"
	"tweetcaster/twitter"
)

// ErrNotFound is returned when no valid credentials exist for an account number.
var ErrNotFound = errors.New("account not found")

// Client pairs an account with its provider session.
type Client struct {
	Session twitter.Session
	Account broadcast.Account
}

// Number returns the account number identifying this client.
func (c *Client) Number() int { return c.Account.Number }

// SessionFactory creates the provider session for an account.
type SessionFactory func(broadcast.Account) (twitter.Session, error)

// Parse reads a credentials source. Blank lines and lines starting with '#' are
// skipped; every other line is numbered from 1 in file order. Lines that do not
// hold exactly four non-empty comma-separated fields still consume their number.
func Parse(r io.Reader) ([]broadcast.Account, error) {
	var accounts []broadcast.Account
	err := scan(r, func(number int, line string) bool {
		if acc, ok := parseLine(number, line); ok {
			accounts = append(accounts, acc)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Find returns the account at the given position of a credentials source.
func Find(r io.Reader, number int) (broadcast.Account, error) {
	var (
		found broadcast.Account
		ok    bool
	)
	err := scan(r, func(n int, line string) bool {
		if n != number {
			return true
		}
		found, ok = parseLine(n, line)
		return false
	})
	if err != nil {
		return broadcast.Account{}, err
	}
	if !ok {
		return broadcast.Account{}, fmt.Errorf("account %d: %w", number, ErrNotFound)
	}
	return found, nil
}

// LoadFile parses the credentials file at path.
func LoadFile(path string) ([]broadcast.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open credentials: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Parse(f)
}

// scan calls fn for each data line with its 1-indexed position until fn returns false.
func scan(r io.Reader, fn func(number int, line string) bool) error {
	sc := bufio.NewScanner(r)
	number := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		number++
		if !fn(number, line) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	return nil
}

func parseLine(number int, line string) (broadcast.Account, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 {
		return broadcast.Account{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return broadcast.Account{}, false
		}
	}
	return broadcast.Account{
		Number:       number,
		AppKey:       fields[0],
		AppSecret:    fields[1],
		AccessToken:  fields[2],
		AccessSecret: fields[3],
	}, true
}
