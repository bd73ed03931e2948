package accounts

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"tweetcaster/pkg/broadcast"
	"tweetcaster/twitter"
)

const creds = `# app key, app secret, access token, access secret
k1, s1, t1, a1

k2,s2,t2
# disabled
k3,s3,t3,a3
k4,,t4,a4
k5,s5,t5,a5
`

func TestParse(t *testing.T) {
	accs, err := Parse(strings.NewReader(creds))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var numbers []int
	for _, a := range accs {
		numbers = append(numbers, a.Number)
	}
	// Lines 2 and 4 are malformed but still consume their numbers.
	if want := []int{1, 3, 5}; !slices.Equal(numbers, want) {
		t.Errorf("Parse() numbers = %v, want %v", numbers, want)
	}
	want := broadcast.Account{Number: 1, AppKey: "k1", AppSecret: "s1", AccessToken: "t1", AccessSecret: "a1"}
	if accs[0] != want {
		t.Errorf("Parse()[0] = %+v, want %+v", accs[0], want)
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		name    string
		number  int
		wantKey string
		wantErr bool
	}{
		{"first", 1, "k1", false},
		{"after comment and blank", 3, "k3", false},
		{"last", 5, "k5", false},
		{"too few fields", 2, "", true},
		{"empty field", 4, "", true},
		{"past end", 6, "", true},
		{"zero", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := Find(strings.NewReader(creds), tt.number)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Find() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Find() error = %v, want ErrNotFound", err)
				}
				return
			}
			if acc.AppKey != tt.wantKey || acc.Number != tt.number {
				t.Errorf("Find() = %+v, want key %s number %d", acc, tt.wantKey, tt.number)
			}
		})
	}
}

func newTestRegistry(t *testing.T, path string) (*Registry, *int) {
	t.Helper()
	created := 0
	factory := func(acc broadcast.Account) (twitter.Session, error) {
		created++
		return twitter.NewMockSession(acc.Number, slog.New(slog.DiscardHandler)), nil
	}
	return NewRegistry(path, factory, slog.New(slog.DiscardHandler)), &created
}

func TestRegistryGetOrLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.txt")
	if err := os.WriteFile(path, []byte(creds), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, created := newTestRegistry(t, path)
	accs, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	reg.Build(accs[:1])

	c, err := reg.GetOrLoad(1)
	if err != nil || c.Number() != 1 {
		t.Fatalf("GetOrLoad(1) = %v, %v", c, err)
	}
	if *created != 1 {
		t.Errorf("sessions created = %d, want 1 (existing client reused)", *created)
	}

	c, err = reg.GetOrLoad(5)
	if err != nil || c.Account.AppKey != "k5" {
		t.Fatalf("GetOrLoad(5) = %v, %v", c, err)
	}
	if reg.Len() != 2 {
		t.Errorf("registry has %d clients, want 2", reg.Len())
	}
	if again, _ := reg.GetOrLoad(5); again != c {
		t.Error("second GetOrLoad(5) should return the registered client")
	}

	if _, err := reg.GetOrLoad(2); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetOrLoad(2) error = %v, want ErrNotFound", err)
	}
}

func TestRegistryWithoutCredentials(t *testing.T) {
	reg, _ := newTestRegistry(t, "")
	if _, err := reg.GetOrLoad(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetOrLoad() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryUpsertReplaces(t *testing.T) {
	reg, _ := newTestRegistry(t, "")
	reg.Upsert(&Client{Account: broadcast.Account{Number: 1, AppKey: "old"}})
	reg.Upsert(&Client{Account: broadcast.Account{Number: 2}})
	reg.Upsert(&Client{Account: broadcast.Account{Number: 1, AppKey: "new"}})

	clients := reg.Clients()
	if len(clients) != 2 {
		t.Fatalf("Clients() = %d, want 2", len(clients))
	}
	if clients[0].Account.AppKey != "new" || clients[1].Number() != 2 {
		t.Errorf("Clients() order or contents wrong: %+v, %+v", clients[0].Account, clients[1].Account)
	}
}

func TestRegistryBuildSkipsFailedSessions(t *testing.T) {
	factory := func(acc broadcast.Account) (twitter.Session, error) {
		if acc.Number == 2 {
			return nil, errors.New("bad credentials")
		}
		return twitter.NewMockSession(acc.Number, slog.New(slog.DiscardHandler)), nil
	}
	reg := NewRegistry("", factory, slog.New(slog.DiscardHandler))
	reg.Build([]broadcast.Account{{Number: 1}, {Number: 2}, {Number: 3}})

	if reg.Len() != 2 {
		t.Errorf("registry has %d clients, want 2", reg.Len())
	}
	if _, ok := reg.Get(2); ok {
		t.Error("account 2 should have been skipped")
	}
}
