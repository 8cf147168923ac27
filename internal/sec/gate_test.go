package sec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

func newTestStore(t *testing.T) *storage.DB {
	t.Helper()
	store, err := storage.NewDB(t.Context(), config.Config{
		DBFilepath: filepath.Join(t.TempDir(), "db.sqlite"),
	}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createUser(t *testing.T, users storage.Users, hasher Hasher, name, password string) db.User {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	user, err := users.UpsertUser(t.Context(), db.User{
		Name:         name,
		PasswordHash: hash,
		Roles:        []string{"USER"},
	})
	require.NoError(t, err)
	return user
}

func TestGate_Authenticate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	hasher := NewHasher(bcrypt.MinCost)
	alice := createUser(t, store, hasher, "alice", "secret1")

	var mu sync.Mutex
	var observed []Outcome
	gate := NewGate(NewResolver(store), hasher, slog.Default(), WithObserver(func(_ context.Context, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, o)
	}))

	tests := []struct {
		name       string
		username   string
		password   string
		wantReason error
	}{
		{"correct credentials", "alice", "secret1", nil},
		{"wrong password", "alice", "wrong", ErrPasswordMismatch},
		{"unknown user", "bob", "anything", ErrCredentialNotFound},
		{"case-sensitive username", "Alice", "secret1", ErrCredentialNotFound},
		{"empty credentials", "", "", ErrCredentialNotFound},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			outcome, err := gate.Authenticate(t.Context(), test.username, test.password)
			require.NoError(t, err)

			if test.wantReason == nil {
				require.True(t, outcome.Succeeded())
				assert.Equal(t, alice.ID, outcome.Principal.ID)
				assert.Equal(t, "alice", outcome.Principal.Name)
				assert.True(t, outcome.Principal.HasRole("USER"))
				assert.Empty(t, outcome.Message())
				return
			}

			require.False(t, outcome.Succeeded())
			require.ErrorIs(t, outcome.Reason, test.wantReason)
			assert.Zero(t, outcome.Principal)
			assert.Equal(t, "Incorrect username and/or password. Please try again.", outcome.Message())
		})
	}

	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, observed, len(tests))
	})
}

func TestGate_FailureLogs(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	hasher := NewHasher(bcrypt.MinCost)
	createUser(t, store, hasher, "alice", "secret1")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	gate := NewGate(NewResolver(store), hasher, logger)

	// a password typed into the username field
	outcome, err := gate.Authenticate(t.Context(), "hunter2-password", "alice")
	require.NoError(t, err)
	require.ErrorIs(t, outcome.Reason, ErrCredentialNotFound)
	assert.NotContains(t, buf.String(), "hunter2-password")
	assert.Contains(t, buf.String(), `"username_length":16`)

	buf.Reset()
	outcome, err = gate.Authenticate(t.Context(), "alice", "wrong-password")
	require.NoError(t, err)
	require.ErrorIs(t, outcome.Reason, ErrPasswordMismatch)
	assert.Contains(t, buf.String(), `"name":"alice"`)
	assert.NotContains(t, buf.String(), "wrong-password")
}

func TestGate_Rehash(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	user := createUser(t, store, NewHasher(bcrypt.MinCost), "rehash", "secret1")

	stronger := NewHasher(bcrypt.MinCost + 1)
	gate := NewGate(NewResolver(store), stronger, slog.Default())

	outcome, err := gate.Authenticate(t.Context(), "rehash", "secret1")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded())

	updated, err := store.GetUser(t.Context(), user.ID)
	require.NoError(t, err)
	cost, err := bcrypt.Cost(updated.PasswordHash)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
	assert.Equal(t, []string{"USER"}, updated.Roles, "roles survive a rehash")
	assert.True(t, stronger.Verify("secret1", updated.PasswordHash))
}

type failingUsers struct {
	storage.Users
	err error
}

func (f failingUsers) GetUserByName(context.Context, string) (db.User, error) {
	return db.User{}, f.err
}

func (f failingUsers) GetUser(context.Context, uint64) (db.User, error) {
	return db.User{}, f.err
}

func TestGate_StoreFailure(t *testing.T) {
	t.Parallel()

	unavailable := errors.New("database is locked")
	gate := NewGate(NewResolver(failingUsers{err: unavailable}), NewHasher(bcrypt.MinCost), slog.Default())

	_, err := gate.Authenticate(t.Context(), "alice", "secret1")
	require.ErrorIs(t, err, unavailable)
}

func TestResolver(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	alice := createUser(t, store, NewHasher(bcrypt.MinCost), "alice", "secret1")
	resolver := NewResolver(store)

	user, err := resolver.FindByUsername(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	user, err = resolver.FindByID(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)

	_, err = resolver.FindByUsername(t.Context(), "bob")
	require.ErrorIs(t, err, ErrCredentialNotFound)

	require.NoError(t, store.DeleteUser(t.Context(), alice.ID))
	_, err = resolver.FindByID(t.Context(), alice.ID)
	require.ErrorIs(t, err, ErrCredentialNotFound, "deleted users are locked out")

	unavailable := errors.New("disk I/O error")
	_, err = NewResolver(failingUsers{err: unavailable}).FindByID(t.Context(), 1)
	require.ErrorIs(t, err, unavailable)
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	_, ok := GetPrincipal(t.Context())
	assert.False(t, ok)

	want := Principal{ID: 1, Name: "alice", Roles: []string{"USER"}}
	ctx := SetPrincipal(t.Context(), want)
	got, ok := GetPrincipal(ctx)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = GetPrincipal(SetPrincipal(t.Context(), Principal{}))
	assert.False(t, ok, "zero principal is anonymous")
}
