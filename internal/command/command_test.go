package command

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

// newTestConfig writes a config file pointing at a fresh database holding
// the given users, and returns its path.
func newTestConfig(t *testing.T, users ...string) (string, config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBFilepath = filepath.Join(dir, "db.sqlite")
	path := filepath.Join(dir, "todotoday.yaml")
	require.NoError(t, config.Write(path, cfg))

	store, err := storage.NewDB(t.Context(), cfg, slog.Default())
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()
	for _, name := range users {
		_, err = store.UpsertUser(t.Context(), db.User{
			Name:         name,
			PasswordHash: []byte("x"),
			Roles:        []string{"USER"},
		})
		require.NoError(t, err)
	}
	return path, cfg
}

func openStore(t *testing.T, cfg config.Config) *storage.DB {
	t.Helper()
	store, err := storage.NewDB(t.Context(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd := RootCommand()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestUserCreate(t *testing.T) {
	path, cfg := newTestConfig(t)

	_, err := executeWithInput(t, "hunter22\n", "--config", path, "user", "create", "carol")
	require.NoError(t, err)

	user, err := openStore(t, cfg).GetUserByName(t.Context(), "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"USER"}, user.Roles)
	hasher := sec.NewHasher(cfg.Password.BcryptCost)
	assert.True(t, hasher.Verify("hunter22", user.PasswordHash))
	assert.False(t, hasher.NeedsRehash(user.PasswordHash))

	_, err = executeWithInput(t, "\n", "--config", path, "user", "create", "dave")
	require.ErrorContains(t, err, "must not be empty")

	_, err = executeWithInput(t, "hunter22\n", "--config", path, "user", "create", "no spaces")
	require.ErrorIs(t, err, storage.ErrInvalidUsername)
}

func TestUserDelete(t *testing.T) {
	path, cfg := newTestConfig(t, "alice", "bob")

	_, err := executeWithInput(t, "n\n", "--config", path, "user", "delete", "alice")
	require.NoError(t, err)
	_, err = executeWithInput(t, "y\n", "--config", path, "user", "delete", "bob")
	require.NoError(t, err)

	store := openStore(t, cfg)
	_, err = store.GetUserByName(t.Context(), "alice")
	require.NoError(t, err)
	_, err = store.GetUserByName(t.Context(), "bob")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadLine(t *testing.T) {
	t.Parallel()
	in := strings.NewReader("first\r\nsecond\nlast")

	for _, want := range []string{"first", "second", "last"} {
		line, err := readLine(in)
		require.NoError(t, err)
		assert.Equal(t, want, string(line))
	}
	_, err := readLine(in)
	require.ErrorIs(t, err, io.EOF)
}

func TestUserRoles(t *testing.T) {
	path, cfg := newTestConfig(t, "alice")

	_, err := execute(t, "--config", path, "user", "roles", "alice", "ADMIN", "USER")
	require.NoError(t, err)

	user, err := openStore(t, cfg).GetUserByName(t.Context(), "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ADMIN", "USER"}, user.Roles)

	_, err = execute(t, "--config", path, "user", "roles", "nobody", "USER")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserList(t *testing.T) {
	path, _ := newTestConfig(t, "alice", "bob")

	out, err := execute(t, "--config", path, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `(?m)^alice\s+USER\s`, out)
	assert.Regexp(t, `(?m)^bob\s+USER\s`, out)
}

func TestTaskSeed(t *testing.T) {
	t.Setenv("TODOTODAY_DEV_SEED", "3")
	path, cfg := newTestConfig(t, "alice", "bob")

	_, err := execute(t, "--config", path, "task", "seed", "alice", "--count", "4")
	require.NoError(t, err)

	store := openStore(t, cfg)
	alice, err := store.GetUserByName(t.Context(), "alice")
	require.NoError(t, err)
	tasks, err := store.ListTasks(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 4)

	bob, err := store.GetUserByName(t.Context(), "bob")
	require.NoError(t, err)
	tasks, err = store.ListTasks(t.Context(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestInvalidConfig(t *testing.T) {
	path, cfg := newTestConfig(t)
	cfg.Session.Backend = "memcached"
	require.NoError(t, config.Write(path, cfg))

	_, err := execute(t, "--config", path, "user", "list")
	require.ErrorContains(t, err, "config validation failed")
}
