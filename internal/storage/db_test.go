package storage

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := config.Config{
		DBFilepath: filepath.Join(t.TempDir(), "db.sqlite"),
	}
	store, err := NewDB(t.Context(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestValidUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		valid bool
	}{
		{"alice", true},
		{"Bob_99", true},
		{"abc", true},
		{"ab", false},
		{"", false},
		{"invalid/name", false},
		{"with space", false},
		{"ünïcode", false},
		{strings.Repeat("a", 65), false},
		{strings.Repeat("a", 64), true},
	}
	for _, test := range tests {
		assert.Equal(t, test.valid, ValidUsername(test.name), "%q", test.name)
	}
}

func TestDB_Users(t *testing.T) {
	t.Parallel()
	store := newTestDB(t)

	const userName = "alice"
	alice, err := store.UpsertUser(t.Context(), db.User{
		Name:         userName,
		PasswordHash: []byte("hash"),
		Roles:        []string{"USER"},
	})
	require.NoError(t, err)
	assert.NotZero(t, alice.ID)
	assert.Equal(t, userName, alice.Name)
	assert.Equal(t, []byte("hash"), alice.PasswordHash)
	assert.Equal(t, []string{"USER"}, alice.Roles)
	assert.False(t, alice.CreateTime.IsZero())

	t.Run("GetUser", func(t *testing.T) {
		t.Parallel()

		actual, err := store.GetUser(t.Context(), alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.Name, actual.Name)
		assert.Equal(t, alice.Roles, actual.Roles)

		_, err = store.GetUser(t.Context(), 0)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("GetUserByName", func(t *testing.T) {
		t.Parallel()

		actual, err := store.GetUserByName(t.Context(), userName)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, actual.ID)

		_, err = store.GetUserByName(t.Context(), "ALICE")
		require.ErrorIs(t, err, ErrNotFound, "names are case-sensitive")

		_, err = store.GetUserByName(t.Context(), "not a real user")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpsertUser", func(t *testing.T) {
		t.Parallel()

		_, err := store.UpsertUser(t.Context(), db.User{Name: userName})
		require.ErrorIs(t, err, ErrAlreadyExists)

		_, err = store.UpsertUser(t.Context(), db.User{Name: "ab"})
		require.ErrorIs(t, err, ErrInvalidUsername)

		_, err = store.UpsertUser(t.Context(), db.User{Name: "invalid/name"})
		require.ErrorIs(t, err, ErrInvalidUsername)

		user, err := store.UpsertUser(t.Context(), db.User{
			Name:         "upsert_test",
			PasswordHash: []byte("one"),
			Roles:        []string{"USER", "ADMIN"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"ADMIN", "USER"}, user.Roles)

		// nil roles leave existing roles untouched
		user.PasswordHash = []byte("two")
		user.Roles = nil
		updated, err := store.UpsertUser(t.Context(), user)
		require.NoError(t, err)
		assert.Equal(t, user.ID, updated.ID)
		assert.Equal(t, []byte("two"), updated.PasswordHash)
		assert.Equal(t, []string{"ADMIN", "USER"}, updated.Roles)

		// renaming onto a taken name fails
		updated.Name = userName
		_, err = store.UpsertUser(t.Context(), updated)
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("NoPassword", func(t *testing.T) {
		t.Parallel()

		user, err := store.UpsertUser(t.Context(), db.User{Name: "no_password"})
		require.NoError(t, err)
		assert.Empty(t, user.PasswordHash)
		require.Error(t, bcrypt.CompareHashAndPassword(user.PasswordHash, nil))
		require.Error(t, bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("")))

		// a nil hash on update clears the password too
		user.PasswordHash = []byte("hash")
		user, err = store.UpsertUser(t.Context(), user)
		require.NoError(t, err)
		user.PasswordHash = nil
		user, err = store.UpsertUser(t.Context(), user)
		require.NoError(t, err)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("SetUserRoles", func(t *testing.T) {
		t.Parallel()

		user, err := store.UpsertUser(t.Context(), db.User{Name: "roles_test"})
		require.NoError(t, err)
		assert.Empty(t, user.Roles)

		require.NoError(t, store.SetUserRoles(t.Context(), user.ID, "USER"))
		user, err = store.GetUser(t.Context(), user.ID)
		require.NoError(t, err)
		assert.True(t, user.HasRole("USER"))

		require.NoError(t, store.SetUserRoles(t.Context(), user.ID))
		user, err = store.GetUser(t.Context(), user.ID)
		require.NoError(t, err)
		assert.False(t, user.HasRole("USER"))

		err = store.SetUserRoles(t.Context(), 1, "USER")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteUser", func(t *testing.T) {
		t.Parallel()

		user, err := store.UpsertUser(t.Context(), db.User{Name: "delete_test", PasswordHash: []byte("hash"), Roles: []string{"USER"}})
		require.NoError(t, err)
		task, err := store.CreateTask(t.Context(), db.Task{Owner: user.ID, Title: "gone soon"})
		require.NoError(t, err)
		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      "delete_test",
			User:       user.ID,
			ExpireTime: time.Now().Add(time.Hour),
		}))

		require.NoError(t, store.DeleteUser(t.Context(), user.ID))

		_, err = store.GetUserByName(t.Context(), user.Name)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetTask(t.Context(), user.ID, task.ID)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetSession(t.Context(), "delete_test")
		require.ErrorIs(t, err, ErrNotFound)

		// deleting again is a noop
		require.NoError(t, store.DeleteUser(t.Context(), user.ID))
	})
}

func TestDB_ListUsers(t *testing.T) {
	t.Parallel()
	store := newTestDB(t)

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := store.UpsertUser(t.Context(), db.User{Name: name, PasswordHash: []byte("hash"), Roles: []string{"USER"}})
		require.NoError(t, err)
	}

	users, err := store.ListUsers(t.Context(), "", 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, "bob", users[1].Name)
	assert.Equal(t, []string{"USER"}, users[0].Roles)

	users, err = store.ListUsers(t.Context(), users[1].Name, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Name)

	users, err = store.ListUsers(t.Context(), "carol", 2)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestDB_Tasks(t *testing.T) {
	t.Parallel()
	store := newTestDB(t)

	alice, err := store.UpsertUser(t.Context(), db.User{Name: "alice", PasswordHash: []byte("hash")})
	require.NoError(t, err)
	bob, err := store.UpsertUser(t.Context(), db.User{Name: "bob", PasswordHash: []byte("hash")})
	require.NoError(t, err)

	task1, err := store.CreateTask(t.Context(), db.Task{Owner: alice.ID, Title: "one"})
	require.NoError(t, err)
	task2, err := store.CreateTask(t.Context(), db.Task{Owner: alice.ID, Title: "two", Notes: "*notes*"})
	require.NoError(t, err)
	task3, err := store.CreateTask(t.Context(), db.Task{Owner: bob.ID, Title: "three"})
	require.NoError(t, err)

	t.Run("CreateTask", func(t *testing.T) {
		t.Parallel()

		assert.NotZero(t, task1.ID)
		assert.NotEqual(t, task1.ID, task2.ID)
		assert.False(t, task1.CreateTime.IsZero())
		assert.Equal(t, task1.CreateTime, task1.UpdateTime)

		_, err := store.CreateTask(t.Context(), db.Task{Title: "orphan"})
		require.ErrorIs(t, err, ErrInvalidOwner)

		_, err = store.CreateTask(t.Context(), db.Task{Owner: 1, Title: "unknown owner"})
		require.ErrorIs(t, err, ErrInvalidOwner)
	})

	t.Run("ListTasks", func(t *testing.T) {
		t.Parallel()

		tasks, err := store.ListTasks(t.Context(), bob.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, task3.ID, tasks[0].ID)
		assert.Equal(t, bob.ID, tasks[0].Owner)

		tasks, err = store.ListTasks(t.Context(), 0)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("GetTask", func(t *testing.T) {
		t.Parallel()

		actual, err := store.GetTask(t.Context(), alice.ID, task2.ID)
		require.NoError(t, err)
		assert.Equal(t, task2, actual, "tasks read back equal the tasks written")
		assert.Equal(t, time.UTC, actual.CreateTime.Location())
		assert.Equal(t, time.UTC, actual.UpdateTime.Location())

		tasks, err := store.ListTasks(t.Context(), alice.ID)
		require.NoError(t, err)
		assert.Subset(t, tasks, []db.Task{task1, task2})

		_, err = store.GetTask(t.Context(), bob.ID, task2.ID)
		require.ErrorIs(t, err, ErrNotFound, "tasks of other owners are not visible")
	})

	t.Run("UpdateTask", func(t *testing.T) {
		t.Parallel()

		task, err := store.CreateTask(t.Context(), db.Task{Owner: alice.ID, Title: "update me"})
		require.NoError(t, err)

		stolen := task
		stolen.Owner = bob.ID
		stolen.Title = "stolen"
		_, err = store.UpdateTask(t.Context(), stolen)
		require.ErrorIs(t, err, ErrNotFound)

		task.Title = "updated"
		task.Done = true
		updated, err := store.UpdateTask(t.Context(), task)
		require.NoError(t, err)
		assert.Equal(t, "updated", updated.Title)
		assert.True(t, updated.Done)
		assert.Equal(t, alice.ID, updated.Owner)
		assert.False(t, updated.UpdateTime.Before(updated.CreateTime))
	})

	t.Run("DeleteTask", func(t *testing.T) {
		t.Parallel()

		task, err := store.CreateTask(t.Context(), db.Task{Owner: alice.ID, Title: "delete me"})
		require.NoError(t, err)

		err = store.DeleteTask(t.Context(), bob.ID, task.ID)
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, store.DeleteTask(t.Context(), alice.ID, task.ID))
		err = store.DeleteTask(t.Context(), alice.ID, task.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDB_ListTasksOrder(t *testing.T) {
	t.Parallel()
	store := newTestDB(t)

	user, err := store.UpsertUser(t.Context(), db.User{Name: "orderly", PasswordHash: []byte("hash")})
	require.NoError(t, err)

	var ids []uint64
	for _, title := range []string{"first", "second", "third"} {
		task, err := store.CreateTask(t.Context(), db.Task{Owner: user.ID, Title: title})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	done, err := store.GetTask(t.Context(), user.ID, ids[0])
	require.NoError(t, err)
	done.Done = true
	_, err = store.UpdateTask(t.Context(), done)
	require.NoError(t, err)

	tasks, err := store.ListTasks(t.Context(), user.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, ids[1], tasks[0].ID)
	assert.Equal(t, ids[2], tasks[1].ID)
	assert.Equal(t, ids[0], tasks[2].ID, "done tasks sort last")
}

func TestDB_Sessions(t *testing.T) {
	t.Parallel()
	store := newTestDB(t)
	testSessions(t, store)

	t.Run("PurgeSessions", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      "purge_expired",
			ExpireTime: now.Add(-time.Minute),
		}))
		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      "purge_live",
			ExpireTime: now.Add(time.Hour),
		}))

		n, err := store.PurgeSessions(t.Context(), now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		_, err = store.GetSession(t.Context(), "purge_live")
		require.NoError(t, err)
		_, err = store.TakeFlash(t.Context(), "purge_expired")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ExpiredFlash", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      t.Name(),
			ExpireTime: time.Now().Add(-time.Minute),
		}))
		require.NoError(t, store.SetFlash(t.Context(), t.Name(), db.Flash{
			Text:   "stale",
			Status: db.FlashFailure,
		}))

		_, err := store.TakeFlash(t.Context(), t.Name())
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("TimesInUTC", func(t *testing.T) {
		t.Parallel()

		user, err := store.UpsertUser(t.Context(), db.User{Name: "utc_test", PasswordHash: []byte("hash")})
		require.NoError(t, err)
		assert.Equal(t, time.UTC, user.CreateTime.Location())

		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      t.Name(),
			User:       user.ID,
			ExpireTime: time.Now().Add(time.Hour),
		}))
		session, err := store.GetSession(t.Context(), t.Name())
		require.NoError(t, err)
		assert.Equal(t, time.UTC, session.ExpireTime.Location())
	})
}

// testSessions exercises the behavior shared by every [Sessions]
// implementation.
func testSessions(t *testing.T, store Sessions) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) {
		t.Parallel()

		session := db.Session{
			Token:      t.Name(),
			User:       42,
			ExpireTime: time.Now().Add(time.Hour),
		}
		require.NoError(t, store.CreateSession(t.Context(), session))

		actual, err := store.GetSession(t.Context(), session.Token)
		require.NoError(t, err)
		assert.Equal(t, session.Token, actual.Token)
		assert.Equal(t, session.User, actual.User)
		assert.False(t, actual.Anonymous())
		assert.WithinDuration(t, session.ExpireTime, actual.ExpireTime, time.Millisecond)

		_, err = store.GetSession(t.Context(), "unknown")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Expired", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      t.Name(),
			ExpireTime: time.Now().Add(-time.Second),
		}))
		_, err := store.GetSession(t.Context(), t.Name())
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("FlashConsumedOnce", func(t *testing.T) {
		t.Parallel()

		token := t.Name()
		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      token,
			ExpireTime: time.Now().Add(time.Hour),
		}))

		flash, err := store.TakeFlash(t.Context(), token)
		require.NoError(t, err)
		assert.True(t, flash.Empty())

		want := db.Flash{Text: "Incorrect username and/or password. Please try again.", Status: db.FlashFailure}
		require.NoError(t, store.SetFlash(t.Context(), token, want))

		flash, err = store.TakeFlash(t.Context(), token)
		require.NoError(t, err)
		assert.Equal(t, want, flash)

		flash, err = store.TakeFlash(t.Context(), token)
		require.NoError(t, err)
		assert.True(t, flash.Empty())

		err = store.SetFlash(t.Context(), "unknown", want)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteSession", func(t *testing.T) {
		t.Parallel()

		token := t.Name()
		require.NoError(t, store.CreateSession(t.Context(), db.Session{
			Token:      token,
			User:       7,
			ExpireTime: time.Now().Add(time.Hour),
		}))
		require.NoError(t, store.DeleteSession(t.Context(), token))
		_, err := store.GetSession(t.Context(), token)
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, store.DeleteSession(t.Context(), token))
	})
}
