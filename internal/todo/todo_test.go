package todo

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

type fixture struct {
	svc          *Service
	store        *storage.DB
	alice, bob   db.User
	bobTask      db.Task
	aliceTaskIDs []uint64
}

// newFixture seeds alice with two tasks and bob with one.
func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := storage.NewDB(t.Context(), config.Config{
		DBFilepath: filepath.Join(t.TempDir(), "db.sqlite"),
	}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc, err := NewService(store, slog.Default())
	require.NoError(t, err)

	var fx fixture
	fx.svc, fx.store = svc, store
	fx.alice, err = store.UpsertUser(t.Context(), db.User{Name: "alice", PasswordHash: []byte("hash")})
	require.NoError(t, err)
	fx.bob, err = store.UpsertUser(t.Context(), db.User{Name: "bob", PasswordHash: []byte("hash")})
	require.NoError(t, err)

	for _, title := range []string{"buy milk", "walk dog"} {
		task, err := svc.Create(t.Context(), fx.alice.ID, Draft{Title: title})
		require.NoError(t, err)
		fx.aliceTaskIDs = append(fx.aliceTaskIDs, task.ID)
	}
	fx.bobTask, err = svc.Create(t.Context(), fx.bob.ID, Draft{Title: "secret plans", Notes: "bob only"})
	require.NoError(t, err)
	return fx
}

func taskIDs(tasks []db.Task) []uint64 {
	ids := make([]uint64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestService_Isolation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	tasks, err := fx.svc.List(t.Context(), fx.alice.ID, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, fx.aliceTaskIDs, taskIDs(tasks))
	assert.NotContains(t, taskIDs(tasks), fx.bobTask.ID)

	tasks, err = fx.svc.List(t.Context(), fx.bob.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []uint64{fx.bobTask.ID}, taskIDs(tasks))

	// a filter cannot widen the owner scope
	tasks, err = fx.svc.List(t.Context(), fx.alice.ID, "true || title == 'secret plans'")
	require.NoError(t, err)
	assert.NotContains(t, taskIDs(tasks), fx.bobTask.ID)

	_, err = fx.svc.Get(t.Context(), fx.alice.ID, fx.bobTask.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = fx.svc.Update(t.Context(), fx.alice.ID, fx.bobTask.ID, Draft{Title: "hijacked"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = fx.svc.SetDone(t.Context(), fx.alice.ID, fx.bobTask.ID, true)
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = fx.svc.Delete(t.Context(), fx.alice.ID, fx.bobTask.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	unchanged, err := fx.svc.Get(t.Context(), fx.bob.ID, fx.bobTask.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret plans", unchanged.Title)
	assert.False(t, unchanged.Done)
}

func TestService_NoOwner(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, err := fx.svc.List(t.Context(), 0, "")
	require.ErrorIs(t, err, storage.ErrInvalidOwner)
	_, err = fx.svc.Get(t.Context(), 0, fx.bobTask.ID)
	require.ErrorIs(t, err, storage.ErrInvalidOwner)
	_, err = fx.svc.Create(t.Context(), 0, Draft{Title: "orphan"})
	require.ErrorIs(t, err, storage.ErrInvalidOwner)
	err = fx.svc.Delete(t.Context(), 0, fx.bobTask.ID)
	require.ErrorIs(t, err, storage.ErrInvalidOwner)
}

func TestService_Lifecycle(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := t.Context()

	task, err := fx.svc.Create(ctx, fx.alice.ID, Draft{Title: "  padded  ", Notes: "\n*notes*\n"})
	require.NoError(t, err)
	assert.Equal(t, "padded", task.Title)
	assert.Equal(t, "*notes*", task.Notes)
	assert.False(t, task.Done)
	assert.Equal(t, fx.alice.ID, task.Owner)

	task, err = fx.svc.Update(ctx, fx.alice.ID, task.ID, Draft{Title: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", task.Title)
	assert.Empty(t, task.Notes)

	task, err = fx.svc.SetDone(ctx, fx.alice.ID, task.ID, true)
	require.NoError(t, err)
	assert.True(t, task.Done)

	task, err = fx.svc.SetDone(ctx, fx.alice.ID, task.ID, true)
	require.NoError(t, err)
	assert.True(t, task.Done)

	task, err = fx.svc.SetDone(ctx, fx.alice.ID, task.ID, false)
	require.NoError(t, err)
	assert.False(t, task.Done)

	require.NoError(t, fx.svc.Delete(ctx, fx.alice.ID, task.ID))
	_, err = fx.svc.Get(ctx, fx.alice.ID, task.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_Validation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	tests := []struct {
		name  string
		draft Draft
	}{
		{"empty title", Draft{}},
		{"blank title", Draft{Title: "   "}},
		{"long title", Draft{Title: strings.Repeat("a", 201)}},
		{"long notes", Draft{Title: "ok", Notes: strings.Repeat("a", 10001)}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := fx.svc.Create(t.Context(), fx.alice.ID, test.draft)
			require.ErrorIs(t, err, ErrInvalidTask)

			_, err = fx.svc.Update(t.Context(), fx.alice.ID, fx.aliceTaskIDs[0], test.draft)
			require.ErrorIs(t, err, ErrInvalidTask)
		})
	}
}

func TestService_ListFilter(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, err := fx.svc.SetDone(t.Context(), fx.alice.ID, fx.aliceTaskIDs[1], true)
	require.NoError(t, err)

	tests := []struct {
		name    string
		filter  string
		want    []uint64
		wantErr bool
	}{
		{"all", "", fx.aliceTaskIDs, false},
		{"open", "!done", fx.aliceTaskIDs[:1], false},
		{"done", "done", fx.aliceTaskIDs[1:], false},
		{"title contains", `title.contains("milk")`, fx.aliceTaskIDs[:1], false},
		{"string extension", `title.upperAscii().startsWith("WALK")`, fx.aliceTaskIDs[1:], false},
		{"created in the past", `create_time <= now`, fx.aliceTaskIDs, false},
		{"syntax error", "done ==", nil, true},
		{"not a bool", "title", nil, true},
		{"unknown variable", "owner == 1", nil, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			tasks, err := fx.svc.List(t.Context(), fx.alice.ID, test.filter)
			if test.wantErr {
				require.ErrorIs(t, err, ErrInvalidFilter)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, test.want, taskIDs(tasks))
		})
	}
}

func TestService_ListFilterNoTasks(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	carol, err := fx.store.UpsertUser(t.Context(), db.User{Name: "carol", PasswordHash: []byte("hash")})
	require.NoError(t, err)

	tasks, err := fx.svc.List(t.Context(), carol.ID, "!done")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = fx.svc.List(t.Context(), carol.ID, "done ==")
	require.ErrorIs(t, err, ErrInvalidFilter, "expressions are checked even without tasks")
}
