package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/influxdata/influxdb/pkg/snowflake"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

// Username validation constraints. Usernames are case-sensitive.
const (
	minUsernameLen = 3
	maxUsernameLen = 64
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidUsername reports whether name meets the requirements: 3-64
// characters, alphanumeric and underscores only.
func ValidUsername(name string) bool {
	return len(name) >= minUsernameLen &&
		len(name) <= maxUsernameLen &&
		usernameRegex.MatchString(name)
}

// DB is a [Store] backed by a SQLite database.
type DB struct {
	ids     *snowflake.Generator
	db      *sql.DB
	queries *db.Queries
	now     func() time.Time
}

// NewDB initializes a DB with the given config and logger.
func NewDB(ctx context.Context, cfg config.Config, logger *slog.Logger) (*DB, error) {
	handle, err := db.Open(ctx, logger, cfg.DBFilepath)
	if err != nil {
		return nil, err
	}
	return &DB{
		ids:     snowflake.New(rand.IntN(1023)), //nolint:gosec,mnd // this isn't for crypto
		db:      handle,
		queries: db.New(handle),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close satisfies the [Store] interface.
func (d *DB) Close() error {
	return d.db.Close()
}

// ListUsers satisfies the [Users] interface.
func (d *DB) ListUsers(ctx context.Context, afterName string, limit int32) ([]db.User, error) {
	users, err := d.queries.GetUsers(ctx, db.GetUsersParams{
		AfterName: afterName,
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Roles, err = d.queries.GetUserRoles(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// GetUser satisfies the [Users] interface.
func (d *DB) GetUser(ctx context.Context, userID uint64) (db.User, error) {
	user, err := d.queries.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	} else if err != nil {
		return user, err
	}
	user.Roles, err = d.queries.GetUserRoles(ctx, user.ID)
	return user, err
}

// GetUserByName satisfies the [Users] interface.
func (d *DB) GetUserByName(ctx context.Context, name string) (db.User, error) {
	user, err := d.queries.GetUserByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	} else if err != nil {
		return user, err
	}
	user.Roles, err = d.queries.GetUserRoles(ctx, user.ID)
	return user, err
}

// UpsertUser satisfies the [Users] interface.
func (d *DB) UpsertUser(ctx context.Context, user db.User) (db.User, error) {
	if !ValidUsername(user.Name) {
		return user, ErrInvalidUsername
	}
	if user.ID == 0 {
		user.ID = d.ids.Next()
	}
	if user.CreateTime.IsZero() {
		user.CreateTime = d.now()
	}
	err := d.inTx(ctx, func(q *db.Queries) error {
		_, err := q.UpsertUser(ctx, db.UpsertUserParams{
			ID:           user.ID,
			Name:         user.Name,
			PasswordHash: user.PasswordHash,
			CreateTime:   user.CreateTime,
		})
		switch {
		case errors.Is(err, sql.ErrNoRows),
			isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE),
			isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY):
			return ErrAlreadyExists
		case err != nil:
			return err
		case user.Roles == nil:
			return nil
		default:
			return setRoles(ctx, q, user.ID, user.Roles)
		}
	})
	if err != nil {
		return user, err
	}
	return d.GetUser(ctx, user.ID)
}

// SetUserRoles satisfies the [Users] interface.
func (d *DB) SetUserRoles(ctx context.Context, userID uint64, roles ...string) error {
	if _, err := d.queries.GetUser(ctx, userID); errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return d.inTx(ctx, func(q *db.Queries) error {
		return setRoles(ctx, q, userID, roles)
	})
}

// DeleteUser satisfies the [Users] interface.
func (d *DB) DeleteUser(ctx context.Context, userID uint64) error {
	return d.inTx(ctx, func(q *db.Queries) error {
		if err := q.DeleteUserSessions(ctx, userID); err != nil {
			return err
		}
		return q.DeleteUser(ctx, userID)
	})
}

// ListTasks satisfies the [Tasks] interface.
func (d *DB) ListTasks(ctx context.Context, ownerID uint64) ([]db.Task, error) {
	return d.queries.GetTasks(ctx, ownerID)
}

// GetTask satisfies the [Tasks] interface.
func (d *DB) GetTask(ctx context.Context, ownerID, taskID uint64) (db.Task, error) {
	task, err := d.queries.GetTask(ctx, db.GetTaskParams{
		Owner: ownerID,
		ID:    taskID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return task, ErrNotFound
	}
	return task, err
}

// CreateTask satisfies the [Tasks] interface.
func (d *DB) CreateTask(ctx context.Context, task db.Task) (db.Task, error) {
	if task.Owner == 0 {
		return task, ErrInvalidOwner
	}
	task.ID = d.ids.Next()
	task.CreateTime = d.now()
	task.UpdateTime = task.CreateTime
	err := d.queries.CreateTask(ctx, db.CreateTaskParams(task))
	if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
		return task, ErrInvalidOwner
	}
	return task, err
}

// UpdateTask satisfies the [Tasks] interface.
func (d *DB) UpdateTask(ctx context.Context, task db.Task) (db.Task, error) {
	n, err := d.queries.UpdateTask(ctx, db.UpdateTaskParams{
		Title:      task.Title,
		Notes:      task.Notes,
		Done:       task.Done,
		UpdateTime: d.now(),
		Owner:      task.Owner,
		ID:         task.ID,
	})
	if err != nil {
		return task, err
	} else if n == 0 {
		return task, ErrNotFound
	}
	return d.GetTask(ctx, task.Owner, task.ID)
}

// DeleteTask satisfies the [Tasks] interface.
func (d *DB) DeleteTask(ctx context.Context, ownerID, taskID uint64) error {
	n, err := d.queries.DeleteTask(ctx, db.DeleteTaskParams{
		Owner: ownerID,
		ID:    taskID,
	})
	if err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSession satisfies the [Sessions] interface.
func (d *DB) CreateSession(ctx context.Context, session db.Session) error {
	session.ExpireTime = session.ExpireTime.UTC()
	return d.queries.CreateSession(ctx, session)
}

// GetSession satisfies the [Sessions] interface.
func (d *DB) GetSession(ctx context.Context, token string) (db.Session, error) {
	session, err := d.queries.GetSession(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return session, ErrNotFound
	} else if err != nil {
		return session, err
	}
	if session.Expired(d.now()) {
		return db.Session{}, ErrNotFound
	}
	return session, nil
}

// SetFlash satisfies the [Sessions] interface.
func (d *DB) SetFlash(ctx context.Context, token string, flash db.Flash) error {
	n, err := d.queries.UpdateSessionFlash(ctx, db.UpdateSessionFlashParams{
		Flash: flash,
		Token: token,
	})
	if err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TakeFlash satisfies the [Sessions] interface.
func (d *DB) TakeFlash(ctx context.Context, token string) (flash db.Flash, err error) {
	err = d.inTx(ctx, func(q *db.Queries) error {
		session, err := q.GetSession(ctx, token)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		if session.Expired(d.now()) {
			return ErrNotFound
		}
		if flash = session.Flash; flash.Empty() {
			return nil
		}
		_, err = q.UpdateSessionFlash(ctx, db.UpdateSessionFlashParams{Token: token})
		return err
	})
	return flash, err
}

// DeleteSession satisfies the [Sessions] interface.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	return d.queries.DeleteSession(ctx, token)
}

// PurgeSessions satisfies the [Sessions] interface.
func (d *DB) PurgeSessions(ctx context.Context, now time.Time) (int64, error) {
	return d.queries.DeleteExpiredSessions(ctx, now.UTC())
}

func (d *DB) inTx(ctx context.Context, fn func(q *db.Queries) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()
	if err = fn(d.queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func setRoles(ctx context.Context, q *db.Queries, userID uint64, roles []string) error {
	if err := q.DeleteUserRoles(ctx, userID); err != nil {
		return err
	}
	for _, role := range roles {
		if err := q.InsertUserRole(ctx, db.InsertUserRoleParams{
			User: userID,
			Role: role,
		}); err != nil {
			return err
		}
	}
	return nil
}

func isConstraint(err error, code int) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == code
}

var _ Store = (*DB)(nil)
