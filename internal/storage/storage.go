// Package storage provides the state management for users, tasks, and
// sessions.
package storage

import (
	"context"
	"time"

	"github.com/stolasapp/todotoday/internal/storage/db"
)

const (
	// ErrNotFound is returned when a user, task, or session cannot be found.
	// Tasks owned by another user are reported as not found.
	ErrNotFound Error = "not found"
	// ErrAlreadyExists is returned if a unique user already exists.
	ErrAlreadyExists Error = "already exists"
	// ErrInvalidUsername is returned when a username fails validation.
	ErrInvalidUsername Error = "username must be 3-64 characters, alphanumeric and underscores only"
	// ErrInvalidOwner is returned when a task is written without an owner.
	ErrInvalidOwner Error = "task must have an owner"
	// ErrInternal is returned for any other type of error.
	ErrInternal Error = "internal error"
)

// Error is an error type returned by the storage implementation.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// Users are the methods on a storage implementation that are responsible for
// accessing and modifying users.
type Users interface {
	// ListUsers returns the users in a list, paginated by the given name (if
	// provided) up to the given limit of records.
	ListUsers(ctx context.Context, afterName string, limit int32) ([]db.User, error)
	// GetUser returns a single user with the specified ID, including roles.
	// An [ErrNotFound] is returned if the user ID does not exist.
	GetUser(ctx context.Context, userID uint64) (db.User, error)
	// GetUserByName returns a single user with the specified name, including
	// roles. Names are case-sensitive. An [ErrNotFound] is returned if the
	// user name does not exist.
	GetUserByName(ctx context.Context, name string) (db.User, error)
	// UpsertUser creates or updates the user. This is a full PUT-style upsert
	// of the name and password hash; roles are replaced only if non-nil. A
	// nil hash is stored empty, leaving the user unable to log in. An
	// [ErrAlreadyExists] error is returned if the username is already in use.
	// The stored user is returned with its assigned ID.
	UpsertUser(ctx context.Context, user db.User) (db.User, error)
	// SetUserRoles replaces the roles held by a user.
	SetUserRoles(ctx context.Context, userID uint64, roles ...string) error
	// DeleteUser removes a user and all their tasks and sessions. Note that
	// this is a hard delete; data is not recoverable.
	DeleteUser(ctx context.Context, userID uint64) error
}

// Tasks are the methods on a storage implementation that are responsible for
// accessing and modifying tasks. Every method is scoped to an owner; there is
// no way to read or write a task without naming the user who owns it.
type Tasks interface {
	// ListTasks returns every task owned by ownerID, open tasks first, then
	// by creation time.
	ListTasks(ctx context.Context, ownerID uint64) ([]db.Task, error)
	// GetTask returns a single task owned by ownerID. An [ErrNotFound] is
	// returned if the task does not exist or belongs to another user.
	GetTask(ctx context.Context, ownerID, taskID uint64) (db.Task, error)
	// CreateTask stores a new task, assigning its ID and timestamps.
	CreateTask(ctx context.Context, task db.Task) (db.Task, error)
	// UpdateTask replaces the title, notes, and done state of a task owned by
	// task.Owner. An [ErrNotFound] is returned if the task does not exist or
	// belongs to another user.
	UpdateTask(ctx context.Context, task db.Task) (db.Task, error)
	// DeleteTask removes a task owned by ownerID. An [ErrNotFound] is
	// returned if the task does not exist or belongs to another user.
	DeleteTask(ctx context.Context, ownerID, taskID uint64) error
}

// Sessions are the methods on a storage implementation that are responsible
// for server-side session state.
type Sessions interface {
	// CreateSession stores a new session.
	CreateSession(ctx context.Context, session db.Session) error
	// GetSession returns the session for token. An [ErrNotFound] is returned
	// if the token is unknown or the session has expired.
	GetSession(ctx context.Context, token string) (db.Session, error)
	// SetFlash replaces the one-time notice on a session.
	SetFlash(ctx context.Context, token string, flash db.Flash) error
	// TakeFlash returns the notice on a session and clears it, so a notice is
	// observed at most once.
	TakeFlash(ctx context.Context, token string) (db.Flash, error)
	// DeleteSession removes a session. Deleting an unknown token is not an
	// error.
	DeleteSession(ctx context.Context, token string) error
	// PurgeSessions removes sessions that expired at or before now, returning
	// the number removed.
	PurgeSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is the combination interface for [Users], [Tasks], and [Sessions].
type Store interface {
	Users
	Tasks
	Sessions
	// Close releases any resources held by the store. An error is returned if
	// the store cannot be cleanly closed.
	Close() error
}
