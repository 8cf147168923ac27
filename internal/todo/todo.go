// Package todo implements the task list operations of a logged in user. Every
// operation takes the owner's ID explicitly and passes it down to the store,
// so a task owned by someone else is indistinguishable from a missing one.
package todo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

const (
	// ErrInvalidTask is returned when a [Draft] fails validation.
	ErrInvalidTask Error = "invalid task"
	// ErrInvalidFilter is returned when a filter expression cannot be
	// compiled or evaluated.
	ErrInvalidFilter Error = "invalid filter"
)

// Error is an error type returned by this package.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// Draft is the user-editable part of a task.
type Draft struct {
	Title string `validate:"required,max=200"`
	Notes string `validate:"max=10000"`
}

// Normalize trims surrounding whitespace from the draft.
func (d Draft) Normalize() Draft {
	return Draft{
		Title: strings.TrimSpace(d.Title),
		Notes: strings.TrimSpace(d.Notes),
	}
}

// Service provides the task operations, each scoped to an owner.
type Service struct {
	tasks    storage.Tasks
	filter   *Filter
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService returns a Service over tasks.
func NewService(tasks storage.Tasks, logger *slog.Logger) (*Service, error) {
	filter, err := NewFilter()
	if err != nil {
		return nil, err
	}
	return &Service{
		tasks:    tasks,
		filter:   filter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}, nil
}

// List returns the tasks of ownerID, narrowed by the optional filter
// expression. An [ErrInvalidFilter] is returned if the expression is invalid.
func (s *Service) List(ctx context.Context, ownerID uint64, filter string) ([]db.Task, error) {
	if ownerID == 0 {
		return nil, storage.ErrInvalidOwner
	}
	tasks, err := s.tasks.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.filter.Apply(ctx, filter, tasks)
}

// Get returns a single task of ownerID.
func (s *Service) Get(ctx context.Context, ownerID, taskID uint64) (db.Task, error) {
	if ownerID == 0 {
		return db.Task{}, storage.ErrInvalidOwner
	}
	return s.tasks.GetTask(ctx, ownerID, taskID)
}

// Create adds a new open task for ownerID.
func (s *Service) Create(ctx context.Context, ownerID uint64, draft Draft) (db.Task, error) {
	if ownerID == 0 {
		return db.Task{}, storage.ErrInvalidOwner
	}
	draft, err := s.check(draft)
	if err != nil {
		return db.Task{}, err
	}
	task, err := s.tasks.CreateTask(ctx, db.Task{
		Owner: ownerID,
		Title: draft.Title,
		Notes: draft.Notes,
	})
	if err != nil {
		return task, err
	}
	s.logger.DebugContext(ctx, "task created",
		slog.Uint64("owner", ownerID),
		slog.Uint64("task", task.ID),
	)
	return task, nil
}

// Update replaces the title and notes of a task of ownerID.
func (s *Service) Update(ctx context.Context, ownerID, taskID uint64, draft Draft) (db.Task, error) {
	draft, err := s.check(draft)
	if err != nil {
		return db.Task{}, err
	}
	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return task, err
	}
	task.Title = draft.Title
	task.Notes = draft.Notes
	return s.tasks.UpdateTask(ctx, task)
}

// SetDone marks a task of ownerID as done or open.
func (s *Service) SetDone(ctx context.Context, ownerID, taskID uint64, done bool) (db.Task, error) {
	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return task, err
	} else if task.Done == done {
		return task, nil
	}
	task.Done = done
	return s.tasks.UpdateTask(ctx, task)
}

// Delete removes a task of ownerID.
func (s *Service) Delete(ctx context.Context, ownerID, taskID uint64) error {
	if ownerID == 0 {
		return storage.ErrInvalidOwner
	}
	if err := s.tasks.DeleteTask(ctx, ownerID, taskID); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "task deleted",
		slog.Uint64("owner", ownerID),
		slog.Uint64("task", taskID),
	)
	return nil
}

func (s *Service) check(draft Draft) (Draft, error) {
	draft = draft.Normalize()
	if err := s.validate.Struct(draft); err != nil {
		return draft, fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	return draft, nil
}
