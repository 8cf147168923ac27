package db

import (
	"context"
	"time"
)

const getTasks = `
SELECT id, owner, title, notes, done, create_time, update_time
FROM tasks
WHERE owner = ?
ORDER BY done, create_time, id
`

// GetTasks lists the tasks owned by owner, open tasks first.
func (q *Queries) GetTasks(ctx context.Context, owner uint64) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, getTasks, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID,
			&t.Owner,
			&t.Title,
			&t.Notes,
			&t.Done,
			&t.CreateTime,
			&t.UpdateTime,
		); err != nil {
			return nil, err
		}
		t.inUTC()
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const getTask = `
SELECT id, owner, title, notes, done, create_time, update_time
FROM tasks
WHERE owner = ? AND id = ?
`

// GetTaskParams are the parameters for [Queries.GetTask].
type GetTaskParams struct {
	Owner uint64
	ID    uint64
}

// GetTask returns a single task, provided it is owned by Owner.
func (q *Queries) GetTask(ctx context.Context, arg GetTaskParams) (Task, error) {
	row := q.db.QueryRowContext(ctx, getTask, arg.Owner, arg.ID)
	var t Task
	err := row.Scan(
		&t.ID,
		&t.Owner,
		&t.Title,
		&t.Notes,
		&t.Done,
		&t.CreateTime,
		&t.UpdateTime,
	)
	t.inUTC()
	return t, err
}

const createTask = `
INSERT INTO tasks (id, owner, title, notes, done, create_time, update_time)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// CreateTaskParams are the parameters for [Queries.CreateTask].
type CreateTaskParams struct {
	ID         uint64
	Owner      uint64
	Title      string
	Notes      string
	Done       bool
	CreateTime time.Time
	UpdateTime time.Time
}

// CreateTask inserts a new task.
func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) error {
	_, err := q.db.ExecContext(ctx, createTask,
		arg.ID,
		arg.Owner,
		arg.Title,
		arg.Notes,
		arg.Done,
		arg.CreateTime,
		arg.UpdateTime,
	)
	return err
}

const updateTask = `
UPDATE tasks
SET title = ?, notes = ?, done = ?, update_time = ?
WHERE owner = ? AND id = ?
`

// UpdateTaskParams are the parameters for [Queries.UpdateTask].
type UpdateTaskParams struct {
	Title      string
	Notes      string
	Done       bool
	UpdateTime time.Time
	Owner      uint64
	ID         uint64
}

// UpdateTask replaces the mutable fields of a task owned by Owner and returns
// the number of rows affected.
func (q *Queries) UpdateTask(ctx context.Context, arg UpdateTaskParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTask,
		arg.Title,
		arg.Notes,
		arg.Done,
		arg.UpdateTime,
		arg.Owner,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTask = `
DELETE FROM tasks
WHERE owner = ? AND id = ?
`

// DeleteTaskParams are the parameters for [Queries.DeleteTask].
type DeleteTaskParams struct {
	Owner uint64
	ID    uint64
}

// DeleteTask removes a task owned by Owner and returns the number of rows
// affected.
func (q *Queries) DeleteTask(ctx context.Context, arg DeleteTaskParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTask, arg.Owner, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
