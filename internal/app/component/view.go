package component

import (
	"html/template"

	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

// Page is the state shared by every page: who is logged in, the CSRF token
// for forms, and the one-time notice to show.
type Page struct {
	Principal sec.Principal
	SignedIn  bool
	CSRF      string
	Flash     db.Flash
}

// TaskView is a task prepared for display, with its notes already rendered.
type TaskView struct {
	Task  db.Task
	Notes template.HTML
}

// ID returns the URL form of the task ID.
func (v TaskView) ID() string {
	return FormatTaskID(v.Task.ID)
}

// URL returns the path of the task page.
func (v TaskView) URL() string {
	return TaskURL(v.Task.ID)
}

// ActionURL returns the path the action is posted to.
func (v TaskView) ActionURL(action string) string {
	return TaskActionURL(v.Task.ID, action)
}

// ToggleURL returns the action flipping the done state of the task.
func (v TaskView) ToggleURL() string {
	if v.Task.Done {
		return v.ActionURL(ActionUndone)
	}
	return v.ActionURL(ActionDone)
}

// LoginProps are the inputs of the login page.
type LoginProps struct {
	Page Page
}

// TasksProps are the inputs of the task list page.
type TasksProps struct {
	Page        Page
	Filter      FilterParams
	FilterError string
	Tasks       []TaskView
}

// TaskProps are the inputs of the single task page.
type TaskProps struct {
	Page Page
	Task TaskView
}

// ErrorProps are the inputs of the error page.
type ErrorProps struct {
	Page       Page
	Status     int
	StatusText string
	Message    string
}

// TestProps are the inputs of the public test page.
type TestProps struct {
	Page Page
}
