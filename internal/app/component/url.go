package component

import (
	"net/url"
	"strconv"
)

// ParamFilter is the query parameter carrying the task list filter.
const ParamFilter = "filter"

// Task actions, the last path segment of the action URLs.
const (
	ActionDone   = "done"
	ActionUndone = "undone"
	ActionDelete = "delete"
)

// FilterParams holds the current filter expression of the task list.
type FilterParams struct {
	Expr string
}

// Preset is a quick link to a commonly used filter.
type Preset struct {
	Label  string
	URL    string
	Active bool
}

// presets are the filters linked above the task list.
var presets = []struct {
	label string
	expr  string
}{
	{"all", ""},
	{"open", "!done"},
	{"done", "done"},
}

// QueryString returns the query string portion of the URL (without leading ?).
func (f FilterParams) QueryString() string {
	params := url.Values{}
	if f.Expr != "" {
		params.Set(ParamFilter, f.Expr)
	}
	return params.Encode()
}

// BuildURL constructs a full URL with the base path and query parameters.
func (f FilterParams) BuildURL(baseURL string) string {
	qs := f.QueryString()
	if qs == "" {
		return baseURL
	}
	return baseURL + "?" + qs
}

// Presets returns the quick filter links, marking the one matching the
// current expression as active.
func (f FilterParams) Presets() []Preset {
	out := make([]Preset, len(presets))
	for i, preset := range presets {
		out[i] = Preset{
			Label:  preset.label,
			URL:    FilterParams{Expr: preset.expr}.BuildURL("/"),
			Active: preset.expr == f.Expr,
		}
	}
	return out
}

// ParseQueryString parses a query string into FilterParams.
func ParseQueryString(qs string) FilterParams {
	values, err := url.ParseQuery(qs)
	if err != nil {
		return FilterParams{}
	}
	return FilterParams{Expr: values.Get(ParamFilter)}
}

// TaskURL returns the path of the task page.
func TaskURL(taskID uint64) string {
	return "/tasks/" + FormatTaskID(taskID)
}

// TaskActionURL returns the path an action on the task is posted to.
func TaskActionURL(taskID uint64, action string) string {
	return TaskURL(taskID) + "/" + action
}

// FormatTaskID converts a task ID to its URL form.
func FormatTaskID(taskID uint64) string {
	return strconv.FormatUint(taskID, 10)
}

// ParseTaskID converts the URL form of a task ID back. An error is returned
// for anything that is not a positive decimal integer.
func ParseTaskID(raw string) (uint64, error) {
	taskID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if taskID == 0 {
		return 0, strconv.ErrRange
	}
	return taskID, nil
}

// SafeNext returns next if it is a local absolute path, or fallback
// otherwise. It guards redirects driven by form fields.
func SafeNext(next, fallback string) string {
	if len(next) < 1 || next[0] != '/' {
		return fallback
	}
	if len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return fallback
	}
	return next
}
