package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"github.com/stolasapp/todotoday/internal/storage/db"
)

// Variables available to filter expressions.
const (
	titleVar      = "title"
	notesVar      = "notes"
	doneVar       = "done"
	createTimeVar = "create_time"
	updateTimeVar = "update_time"
	nowVar        = "now"
)

// Filter evaluates CEL expressions against tasks, e.g. `!done` or
// `title.lowerAscii().contains("milk")`. It narrows a list that has already
// been scoped to its owner and plays no part in authorization.
type Filter struct {
	env *cel.Env
	now func() time.Time
}

// NewFilter creates the CEL environment for task filters.
func NewFilter() (*Filter, error) {
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable(titleVar, cel.StringType),
		cel.Variable(notesVar, cel.StringType),
		cel.Variable(doneVar, cel.BoolType),
		cel.Variable(createTimeVar, cel.TimestampType),
		cel.Variable(updateTimeVar, cel.TimestampType),
		cel.Variable(nowVar, cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task filter CEL environment: %w", err)
	}
	return &Filter{env: env, now: time.Now}, nil
}

// Compile checks expr, which must evaluate to a bool.
func (f *Filter) Compile(expr string) (cel.Program, error) {
	ast, issues := f.env.Compile(expr)
	if err := issues.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	if outType := ast.OutputType(); !outType.IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must return bool but got %s", ErrInvalidFilter, outType.String())
	}
	prog, err := f.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return prog, nil
}

// Apply returns the tasks for which expr is true, in their original order.
// An empty expr matches every task.
func (f *Filter) Apply(ctx context.Context, expr string, tasks []db.Task) ([]db.Task, error) {
	if expr == "" {
		return tasks, nil
	}
	prog, err := f.Compile(expr)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}
	now := f.now()
	out := make([]db.Task, 0, len(tasks))
	for _, task := range tasks {
		val, _, err := prog.ContextEval(ctx, map[string]any{
			titleVar:      task.Title,
			notesVar:      task.Notes,
			doneVar:       task.Done,
			createTimeVar: task.CreateTime,
			updateTimeVar: task.UpdateTime,
			nowVar:        now,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		if match, ok := val.Value().(bool); !ok {
			return nil, fmt.Errorf("%w: expected bool, got %T", ErrInvalidFilter, val.Value())
		} else if match {
			out = append(out, task)
		}
	}
	return out, nil
}
