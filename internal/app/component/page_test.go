package component

import (
	"bytes"
	"context"
	"html/template"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

func renderString(t *testing.T, comp templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, comp.Render(context.Background(), &buf))
	return buf.String()
}

func TestLogin(t *testing.T) {
	t.Parallel()

	out := renderString(t, Login(LoginProps{Page: Page{
		CSRF:  "tok3n",
		Flash: db.Flash{Text: sec.FailureMessage, Status: db.FlashFailure},
	}}))
	assert.Contains(t, out, `<title>Log in · todotoday</title>`)
	assert.Contains(t, out, `id="login-form"`)
	assert.Contains(t, out, `name="_csrf" value="tok3n"`)
	assert.Contains(t, out, `data-status="FAILURE"`)
	assert.Contains(t, out, "Incorrect username and/or password. Please try again.")
	assert.NotContains(t, out, `id="logout-form"`)

	out = renderString(t, Login(LoginProps{}))
	assert.NotContains(t, out, `id="flash"`)
}

func TestTasks(t *testing.T) {
	t.Parallel()

	out := renderString(t, Tasks(TasksProps{
		Page: Page{
			Principal: sec.Principal{ID: 1, Name: "alice"},
			SignedIn:  true,
			CSRF:      "tok3n",
		},
		Filter:      FilterParams{Expr: "!done"},
		FilterError: "invalid filter: <bad>",
		Tasks: []TaskView{
			{Task: db.Task{ID: 11, Title: "<script>x</script>"}},
			{Task: db.Task{ID: 12, Title: "walk dog", Done: true}, Notes: template.HTML("<p><em>now</em></p>")},
		},
	}))
	assert.Contains(t, out, `id="logout-form"`)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, `aria-current="page">open</a>`)
	assert.Contains(t, out, "invalid filter: &lt;bad&gt;")
	assert.Contains(t, out, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, out, "<script>x")
	assert.Contains(t, out, `href="/tasks/11"`)
	assert.Contains(t, out, `action="/tasks/11/done"`)
	assert.Contains(t, out, `action="/tasks/12/undone"`)
	assert.Contains(t, out, `action="/tasks/12/delete"`)
	assert.Contains(t, out, `data-done="true"`)
	assert.Contains(t, out, "<p><em>now</em></p>")
	assert.NotContains(t, out, "Nothing to do.")

	out = renderString(t, Tasks(TasksProps{Page: Page{SignedIn: true}}))
	assert.Contains(t, out, "Nothing to do.")
}

func TestTask(t *testing.T) {
	t.Parallel()

	out := renderString(t, Task(TaskProps{
		Page: Page{SignedIn: true, CSRF: "tok3n"},
		Task: TaskView{Task: db.Task{ID: 5, Title: "buy milk", Notes: "*2%*"}},
	}))
	assert.Contains(t, out, "<title>buy milk · todotoday</title>")
	assert.Contains(t, out, `id="edit-task"`)
	assert.Contains(t, out, `action="/tasks/5"`)
	assert.Contains(t, out, `name="next" value="/tasks/5"`)
	assert.Contains(t, out, "Mark done")
	assert.Contains(t, out, ">*2%*</textarea>")
}

func TestError(t *testing.T) {
	t.Parallel()

	out := renderString(t, Error(ErrorProps{
		Status:     404,
		StatusText: "Not Found",
		Message:    "task not found",
	}))
	assert.Contains(t, out, "<h1>404 Not Found</h1>")
	assert.Contains(t, out, "task not found")
}

func TestTest(t *testing.T) {
	t.Parallel()

	out := renderString(t, Test(TestProps{}))
	assert.Contains(t, out, "This page is public.")
	assert.NotContains(t, out, "logged in as")

	out = renderString(t, Test(TestProps{Page: Page{SignedIn: true, Principal: sec.Principal{ID: 1, Name: "bob"}}}))
	assert.Contains(t, out, "You are logged in as bob.")
}

func TestTask_EscapesAttributes(t *testing.T) {
	t.Parallel()

	out := renderString(t, Task(TaskProps{
		Task: TaskView{Task: db.Task{ID: 7, Title: `say "hi"`}},
	}))
	assert.Contains(t, out, `name="title" value="say &#34;hi&#34;"`)
	assert.Contains(t, out, "<h1>say &#34;hi&#34;</h1>")
	assert.NotContains(t, out, `class="notes"`)
}

func TestRender_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := Login(LoginProps{}).Render(ctx, &buf)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}
