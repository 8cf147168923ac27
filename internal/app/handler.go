package app

import (
	"bytes"
	"errors"
	"net/http"
	"sync"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/stolasapp/todotoday/internal/app/component"
	"github.com/stolasapp/todotoday/internal/content"
	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage/db"
	"github.com/stolasapp/todotoday/internal/todo"
)

const (
	loginPath  = "/login"
	logoutPath = "/logout"
	homePath   = "/"

	// outcomeKey is the echo context key of the login [sec.Outcome].
	outcomeKey = "todotoday.outcome"

	// LogoutMessage is shown on the login page after logging out.
	LogoutMessage = "You have been logged out."
)

type handler struct {
	gate      *sec.Gate
	sessions  *sessions
	tasks     *todo.Service
	notes     *content.Renderer
	onSuccess echo.HandlerFunc
	onFailure echo.HandlerFunc
}

func (h *handler) register(g *echo.Group) {
	g.GET(loginPath, h.loginForm)
	g.POST(loginPath, h.login)
	g.POST(logoutPath, h.logout)
	g.GET("/test", h.test)
	g.GET("/healthz", h.healthz)

	g.GET(homePath, h.list)
	g.POST("/tasks", h.create)

	task := g.Group("/tasks/:id")
	task.GET("", h.show)
	task.POST("", h.update)
	task.POST("/"+component.ActionDone, h.setDone(true))
	task.POST("/"+component.ActionUndone, h.setDone(false))
	task.POST("/"+component.ActionDelete, h.delete)
}

// LoginOutcome returns the outcome of the login attempt being handled. It is
// meant for the continuations passed to [WithOnSuccess] and [WithOnFailure].
func LoginOutcome(c echo.Context) sec.Outcome {
	outcome, _ := c.Get(outcomeKey).(sec.Outcome)
	return outcome
}

func (h *handler) loginForm(c echo.Context) error {
	if _, ok := sec.GetPrincipal(c.Request().Context()); ok {
		return c.Redirect(http.StatusSeeOther, homePath)
	}
	page, err := h.page(c)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, component.Login(component.LoginProps{Page: page}))
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()
	outcome, err := h.gate.Authenticate(ctx,
		c.FormValue(component.FieldUsername),
		c.FormValue(component.FieldPassword),
	)
	if err != nil {
		return err
	}
	c.Set(outcomeKey, outcome)

	if !outcome.Succeeded() {
		return h.onFailure(c)
	}
	if _, err = h.sessions.start(c, outcome.Principal.ID, h.sessions.ttl); err != nil {
		return err
	}
	c.SetRequest(c.Request().WithContext(sec.SetPrincipal(ctx, outcome.Principal)))
	return h.onSuccess(c)
}

// loginSucceeded is the default success continuation.
func (h *handler) loginSucceeded(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, homePath)
}

// loginFailed is the default failure continuation.
func (h *handler) loginFailed(c echo.Context) error {
	err := h.sessions.flash(c, db.Flash{
		Text:   LoginOutcome(c).Message(),
		Status: db.FlashFailure,
	})
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *handler) logout(c echo.Context) error {
	if err := h.sessions.end(c); err != nil {
		return err
	}
	err := h.sessions.flash(c, db.Flash{
		Text:   LogoutMessage,
		Status: db.FlashSuccess,
	})
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *handler) test(c echo.Context) error {
	page, err := h.page(c)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, component.Test(component.TestProps{Page: page}))
}

func (h *handler) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *handler) list(c echo.Context) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	status := http.StatusOK
	filter := component.FilterParams{Expr: c.QueryParam(component.ParamFilter)}
	var filterErr string
	tasks, err := h.tasks.List(ctx, principal.ID, filter.Expr)
	if errors.Is(err, todo.ErrInvalidFilter) {
		status = http.StatusBadRequest
		filterErr = err.Error()
		tasks, err = h.tasks.List(ctx, principal.ID, "")
	}
	if err != nil {
		return err
	}

	views, err := h.views(tasks...)
	if err != nil {
		return err
	}
	page, err := h.page(c)
	if err != nil {
		return err
	}
	return render(c, status, component.Tasks(component.TasksProps{
		Page:        page,
		Filter:      filter,
		FilterError: filterErr,
		Tasks:       views,
	}))
}

func (h *handler) create(c echo.Context) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	_, err = h.tasks.Create(c.Request().Context(), principal.ID, draft(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Redirect(http.StatusSeeOther, homePath)
}

func (h *handler) show(c echo.Context) error {
	principal, taskID, err := taskParams(c)
	if err != nil {
		return err
	}
	task, err := h.tasks.Get(c.Request().Context(), principal.ID, taskID)
	if err != nil {
		return toHTTPError(err)
	}
	views, err := h.views(task)
	if err != nil {
		return err
	}
	page, err := h.page(c)
	if err != nil {
		return err
	}
	return render(c, http.StatusOK, component.Task(component.TaskProps{
		Page: page,
		Task: views[0],
	}))
}

func (h *handler) update(c echo.Context) error {
	principal, taskID, err := taskParams(c)
	if err != nil {
		return err
	}
	task, err := h.tasks.Update(c.Request().Context(), principal.ID, taskID, draft(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Redirect(http.StatusSeeOther, component.TaskURL(task.ID))
}

func (h *handler) setDone(done bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, taskID, err := taskParams(c)
		if err != nil {
			return err
		}
		_, err = h.tasks.SetDone(c.Request().Context(), principal.ID, taskID, done)
		if err != nil {
			return toHTTPError(err)
		}
		next := component.SafeNext(c.FormValue(component.FieldNext), homePath)
		return c.Redirect(http.StatusSeeOther, next)
	}
}

func (h *handler) delete(c echo.Context) error {
	principal, taskID, err := taskParams(c)
	if err != nil {
		return err
	}
	if err = h.tasks.Delete(c.Request().Context(), principal.ID, taskID); err != nil {
		return toHTTPError(err)
	}
	return c.Redirect(http.StatusSeeOther, homePath)
}

// page collects the state every page renders, consuming the pending notice.
func (h *handler) page(c echo.Context) (component.Page, error) {
	flash, err := h.sessions.takeFlash(c)
	if err != nil {
		return component.Page{}, err
	}
	principal, signedIn := sec.GetPrincipal(c.Request().Context())
	csrf, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return component.Page{
		Principal: principal,
		SignedIn:  signedIn,
		CSRF:      csrf,
		Flash:     flash,
	}, nil
}

func (h *handler) views(tasks ...db.Task) ([]component.TaskView, error) {
	views := make([]component.TaskView, len(tasks))
	for i, task := range tasks {
		notes, err := h.notes.Render(task.Notes)
		if err != nil {
			return nil, err
		}
		views[i] = component.TaskView{Task: task, Notes: notes}
	}
	return views, nil
}

// requirePrincipal returns the principal of the request. The principal ID
// is never taken from the request parameters.
func requirePrincipal(c echo.Context) (sec.Principal, error) {
	principal, ok := sec.GetPrincipal(c.Request().Context())
	if !ok {
		return sec.Principal{}, sec.ErrUnauthenticated
	}
	return principal, nil
}

func taskParams(c echo.Context) (sec.Principal, uint64, error) {
	principal, err := requirePrincipal(c)
	if err != nil {
		return sec.Principal{}, 0, err
	}
	taskID, err := component.ParseTaskID(c.Param("id"))
	if err != nil {
		return sec.Principal{}, 0, echo.NewHTTPError(http.StatusNotFound, "task not found").SetInternal(err)
	}
	return principal, taskID, nil
}

func draft(c echo.Context) todo.Draft {
	return todo.Draft{
		Title: c.FormValue(component.FieldTitle),
		Notes: c.FormValue(component.FieldNotes),
	}
}

var renderBufferPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

func render(c echo.Context, status int, comp templ.Component) error {
	buf := renderBufferPool.Get().(*bytes.Buffer) //nolint:forcetypeassert // guaranteed by impl
	defer renderBufferPool.Put(buf)
	buf.Reset()

	if err := comp.Render(c.Request().Context(), buf); err != nil {
		return err
	}
	return c.HTMLBlob(status, buf.Bytes())
}
