// Package app contains the web front-end.
package app

import (
	"embed"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/content"
	"github.com/stolasapp/todotoday/internal/observability"
	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/todo"
)

//go:embed static
var staticFiles embed.FS

// Services are the components the web front-end is built on.
type Services struct {
	Resolver *sec.Resolver
	Gate     *sec.Gate
	Sessions storage.Sessions
	Tasks    *todo.Service
	Notes    *content.Renderer
	// Metrics is optional; requests are not measured if nil.
	Metrics *observability.Metrics
}

// Option configures the web front-end.
type Option func(*handler)

// WithOnSuccess replaces the continuation run after a successful login. The
// new session is already established when it runs; the outcome is available
// from [LoginOutcome]. The default redirects to the task list.
func WithOnSuccess(fn echo.HandlerFunc) Option {
	return func(h *handler) {
		h.onSuccess = fn
	}
}

// WithOnFailure replaces the continuation run after a failed login. The
// outcome is available from [LoginOutcome]. The default stores the failure
// notice in the session and redirects to the login page.
func WithOnFailure(fn echo.HandlerFunc) Option {
	return func(h *handler) {
		h.onFailure = fn
	}
}

// New creates a web front-end server. Every request passes the same explicit
// pipeline: recovery, request IDs, security headers, and metrics; then,
// outside the static assets, CSRF protection, session loading, and the
// access rules of cfg.Access.
func New(
	cfg config.Config,
	logger *slog.Logger,
	svc Services,
	opts ...Option,
) *echo.Echo {
	srv := echo.New()

	srv.HideBanner = true
	srv.HidePort = true
	srv.Logger.SetLevel(log.OFF)
	srv.HTTPErrorHandler = errorHandler(logger)

	srv.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator: uuid.NewString,
		}),
		middleware.Secure(),
	)
	if svc.Metrics != nil {
		srv.Use(svc.Metrics.Middleware())
	}
	if cfg.DevMode {
		srv.Debug = true
		srv.Use(logRequests(logger))
	}

	staticFS := echo.MustSubFS(staticFiles, "static")
	srv.StaticFS("/assets/", staticFS)
	srv.FileFS("/robots.txt", "robots.txt", staticFS)

	sessions := newSessions(svc.Sessions, cfg.Session)
	hdl := &handler{
		gate:     svc.Gate,
		sessions: sessions,
		tasks:    svc.Tasks,
		notes:    svc.Notes,
	}
	hdl.onSuccess = hdl.loginSucceeded
	hdl.onFailure = hdl.loginFailed
	for _, opt := range opts {
		opt(hdl)
	}

	protected := srv.Group("",
		middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   cfg.Session.SecureCookie,
			CookieSameSite: http.SameSiteLaxMode,
		}),
		loadSession(sessions, svc.Resolver, logger),
		authorize(cfg.Access.AllowList, cfg.Access.RequiredRole),
	)
	hdl.register(protected)
	return srv
}
