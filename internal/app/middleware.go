package app

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stolasapp/todotoday/internal/sec"
)

// loadSession resolves the principal bound to the session cookie and attaches
// it to the request context. Unknown or expired sessions are treated as
// absent; a session whose user no longer exists is deleted.
func loadSession(sessions *sessions, resolver *sec.Resolver, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, ok, err := sessions.load(c)
			if err != nil {
				return err
			}
			if !ok {
				return next(c)
			}
			c.Set(sessionKey, session)
			if session.Anonymous() {
				return next(c)
			}

			ctx := c.Request().Context()
			user, err := resolver.FindByID(ctx, session.User)
			if errors.Is(err, sec.ErrCredentialNotFound) {
				logger.InfoContext(ctx, "session user no longer exists", slog.Any("session", session))
				if err = sessions.end(c); err != nil {
					return err
				}
				return next(c)
			} else if err != nil {
				return err
			}

			ctx = sec.SetPrincipal(ctx, sec.PrincipalFromUser(user))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// authorize enforces the access rules of every non-public path: anonymous
// requests are sent to the login page and principals without the required
// role are refused.
func authorize(allowList []string, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isPublic(allowList, c.Request().URL.Path) {
				return next(c)
			}
			principal, ok := sec.GetPrincipal(c.Request().Context())
			if !ok {
				return c.Redirect(http.StatusSeeOther, loginPath)
			}
			if !principal.HasRole(role) {
				return echo.NewHTTPError(http.StatusForbidden, sec.ErrUnauthorizedRole.Error()).
					SetInternal(sec.ErrUnauthorizedRole)
			}
			return next(c)
		}
	}
}

// isPublic reports whether path is served without a principal. Entries
// ending in a slash match the whole subtree.
func isPublic(allowList []string, path string) bool {
	if path == loginPath || path == logoutPath {
		return true
	}
	return slices.ContainsFunc(allowList, func(allowed string) bool {
		if strings.HasSuffix(allowed, "/") {
			return strings.HasPrefix(path, allowed)
		}
		return path == allowed
	})
}

func logRequests(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.RequestURI),
				slog.String("route", c.Path()),
				slog.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				slog.Duration("latency", latency),
				slog.Int("status", res.Status),
			}
			if principal, ok := sec.GetPrincipal(req.Context()); ok {
				attrs = append(attrs, slog.Any("principal", principal))
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(
				req.Context(),
				slog.LevelDebug,
				"request handled",
				attrs...,
			)
			return nil
		}
	}
}
