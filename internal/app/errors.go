package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/stolasapp/todotoday/internal/app/component"
	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/todo"
)

// toHTTPError converts an error to an Echo HTTPError with the appropriate
// HTTP status code. Errors without a known status pass through unchanged
// and are reported as internal errors.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}

	// Already an HTTP error - pass through
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	status := errorStatus(err)
	if status != http.StatusInternalServerError {
		return echo.NewHTTPError(status, err.Error()).SetInternal(err)
	}
	return err
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict // 409
	case errors.Is(err, storage.ErrInvalidUsername),
		errors.Is(err, todo.ErrInvalidTask),
		errors.Is(err, todo.ErrInvalidFilter):
		return http.StatusBadRequest // 400
	case errors.Is(err, sec.ErrUnauthenticated):
		return http.StatusUnauthorized // 401
	case errors.Is(err, sec.ErrUnauthorizedRole):
		return http.StatusForbidden // 403
	default:
		return http.StatusInternalServerError // 500
	}
}

// errorHandler renders errors as pages. Internal errors are logged and their
// details withheld from the response.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if errors.Is(err, sec.ErrUnauthenticated) {
			_ = c.Redirect(http.StatusSeeOther, loginPath)
			return
		}

		status := http.StatusInternalServerError
		var message string
		var httpErr *echo.HTTPError
		if errors.As(toHTTPError(err), &httpErr) {
			status = httpErr.Code
			message = fmt.Sprint(httpErr.Message)
		}

		ctx := c.Request().Context()
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "request failed",
				slog.String("method", c.Request().Method),
				slog.String("uri", c.Request().RequestURI),
				slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				slog.Any("error", err),
			)
			message = ""
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}

		principal, signedIn := sec.GetPrincipal(ctx)
		csrf, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
		err = render(c, status, component.Error(component.ErrorProps{
			Page: component.Page{
				Principal: principal,
				SignedIn:  signedIn,
				CSRF:      csrf,
			},
			Status:     status,
			StatusText: http.StatusText(status),
			Message:    message,
		}))
		if err != nil {
			logger.ErrorContext(ctx, "failed to render error page", slog.Any("error", err))
		}
	}
}
