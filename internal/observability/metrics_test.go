package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/todotoday/internal/sec"
)

func TestMetrics_ObserveLogin(t *testing.T) {
	t.Parallel()
	metrics := NewMetrics()
	ctx := context.Background()

	metrics.ObserveLogin(ctx, sec.Success(sec.Principal{ID: 1, Name: "alice"}))
	metrics.ObserveLogin(ctx, sec.Failure(sec.ErrPasswordMismatch))
	metrics.ObserveLogin(ctx, sec.Failure(sec.ErrCredentialNotFound))

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.loginAttempts.WithLabelValues(OutcomeSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.loginAttempts.WithLabelValues(OutcomeFailure)), 0)
}

func TestMetrics_Middleware(t *testing.T) {
	t.Parallel()
	metrics := NewMetrics()

	e := echo.New()
	e.Use(metrics.Middleware())
	e.GET("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/teapot", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot)
	})

	for _, path := range []string{"/ok", "/ok", "/teapot"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2, testutil.CollectAndCount(metrics.requests))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	metrics := NewMetrics()
	metrics.ObserveLogin(context.Background(), sec.Failure(sec.ErrPasswordMismatch))
	metrics.ObservePurge(3)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `todotoday_login_attempts_total{outcome="failure"} 1`)
	assert.Contains(t, body, `todotoday_login_attempts_total{outcome="success"} 0`)
	assert.Contains(t, body, "todotoday_sessions_purged_total 3")
	assert.Contains(t, body, "go_goroutines")
}
