package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stolasapp/todotoday/internal/sec"
)

const namespace = "todotoday"

// Login outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the collectors exported on the metrics listener. Each
// instance owns its registry, so tests can create as many as they like.
type Metrics struct {
	registry      *prometheus.Registry
	loginAttempts *prometheus.CounterVec
	requests      *prometheus.HistogramVec
	sessionsPurge prometheus.Counter
}

// NewMetrics creates and registers the server collectors, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of handled HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		sessionsPurge: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_purged_total",
			Help:      "Expired sessions removed from the store.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.loginAttempts,
		m.requests,
		m.sessionsPurge,
	)
	// expose both outcomes from the start
	m.loginAttempts.WithLabelValues(OutcomeSuccess)
	m.loginAttempts.WithLabelValues(OutcomeFailure)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLogin counts a login attempt. It is meant to be passed to
// [sec.WithObserver].
func (m *Metrics) ObserveLogin(_ context.Context, outcome sec.Outcome) {
	label := OutcomeFailure
	if outcome.Succeeded() {
		label = OutcomeSuccess
	}
	m.loginAttempts.WithLabelValues(label).Inc()
}

// ObservePurge counts sessions removed by a purge.
func (m *Metrics) ObservePurge(count int64) {
	m.sessionsPurge.Add(float64(count))
}

// Middleware records the latency of every request by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if httpErr, ok := err.(*echo.HTTPError); ok { //nolint:errorlint // echo returns it unwrapped
					status = httpErr.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requests.WithLabelValues(
				c.Request().Method,
				route,
				strconv.Itoa(status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
