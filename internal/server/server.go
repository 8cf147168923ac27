// Package server runs the HTTP listeners of the app and the metrics endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server timeouts.
const (
	ReadHeaderTimeout = 1 * time.Second
	ReadTimeout       = 5 * time.Second
	WriteTimeout      = 10 * time.Second
	IdleTimeout       = 60 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

// Listen creates a TCP listener on the given address.
// Use "127.0.0.1:0" for a random available port.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}

// Serve starts an HTTP server for handler on the given listener and registers
// graceful shutdown when the context is canceled. The server is configured
// with standard timeouts.
func Serve(
	ctx context.Context,
	grp *errgroup.Group,
	logger *slog.Logger,
	name string,
	handler http.Handler,
	listener net.Listener,
) {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	grp.Go(func() error {
		logger.InfoContext(ctx, "server listening",
			slog.String("server", name),
			slog.String("address", "http://"+listener.Addr().String()),
		)
		err := srv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	grp.Go(func() error {
		<-ctx.Done()
		logger.InfoContext(ctx, "server shutting down", slog.String("server", name))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// Every runs fn each interval until ctx is canceled. Errors returned by fn are
// logged and do not stop the loop.
func Every(
	ctx context.Context,
	grp *errgroup.Group,
	logger *slog.Logger,
	interval time.Duration,
	name string,
	fn func(context.Context) error,
) {
	grp.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					logger.WarnContext(ctx, "periodic task failed",
						slog.String("task", name),
						slog.Any("error", err),
					)
				}
			}
		}
	})
}
