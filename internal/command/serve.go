package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stolasapp/todotoday/internal/app"
	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/content"
	"github.com/stolasapp/todotoday/internal/devseed"
	"github.com/stolasapp/todotoday/internal/observability"
	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/server"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/todo"
)

// purgeInterval is how often expired sessions are removed from the store.
const purgeInterval = 15 * time.Minute

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the to-do list Web App",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer closeWith(store.Close, &runErr)

			sessions, closeSessions, err := openSessions(cmd.Context(), cfg, logger, store)
			if err != nil {
				return err
			}
			defer closeWith(closeSessions, &runErr)

			hasher := sec.NewHasher(cfg.Password.BcryptCost)
			resolver := sec.NewResolver(store)
			metrics := observability.NewMetrics()
			tasks, err := todo.NewService(store, logger)
			if err != nil {
				return err
			}

			if cfg.DevMode {
				seed := devseed.Seed()
				logger.InfoContext(cmd.Context(), "seeding dev users", slog.Uint64("seed", seed))
				err = devseed.Populate(cmd.Context(), store, tasks, hasher, devseed.New(seed), logger)
				if err != nil {
					return err
				}
			}

			appServer := app.New(cfg, logger, app.Services{
				Resolver: resolver,
				Gate:     sec.NewGate(resolver, hasher, logger, sec.WithObserver(metrics.ObserveLogin)),
				Sessions: sessions,
				Tasks:    tasks,
				Notes:    content.NewRenderer(),
				Metrics:  metrics,
			})

			grp, ctx := errgroup.WithContext(cmd.Context())
			serveHTTP(ctx, grp, logger, "app", cfg.WebAddress, appServer)
			serveHTTP(ctx, grp, logger, "metrics", cfg.MetricsAddress, metricsMux(metrics))
			purgeSessions(ctx, grp, logger, sessions, metrics)
			return grp.Wait()
		},
	}
}

// openSessions returns the session store selected by the config, the SQLite
// store itself or a Redis server, along with the function releasing it.
func openSessions(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	store *storage.DB,
) (storage.Sessions, func() error, error) {
	switch cfg.Session.Backend {
	case config.BackendRedis:
		sessions, err := storage.NewRedisSessions(ctx, cfg.Session.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return sessions, sessions.Close, nil
	case config.BackendSQLite, "":
		// closed along with the rest of the store
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func serveHTTP(
	ctx context.Context,
	grp *errgroup.Group,
	logger *slog.Logger,
	name string,
	addr string,
	handler http.Handler,
) {
	if addr == "" {
		return
	}

	listener, err := server.Listen(ctx, addr)
	if err != nil {
		grp.Go(func() error { return fmt.Errorf("failed to listen for %s server: %w", name, err) })
		return
	}

	logger.InfoContext(ctx,
		"starting "+name+" server...",
		slog.String("address", addr),
	)
	server.Serve(ctx, grp, logger, name, handler, listener)
}

func metricsMux(metrics *observability.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func purgeSessions(
	ctx context.Context,
	grp *errgroup.Group,
	logger *slog.Logger,
	sessions storage.Sessions,
	metrics *observability.Metrics,
) {
	server.Every(ctx, grp, logger, purgeInterval, "purge sessions", func(ctx context.Context) error {
		count, err := sessions.PurgeSessions(ctx, time.Now())
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		metrics.ObservePurge(count)
		if count > 0 {
			logger.DebugContext(ctx, "purged expired sessions", slog.Int64("count", count))
		}
		return nil
	})
}
