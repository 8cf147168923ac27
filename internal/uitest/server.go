// Package uitest provides UI testing utilities using Rod.
package uitest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/stolasapp/todotoday/internal/app"
	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/content"
	"github.com/stolasapp/todotoday/internal/devseed"
	"github.com/stolasapp/todotoday/internal/sec"
	"github.com/stolasapp/todotoday/internal/server"
	"github.com/stolasapp/todotoday/internal/storage"
	"github.com/stolasapp/todotoday/internal/todo"
)

// TestSeed is the fixed seed used for reproducible test data.
const TestSeed uint64 = 12345

// Server is a test server that runs the app against a seeded database.
type Server struct {
	baseURL string
	cancel  context.CancelFunc
	grp     *errgroup.Group
	store   *storage.DB
}

// newTestServer creates and starts a new test server. It is shut down when
// the test completes.
func newTestServer(t testing.TB) *Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	grp, ctx := errgroup.WithContext(ctx)
	logger := slog.New(slog.DiscardHandler)

	cfg := config.Default()
	cfg.DBFilepath = filepath.Join(t.TempDir(), "db.sqlite")
	store, err := storage.NewDB(ctx, cfg, logger)
	if err != nil {
		cancel()
		t.Fatalf("failed to create storage: %v", err)
	}

	hasher := sec.NewHasher(bcrypt.MinCost)
	resolver := sec.NewResolver(store)
	tasks, err := todo.NewService(store, logger)
	if err == nil {
		err = devseed.Populate(ctx, store, tasks, hasher, devseed.New(TestSeed), logger)
	}
	if err != nil {
		cancel()
		_ = store.Close()
		t.Fatalf("failed to seed storage: %v", err)
	}

	srv := app.New(cfg, logger, app.Services{
		Resolver: resolver,
		Gate:     sec.NewGate(resolver, hasher, logger),
		Sessions: store,
		Tasks:    tasks,
		Notes:    content.NewRenderer(),
	})

	listener, err := server.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		cancel()
		_ = store.Close()
		t.Fatalf("failed to listen: %v", err)
	}
	server.Serve(ctx, grp, logger, "app", srv, listener)

	s := &Server{
		baseURL: "http://" + listener.Addr().String(),
		cancel:  cancel,
		grp:     grp,
		store:   store,
	}
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the base URL of the test server.
func (s *Server) BaseURL() string {
	return s.baseURL
}

// URL constructs a full URL from the server base URL and a path.
func (s *Server) URL(path string) string {
	return fmt.Sprintf("%s%s", s.baseURL, path)
}

// Close shuts down the test server.
// Errors are ignored since this runs during test cleanup where failures
// are typically unrecoverable and already logged by the errgroup.
func (s *Server) Close() {
	s.cancel()
	_ = s.grp.Wait()
	_ = s.store.Close()
}
