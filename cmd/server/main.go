package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-study/internal/activity"
	"github.com/p-n-ai/pai-study/internal/api"
	"github.com/p-n-ai/pai-study/internal/inference"
	"github.com/p-n-ai/pai-study/internal/library"
	"github.com/p-n-ai/pai-study/internal/platform/cache"
	"github.com/p-n-ai/pai-study/internal/platform/config"
	"github.com/p-n-ai/pai-study/internal/platform/database"
	"github.com/p-n-ai/pai-study/internal/profile"
	"github.com/p-n-ai/pai-study/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	deps, checks, cleanup, err := wire(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	reg := workspace.NewRegistry(deps)
	if cfg.Study.WorkspaceIdle > 0 {
		go evictIdle(ctx, reg, time.Duration(cfg.Study.WorkspaceIdle)*time.Minute)
	}

	mux := newMux(checks)
	api.NewHandler(reg).Register(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout(cfg.Inference.TimeoutSeconds),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// writeTimeout outlasts the inference timeout; zero means no limit.
func writeTimeout(inferenceSeconds int) time.Duration {
	if inferenceSeconds <= 0 {
		return 0
	}
	return time.Duration(inferenceSeconds)*time.Second + 15*time.Second
}

// readinessCheck is one dependency probed by /readyz.
type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

// wire builds the shared workspace dependencies from config.
func wire(ctx context.Context, cfg *config.Config) (workspace.Deps, []readinessCheck, func(), error) {
	var (
		checks  []readinessCheck
		closers []func()
		db      *database.DB
		rdb     *cache.Cache
		err     error
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.NeedsDatabase() {
		db, err = database.New(ctx, database.Options{
			URL:         cfg.Database.URL,
			MaxConns:    cfg.Database.MaxConns,
			MinConns:    cfg.Database.MinConns,
			AutoMigrate: cfg.Database.AutoMigrate,
		})
		if err != nil {
			return workspace.Deps{}, nil, nil, fmt.Errorf("connecting database: %w", err)
		}
		closers = append(closers, db.Close)
		checks = append(checks, readinessCheck{"database", db.HealthCheck})
	}

	if cfg.NeedsCache() {
		rdb, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			cleanup()
			return workspace.Deps{}, nil, nil, fmt.Errorf("connecting cache: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		checks = append(checks, readinessCheck{"cache", rdb.HealthCheck})
	}

	var log activity.Log
	switch cfg.Storage.ActivityBackend {
	case "postgres":
		log = activity.NewPostgresLog(db.Pool)
	case "redis":
		log = activity.NewRedisLog(rdb)
	default:
		log = activity.NewMemoryLog()
	}

	defaults, err := profile.Configured(cfg.Study.DefaultGrade, cfg.Study.DefaultDailyGoal)
	if err != nil {
		cleanup()
		return workspace.Deps{}, nil, nil, fmt.Errorf("profile defaults: %w", err)
	}

	var profiles profile.Store
	switch cfg.Storage.ProfileBackend {
	case "postgres":
		profiles = profile.NewPostgresStore(db.Pool).WithDefaults(defaults)
	default:
		profiles = profile.NewMemoryStore().WithDefaults(defaults)
	}

	var opts []inference.ClientOption
	if cfg.Inference.TimeoutSeconds > 0 {
		opts = append(opts, inference.WithTimeout(time.Duration(cfg.Inference.TimeoutSeconds)*time.Second))
	}
	client := inference.NewClient(cfg.Inference.URL, opts...)
	checks = append(checks, readinessCheck{"inference", client.HealthCheck})

	catalog := loadLibrary(ctx, cfg.Storage.LibraryPath, client)

	slog.Info("storage wired",
		"activity_backend", cfg.Storage.ActivityBackend,
		"profile_backend", cfg.Storage.ProfileBackend,
		"inference_url", cfg.Inference.URL,
		"subjects", len(catalog.Subjects()),
	)

	return workspace.Deps{
		Inference:   client,
		Log:         log,
		Profiles:    profiles,
		Library:     catalog,
		Baseline:    cfg.Study.BaselineReadiness,
		RecentLimit: cfg.Study.RecentActivityLimit,
	}, checks, cleanup, nil
}

// evictIdle drops workspaces unused for longer than idle until ctx is done.
func evictIdle(ctx context.Context, reg *workspace.Registry, idle time.Duration) {
	ticker := time.NewTicker(min(idle, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := reg.EvictIdle(now.Add(-idle)); n > 0 {
				slog.Info("evicted idle workspaces", "count", n, "remaining", reg.Len())
			}
		}
	}
}

// loadLibrary prefers a local YAML catalog and otherwise asks the inference
// service. An unreachable service yields an empty catalog.
func loadLibrary(ctx context.Context, path string, l library.Lister) *library.Catalog {
	if path != "" {
		c, err := library.LoadDir(path)
		if err == nil {
			return c
		}
		slog.Warn("failed to load library directory, falling back to inference", "path", path, "error", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c, err := library.Fetch(fetchCtx, l)
	if err != nil {
		slog.Warn("library unavailable, starting with an empty catalog", "error", err)
		return library.NewCatalog(nil)
	}
	return c
}

// newMux creates the HTTP router with health check endpoints.
func newMux(checks []readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var failed []string
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				slog.Warn("readiness check failed", "dependency", c.name, "error", err)
				failed = append(failed, c.name)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unavailable","failed":%q}`, strings.Join(failed, ","))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
