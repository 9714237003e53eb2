package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/s1natex/todo-web-GO/internal/api"
	"github.com/s1natex/todo-web-GO/internal/auth"
	"github.com/s1natex/todo-web-GO/internal/config"
	"github.com/s1natex/todo-web-GO/internal/dashboard"
	"github.com/s1natex/todo-web-GO/internal/middleware"
	"github.com/s1natex/todo-web-GO/internal/session"
	"github.com/s1natex/todo-web-GO/internal/telemetry"
	"github.com/s1natex/todo-web-GO/internal/web"
)

var Version = "dev"

const janitorInterval = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "todo-web",
		Short:        "Server-rendered web front end for the to-do API",
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the web server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	root.AddCommand(migrateCmd(&configPath))
	return root
}

func migrateCmd(configPath *string) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQLite session schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.Session.SQLitePath
			}
			repo, err := openSQLite(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "session schema applied to %s\n", dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file (defaults to session.sqlite_path)")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.Log.Level, os.Stdout)
	slog.SetDefault(logger) // for third-party packages that use slog

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Error("tracing_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	repo, closeRepo, err := openRepo(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer closeRepo()

	m, err := newSessionManager(cfg, repo, logger)
	if err != nil {
		return err
	}
	go m.RunJanitor(ctx, janitorInterval, cfg.Session.MaxAge)

	r, err := newRouter(cfg, m, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen",
			slog.String("addr", cfg.Server.Addr),
			slog.String("api", cfg.API.BaseURL),
			slog.String("session_store", cfg.Session.Store),
			slog.String("version", Version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func openRepo(ctx context.Context, cfg config.SessionConfig) (session.Repository, func(), error) {
	if cfg.Store == config.StoreSQLite {
		repo, err := openSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}
	return session.NewInMemoryRepo(), func() {}, nil
}

func openSQLite(ctx context.Context, path string) (*session.SQLiteRepo, error) {
	dsn, err := session.SQLiteFileDSN(path)
	if err != nil {
		return nil, fmt.Errorf("sqlite path: %w", err)
	}
	repo, err := session.NewSQLiteRepo(dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := repo.ApplyMigrations(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return repo, nil
}

func newSessionManager(cfg config.Config, repo session.Repository, logger *slog.Logger) (*session.Manager, error) {
	base, err := api.ParseBaseURL(cfg.API.BaseURL)
	if err != nil {
		return nil, err
	}
	return session.NewManager(repo, session.Options{
		CookieName: cfg.Session.CookieName,
		Secret:     []byte(cfg.Session.Secret),
		Secure:     cfg.Session.Secure,
		MaxAge:     cfg.Session.MaxAge,
		APIBase:    base,
		Transport:  api.NewTransport(http.DefaultTransport),
	}, logger), nil
}

// newRouter wires the health and metrics endpoints, the guarded pages, and
// the middleware stack
func newRouter(cfg config.Config, m *session.Manager, logger *slog.Logger) (*chi.Mux, error) {
	render, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	dash := dashboard.NewHandler(m, render, cfg.Session.MaxAge, logger)
	limiter := middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	authH := auth.NewHandler(m, render, limiter, logger, dash.Forget)

	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	// CORS only for configured origins; session cookies need credentials.
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"X-Request-ID", "Trace-Id"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)

	// ---- Routes ----

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", middleware.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(m, logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.PublicOnly(render, logger))
			auth.RegisterRoutes(r, authH)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Protected(render, logger))
			dashboard.RegisterRoutes(r, dash)
			auth.RegisterLogout(r, authH)
		})
	})

	return r, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
