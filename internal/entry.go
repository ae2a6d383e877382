// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/quizdy/ar-server/internal/api"
	"github.com/quizdy/ar-server/internal/imagewriter"
	"github.com/quizdy/ar-server/internal/mcpserver"
	"github.com/quizdy/ar-server/internal/metrics"
	"github.com/quizdy/ar-server/internal/sse"
	"github.com/quizdy/ar-server/internal/storage"
	"github.com/quizdy/ar-server/internal/venueservice"
	"github.com/quizdy/ar-server/internal/venuestore"
	"github.com/quizdy/ar-server/internal/watch"
)

// stack holds the wired components shared by the HTTP and MCP front ends.
type stack struct {
	venues  *storage.FS
	images  *storage.FS
	svc     *venueservice.Service
	broker  *sse.Broker
	metrics *metrics.Metrics
	catalog *watch.Catalog
	ready   atomic.Bool
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. MCP owns stdout.
	logOut := app.logOut
	switch {
	case logOut != nil:
	case app.mcp:
		logOut = os.Stderr
	default:
		logOut = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("venues_path", cfg.Storage.VenuesPath),
		slog.String("images_path", cfg.Storage.ImagesPath),
		slog.String("api_prefix", cfg.API.Prefix),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := newStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.broker.Close()

	if app.mcp {
		logger.Info("Serving MCP over stdio")
		return mcpserver.New(st.svc, app.version).ServeStdio()
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHandler(st, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Catalog the venues on disk, then follow external changes.
	g.Go(func() error {
		if err := watch.Sync(st.catalog, st.venues, logger, nil); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		st.ready.Store(true)

		err := watch.Watch(gCtx, st.catalog, st.venues, st.venues.Root(), logger, st.broker.PublishVenueEvent)
		if err != nil {
			logger.Error("watcher: failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// newStack creates the storage roots and the components on top of them.
func newStack(cfg *Config, logger *slog.Logger) (*stack, error) {
	for _, dir := range []string{cfg.Storage.VenuesPath, cfg.Storage.ImagesPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
	}
	venues, err := storage.NewFS(cfg.Storage.VenuesPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	images, err := storage.NewFS(cfg.Storage.ImagesPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	st := &stack{
		venues:  venues,
		images:  images,
		broker:  sse.NewBroker(cfg.Events.Throttle),
		metrics: metrics.New(),
		catalog: watch.NewCatalog(),
	}
	st.svc = venueservice.NewService(
		venuestore.New(venues, images, logger),
		imagewriter.New(images),
		venueservice.WithNotifier(st.broker),
		venueservice.WithMetrics(st.metrics),
		venueservice.WithLogger(logger),
	)
	return st, nil
}

// newHandler builds the root router: health, metrics, images and the API.
func newHandler(st *stack, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(st.metrics.Middleware)
	r.Use(api.CORS(api.CORSOptions{
		AllowedOrigins: cfg.API.CORS.AllowedOrigins,
		AllowedMethods: cfg.API.CORS.AllowedMethods,
		AllowedHeaders: cfg.API.CORS.AllowedHeaders,
	}))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !st.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "starting"})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok", "venues": st.catalog.Len()})
	})
	r.Method(http.MethodGet, "/metrics", st.metrics.Handler())

	api.MountImages(r, api.NewImageHandler(st.images))
	r.Mount(cfg.API.Prefix, api.NewRouter(st.svc, cfg.App.HTTP.BodyLimit, st.broker))

	return r
}

func writeStatus(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
