// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/zettel/internal/api"
	"github.com/starford/zettel/internal/articles"
	"github.com/starford/zettel/internal/graph"
	"github.com/starford/zettel/internal/idalloc"
	"github.com/starford/zettel/internal/inference"
	"github.com/starford/zettel/internal/mcpserver"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/query"
	"github.com/starford/zettel/internal/sse"
	"github.com/starford/zettel/internal/storage"
	"github.com/starford/zettel/internal/store"
	"github.com/starford/zettel/internal/suggest"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// components is the wired service graph shared by the HTTP and MCP entry points.
type components struct {
	db       *store.DB
	alloc    *idalloc.Allocator
	graph    *graph.Service
	query    *query.Engine
	pipeline *suggest.Pipeline
	warmer   *suggest.Warmer
	articles *articles.Loader
	broker   *sse.Broker
}

func build(cfg *Config, logger *slog.Logger) (*components, error) {
	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	c := &components{
		db:     db,
		alloc:  idalloc.New(db, idalloc.WithMaxAttempts(cfg.Graph.IDMaxAttempts)),
		broker: sse.NewBroker(cfg.Graph.EventThrottle),
		query: query.New(db, query.Config{
			HubMinLinks: cfg.Graph.HubMinLinks,
			StaleAfter:  cfg.Graph.StaleAfter,
			MaxNodes:    cfg.Graph.MaxNodes,
			MaxDepth:    cfg.Graph.MaxDepth,
		}),
	}
	notifiers := graph.Notifiers{c.broker}

	if mode := suggest.Mode(cfg.Suggest.Mode); mode != suggest.ModeOff {
		client, err := inference.New(cfg.Inference.Client(), logger)
		if err != nil {
			c.close()
			return nil, fmt.Errorf("init inference: %w", err)
		}
		cache, err := suggest.NewCache(cfg.Suggest.CacheSize)
		if err != nil {
			c.close()
			return nil, err
		}
		c.pipeline = suggest.New(client, db, cache, suggest.Config{
			Timeout:       cfg.Inference.Timeout,
			MaxTags:       cfg.Suggest.MaxTags,
			MaxLinks:      cfg.Suggest.MaxLinks,
			Debounce:      cfg.Suggest.Debounce,
			MinBodyLength: cfg.Suggest.MinBodyLength,
		}, logger)

		if mode == suggest.ModeAuto {
			c.warmer = c.pipeline.NewWarmer(func(ctx context.Context, id string) (string, error) {
				n, err := db.GetNote(ctx, id)
				if err != nil {
					return "", err
				}
				return n.Body, nil
			})
			notifiers = append(notifiers, c.warmer)
		} else {
			notifiers = append(notifiers, c.pipeline)
		}
	}

	c.graph = graph.New(db,
		graph.WithNotifier(notifiers),
		graph.WithLogger(logger),
		graph.WithAllocator(c.alloc),
	)

	if cfg.Articles.Path != "" {
		if err := os.MkdirAll(cfg.Articles.Path, 0o755); err != nil {
			c.close()
			return nil, fmt.Errorf("create articles dir: %w", err)
		}
		src, err := storage.NewFS(cfg.Articles.Path)
		if err != nil {
			c.close()
			return nil, fmt.Errorf("init articles: %w", err)
		}
		broker := c.broker
		c.articles = articles.NewLoader(src, logger, func(count int) {
			broker.Publish(sse.Event{Type: "articles.reloaded", Data: map[string]int{"count": count}})
		})
		if err := c.articles.Load(); err != nil {
			logger.Warn("initial article load failed", slog.String("error", err.Error()))
		}
	}

	return c, nil
}

func (c *components) close() {
	if c.warmer != nil {
		c.warmer.Close()
	}
	c.broker.Close()
	if err := c.db.Close(); err != nil {
		slog.Error("close store", slog.String("error", err.Error()))
	}
}

// watchArticles runs the article watcher until ctx is done.
func (c *components) watchArticles(ctx context.Context, cfg *Config, logger *slog.Logger) {
	if c.articles == nil || !cfg.Articles.Watch {
		return
	}
	if err := c.articles.Watch(ctx); err != nil {
		logger.Warn("article watcher stopped", slog.String("error", err.Error()))
	}
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("articles_path", cfg.Articles.Path),
		slog.String("suggest_mode", cfg.Suggest.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	apiRouter := api.NewRouter(api.Deps{
		Graph:    c.graph,
		Query:    c.query,
		Store:    c.db,
		Suggest:  c.pipeline,
		Articles: c.articles,
		Logger:   logger,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","version":%q}`, app.version)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		pingCtx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(pingCtx); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Watch the articles directory and broadcast reloads.
	g.Go(func() error {
		c.watchArticles(gCtx, cfg, logger)
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
		// Stops the watcher as well.
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	c, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go c.watchArticles(ctx, cfg, logger)

	srv := mcpserver.New(mcpserver.Deps{
		Graph:          c.graph,
		Query:          c.query,
		Store:          c.db,
		Suggest:        c.pipeline,
		Articles:       c.articles,
		SuggestTimeout: cfg.Inference.Timeout + 30*time.Second,
	}, app.version)

	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	return srv.ServeStdio()
}

// NewID allocates an identifier that is free in the configured store.
func NewID(ctx context.Context, opts ...Option) (string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return "", err
	}
	cfg := app.config
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return "", fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	return idalloc.New(db, idalloc.WithMaxAttempts(cfg.Graph.IDMaxAttempts)).Allocate(ctx)
}

// CreateNote stores a note through the graph service, used by the CLI.
func CreateNote(ctx context.Context, draft models.Note, opts ...Option) (*models.Note, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	alloc := idalloc.New(db, idalloc.WithMaxAttempts(cfg.Graph.IDMaxAttempts))
	return graph.New(db, graph.WithAllocator(alloc)).Create(ctx, draft)
}
