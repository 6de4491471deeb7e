package application

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/basket-splitter/internal/api"
	"github.com/eugenenazirov/basket-splitter/internal/cache"
	"github.com/eugenenazirov/basket-splitter/internal/catalog"
	"github.com/eugenenazirov/basket-splitter/internal/config"
	"github.com/eugenenazirov/basket-splitter/internal/metrics"
	"github.com/eugenenazirov/basket-splitter/internal/splitter"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store   catalog.Store
	metrics *metrics.Prometheus
	cache   *cache.Splits
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	path, err := resolveProjectPath(cfg.DeliveryOptionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to locate delivery options: %w", err)
	}

	table, err := catalog.LoadTable(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery options: %w", err)
	}

	store := catalog.NewMemoryStore()
	if err := store.SetTable(table); err != nil {
		return nil, fmt.Errorf("failed to apply delivery options: %w", err)
	}
	logger.Info("delivery options loaded", zap.String("path", path), zap.Int("items", table.Len()))

	handlerOpts := []api.HandlerOption{
		api.WithHandlerLogger(logger),
		api.WithSearchTimeout(cfg.SearchTimeout),
		api.WithSplitterOptions(splitter.WithMaxNodes(cfg.SearchMaxNodes)),
	}

	var collector *metrics.Prometheus
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		collector = metrics.NewPrometheus("")
		metricsHandler = collector.Handler()
		handlerOpts = append(handlerOpts, api.WithMetrics(collector))
	}

	var results *cache.Splits
	if cfg.CacheTTL > 0 {
		results, err = cache.New(cfg.CacheTTL, cfg.CacheMaxMB)
		if err != nil {
			return nil, err
		}
		handlerOpts = append(handlerOpts, api.WithResultCache(results))
	}

	handler := api.NewHandler(store, handlerOpts...)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		store:   store,
		metrics: collector,
		cache:   results,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter, metricsHandler)),
	}, nil
}

// BuildRootHandler routes API traffic and, when metricsHandler is non-nil, the /metrics endpoint.
func BuildRootHandler(apiHandler http.Handler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "basket-splitter: POST /api/split with {\"items\": [...]}")
	}))

	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	// A split may run for up to SearchTimeout before the response is written.
	writeTimeout := cfg.WriteTimeout
	if cfg.SearchTimeout > 0 && writeTimeout > 0 && writeTimeout < cfg.SearchTimeout {
		writeTimeout = cfg.SearchTimeout + cfg.WriteTimeout
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Close releases resources held outside the HTTP server. Call it after the
// server has shut down.
func (a *App) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// resolveProjectPath locates a file relative to the working directory or,
// failing that, to one of its parents. Absolute paths are returned unchanged.
func resolveProjectPath(relative string) (string, error) {
	if filepath.IsAbs(relative) {
		return relative, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
