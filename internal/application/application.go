package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/plantevern/internal/api"
	"github.com/eugenenazirov/plantevern/internal/calculator"
	"github.com/eugenenazirov/plantevern/internal/catalog"
	"github.com/eugenenazirov/plantevern/internal/config"
	"github.com/eugenenazirov/plantevern/internal/metrics"
	"github.com/eugenenazirov/plantevern/internal/planner"
	"github.com/eugenenazirov/plantevern/internal/storage"
)

const retryInterval = 200 * time.Millisecond

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store   *storage.PlanStore
	catalog *catalog.Catalog
	packer  calculator.Packer
	metrics *metrics.Metrics
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server

	closeKV func() error
}

// New initializes the application with all dependencies from the provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	m := metrics.New()

	provider, err := NewProvider(cfg, logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to build product provider: %w", err)
	}
	products := catalog.NewCatalog(provider, cfg.CatalogTTL)

	kv, closeKV, err := OpenKV(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	store, err := storage.Open(ctx, kv)
	if err != nil {
		_ = closeKV()
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	packer := calculator.New()
	handler := api.NewHandler(products, store, packer,
		api.WithMetrics(m),
		api.WithLogger(logger),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		store:   store,
		catalog: products,
		packer:  packer,
		metrics: m,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
		closeKV: closeKV,
	}, nil
}

// NewProvider returns the embedded catalog, or the live registry with the
// embedded catalog as fallback when a products URL is configured.
func NewProvider(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (catalog.Provider, error) {
	embedded, err := catalog.NewEmbeddedProvider()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ProductsURL) == "" {
		return observedProvider{provider: embedded, metrics: m}, nil
	}

	live := catalog.NewHTTPProvider(cfg.ProductsURL, logger,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		catalog.WithRetries(uint64(cfg.FetchRetries), retryInterval),
		catalog.WithBreaker(uint32(cfg.BreakerFailures), cfg.BreakerOpenTimeout),
	)
	observed := observedProvider{provider: live, metrics: m}
	return catalog.NewFallbackProvider(observed, embedded, logger), nil
}

// OpenKV opens the configured key-value backend and returns its close func.
func OpenKV(cfg config.Config) (storage.KV, func() error, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		kv, err := storage.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.StorageMemory, "":
		return storage.NewMemoryKV(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// BuildRootHandler routes API and metrics requests and answers the root path
// with a short service description.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service": "plantevern",
			"endpoints": []string{
				"/api/health", "/api/products", "/api/plots", "/api/treatments",
				"/api/shopping-list", "/api/pack", "/metrics",
			},
		})
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
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

// ShoppingList builds the shopping list of the stored plan.
func (a *App) ShoppingList() ([]planner.ShoppingListItem, error) {
	plots, treatments := a.store.Snapshot()
	return planner.BuildShoppingList(plots, treatments, a.packer)
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Close releases the storage backend.
func (a *App) Close() error {
	if a.closeKV == nil {
		return nil
	}
	return a.closeKV()
}

// observedProvider counts catalog loads in the metrics registry.
type observedProvider struct {
	provider catalog.Provider
	metrics  *metrics.Metrics
}

func (p observedProvider) ListApprovedProducts(ctx context.Context) ([]catalog.Product, error) {
	products, err := p.provider.ListApprovedProducts(ctx)
	p.metrics.ObserveCatalogFetch(err == nil)
	return products, err
}
