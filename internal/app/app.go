// Package app wires the storefront API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/receipt"
	"github.com/xenking/storefront/internal/domain/session"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/textfile"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// backend is where the catalog comes from and where receipts go.
type backend struct {
	catalog *product.Catalog
	writer  receipt.Writer
	history receipt.History
	close   func()
}

// openBackend always writes text receipts to cfg.Receipts.Dir. With a
// database configured it also loads the catalog from Postgres and stores
// purchases there for the history endpoint.
func openBackend(ctx context.Context, lg *zap.Logger, cfg *Config, checks *health.Health) (*backend, error) {
	files := textfile.New(textfile.Config{Dir: cfg.Receipts.Dir, Compress: cfg.Receipts.Compress})
	if err := files.CheckWritable(ctx); err != nil {
		return nil, errors.Wrap(err, "receipts dir")
	}
	checks.Add(health.Readiness, "receipts", health.Wrapped("receipts dir", files.CheckWritable), health.Options{})

	if cfg.DatabaseURL == "" {
		lg.Info("No database configured, using built-in catalog")
		return &backend{catalog: product.DefaultCatalog(), writer: files, close: func() {}}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	checks.Add(health.Readiness, "postgres", pool.Ping, health.Options{Timeout: 5 * time.Second})

	catalog, err := product.LoadCatalog(ctx, postgres.NewProductRepository(pool))
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "load catalog")
	}
	receipts := postgres.NewReceiptRepository(pool)

	return &backend{
		catalog: catalog,
		writer:  receipt.NewMultiWriter(files, receipts),
		history: receipts,
		close:   pool.Close,
	}, nil
}

// newHTTPHandler builds the server handler: probes, the API behind optional
// API key auth, and the middleware chain.
func newHTTPHandler(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	svc *session.Service,
	checks *health.Health,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	api := http.NewServeMux()
	handler.New(svc).Register(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", checks.LiveEndpoint)
	mux.HandleFunc("GET /readyz", checks.ReadyEndpoint)
	mux.Handle("/api/", httpmiddleware.APIKey(httpmiddleware.APIKeyConfig{
		Pepper: []byte(cfg.Auth.APIKeyPepper),
		Hashes: cfg.Auth.APIKeyHashes,
	})(api))

	findAPI := httpmiddleware.MakeRouteFinder(api)
	findRoot := httpmiddleware.MakeRouteFinder(mux)
	find := func(r *http.Request) (string, bool) {
		if route, ok := findAPI(r); ok {
			return route, true
		}
		return findRoot(r)
	}

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(lg),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "api_key", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Location"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument(serviceName, find, tp, mp),
		httpmiddleware.LogRequests(find),
		httpmiddleware.Labeler(find),
	)
}

// Run creates all dependencies, serves HTTP and shuts down gracefully when
// ctx is cancelled.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("receipts_dir", cfg.Receipts.Dir),
		zap.Bool("database", cfg.DatabaseURL != ""),
	)

	checks := health.New()
	checks.Add(health.Liveness, "goroutines", health.GoroutineCountCheck(10000), health.Options{Timeout: time.Second})

	be, err := openBackend(ctx, lg, cfg, checks)
	if err != nil {
		return err
	}
	defer be.close()

	store := session.NewStore(session.StoreConfig{
		IdleTTL:     cfg.Session.IdleTTL,
		MaxSessions: cfg.Session.MaxSessions,
	})
	store.StartCleanup(ctx, cfg.Session.CleanupInterval, func(n int) {
		lg.Info("Discarded idle carts", zap.Int("count", n), zap.Int("open", store.Len()))
	})

	svc, err := session.NewService(be.catalog, store, be.writer, be.history, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create session service")
	}
	lg.Info("Catalog loaded",
		zap.Int("products", be.catalog.Len()),
		zap.Strings("categories", be.catalog.Categories()),
	)

	checks.Start(ctx, 10*time.Second)
	checks.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: newHTTPHandler(ctx, lg, cfg, svc, checks,
			m.TracerProvider(), m.MeterProvider()),
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		checks.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		checks.Stop()
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
