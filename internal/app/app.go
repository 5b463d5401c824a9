package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/carzzy2/bewell-pos/internal/api"
	"github.com/carzzy2/bewell-pos/internal/domain/cart"
	"github.com/carzzy2/bewell-pos/internal/kv"
	"github.com/carzzy2/bewell-pos/internal/money"
	"github.com/carzzy2/bewell-pos/internal/storage/postgres"
	"github.com/carzzy2/bewell-pos/pkg/health"
	"github.com/carzzy2/bewell-pos/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the terminal.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	taxRate, err := cfg.TaxRateDecimal()
	if err != nil {
		return err
	}

	formatter, err := money.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return errors.Wrap(err, "create money formatter")
	}

	// PostgreSQL pool + migrations for the catalog.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Cart session state: Redis when configured, file-backed otherwise.
	state, err := newStateStore(ctx, cfg, lg)
	if err != nil {
		return errors.Wrap(err, "create state store")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain wiring: catalog repository + cart store (restores its session).
	catalogRepo := postgres.NewCatalogRepository(pool)
	cartStore := cart.NewStore(ctx, cart.Config{TaxRate: taxRate}, state, lg.Named("cart"))

	// HTTP surface.
	h := api.NewHandler(
		api.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		catalogRepo,
		cartStore,
		formatter,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pos-api"),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newStateStore picks the cart persistence backend from configuration.
func newStateStore(ctx context.Context, cfg *Config, lg *zap.Logger) (kv.Store, error) {
	if cfg.RedisAddr != "" {
		lg.Info("Using redis cart state", zap.String("addr", cfg.RedisAddr))
		return kv.NewRedis(ctx, cfg.RedisAddr)
	}
	lg.Info("Using file cart state", zap.String("dir", cfg.StateDir))
	return kv.NewFile(cfg.StateDir)
}
